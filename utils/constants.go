package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is the time-to-live for access tokens in seconds
	AccessTokenTTLSeconds = 86400

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Dispatch constants
const (
	// MaxTemplateLength caps invitation template bodies
	MaxTemplateLength = 1000

	// DefaultSendDelay is the pacing delay between customers in a dispatch loop
	DefaultSendDelay = 100 * time.Millisecond

	// StatsCacheTTL is how long aggregated campaign stats may be served from cache
	StatsCacheTTL = 30 * time.Second
)

// Template placeholder keys available to campaign templates
const (
	PlaceholderCustomerName = "customer_name"
	PlaceholderSalonName    = "salon_name"
	PlaceholderOfferAmount  = "offer_amount"
	PlaceholderOfferCode    = "offer_code"
	PlaceholderDownloadLink = "download_link"
	PlaceholderExpiryDays   = "expiry_days"
)
