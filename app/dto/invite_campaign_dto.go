// Package dto contains Data Transfer Objects for API request and response structures
package dto

import (
	"time"
)

// CreateCampaignRequest represents the payload for creating an invitation campaign
type CreateCampaignRequest struct {
	Title            string     `json:"title" validate:"required,min=1,max=120" example:"Spring reopening"`
	Channel          string     `json:"channel" validate:"required,oneof=sms chat both" example:"both"`
	TemplateText     string     `json:"template_text" validate:"required,min=1,max=1000" example:"Hi {{customer_name}}, {{offer_amount}} off at {{salon_name}}!"`
	WelcomeOfferUUID *string    `json:"welcome_offer_uuid,omitempty" validate:"omitempty,uuid"`
	ScheduledAt      *time.Time `json:"scheduled_at,omitempty"`
}

// UpdateCampaignRequest represents a partial update of a draft campaign
type UpdateCampaignRequest struct {
	Title            *string    `json:"title,omitempty" validate:"omitempty,min=1,max=120"`
	Channel          *string    `json:"channel,omitempty" validate:"omitempty,oneof=sms chat both"`
	TemplateText     *string    `json:"template_text,omitempty" validate:"omitempty,min=1,max=1000"`
	WelcomeOfferUUID *string    `json:"welcome_offer_uuid,omitempty" validate:"omitempty,uuid"`
	ScheduledAt      *time.Time `json:"scheduled_at,omitempty"`
}

// CampaignInfo represents a campaign in API responses
type CampaignInfo struct {
	UUID             string     `json:"uuid"`
	Title            string     `json:"title"`
	Status           string     `json:"status" example:"sending"`
	Channel          string     `json:"channel" example:"both"`
	TemplateText     string     `json:"template_text"`
	WelcomeOfferUUID *string    `json:"welcome_offer_uuid,omitempty"`
	ScheduledAt      *time.Time `json:"scheduled_at,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	TotalTargets     uint       `json:"total_targets"`
	SentCount        uint       `json:"sent_count"`
	DeliveredCount   uint       `json:"delivered_count"`
	FailedCount      uint       `json:"failed_count"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ListCampaignsRequest represents paging and filtering for campaign listing
type ListCampaignsRequest struct {
	Page     int     `json:"page" query:"page" validate:"omitempty,min=1"`
	PageSize int     `json:"page_size" query:"page_size" validate:"omitempty,min=1,max=100"`
	Status   *string `json:"status" query:"status" validate:"omitempty,oneof=draft scheduled sending paused completed failed"`
}

// ListCampaignsResult represents the data payload of a campaign listing
type ListCampaignsResult struct {
	Items      []CampaignInfo `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

// CampaignStatsResult represents aggregate delivery statistics for one campaign
type CampaignStatsResult struct {
	CampaignUUID   string `json:"campaign_uuid"`
	Status         string `json:"status"`
	TotalTargets   uint   `json:"total_targets"`
	PendingCount   uint   `json:"pending_count"`
	SentCount      uint   `json:"sent_count"`
	DeliveredCount uint   `json:"delivered_count"`
	ReadCount      uint   `json:"read_count"`
	FailedCount    uint   `json:"failed_count"`

	// DeliveryRate is confirmed deliveries over accepted sends, rounded to
	// two decimals. Zero when nothing has been sent.
	DeliveryRate float64 `json:"delivery_rate"`
}
