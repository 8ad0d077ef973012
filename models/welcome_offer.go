package models

import (
	"time"

	"github.com/google/uuid"
)

// WelcomeOffer is a discount attached to invitation campaigns to
// incentivize customers to register
type WelcomeOffer struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	UUID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_welcome_offers_uuid" json:"uuid"`
	SalonID uint      `gorm:"not null;index:idx_welcome_offers_salon_id" json:"salon_id"`

	Title string `gorm:"size:120;not null" json:"title"`

	// DiscountText is the human-readable amount rendered into templates, e.g. "20%"
	DiscountText string `gorm:"size:40;not null" json:"discount_text"`

	// Code is an optional redemption code rendered into templates
	Code string `gorm:"size:40" json:"code"`

	ValidDays uint       `gorm:"not null;default:30" json:"valid_days"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	IsActive *bool `gorm:"default:true;index:idx_welcome_offers_is_active" json:"is_active"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Salon *Salon `gorm:"foreignKey:SalonID" json:"-"`
}

func (WelcomeOffer) TableName() string {
	return "welcome_offers"
}

// IsUsable checks whether the offer can still be attached to a campaign
func (w *WelcomeOffer) IsUsable(now time.Time) bool {
	if w.IsActive == nil || !*w.IsActive {
		return false
	}
	if w.ExpiresAt != nil && now.After(*w.ExpiresAt) {
		return false
	}
	return true
}

// WelcomeOfferFilter represents filter criteria for welcome offer queries
type WelcomeOfferFilter struct {
	ID       *uint
	UUID     *uuid.UUID
	SalonID  *uint
	IsActive *bool
}
