// Package models contains domain entities and business models for the invitation engine
package models

import (
	"time"

	"github.com/google/uuid"
)

// Salon is the owning tenant for customers, offers and campaigns
type Salon struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	UUID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_salons_uuid" json:"uuid"`
	Name    string    `gorm:"size:120;not null" json:"name"`
	Phone   *string   `gorm:"size:20" json:"phone,omitempty"`
	Address *string   `gorm:"size:255" json:"address,omitempty"`

	// DownloadLink is the app/booking deep link injected into invitation templates
	DownloadLink *string `gorm:"size:255" json:"download_link,omitempty"`

	IsActive *bool `gorm:"default:true;index:idx_salons_is_active" json:"is_active"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_salons_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Operators []Operator         `gorm:"foreignKey:SalonID" json:"-"`
	Customers []ImportedCustomer `gorm:"foreignKey:SalonID" json:"-"`
	Campaigns []InviteCampaign   `gorm:"foreignKey:SalonID" json:"-"`
}

func (Salon) TableName() string {
	return "salons"
}

// SalonFilter represents filter criteria for salon queries
type SalonFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Name          *string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
