package models

import (
	"time"

	"github.com/google/uuid"
)

// Operator statuses
const (
	OperatorStatusActive    = "active"
	OperatorStatusSuspended = "suspended"
)

// Operator is a staff account that manages campaigns for a salon
type Operator struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	UUID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_operators_uuid" json:"uuid"`
	SalonID uint      `gorm:"not null;index:idx_operators_salon_id" json:"salon_id"`

	Email        string `gorm:"size:255;not null;uniqueIndex:uk_operators_email" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	DisplayName  string `gorm:"size:120;not null" json:"display_name"`

	Status      string     `gorm:"size:20;not null;default:'active';index:idx_operators_status" json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Salon *Salon `gorm:"foreignKey:SalonID" json:"-"`
}

func (Operator) TableName() string {
	return "operators"
}

// IsActive checks if the operator account can authenticate
func (o *Operator) IsActive() bool {
	return o.Status == OperatorStatusActive
}

// OperatorFilter represents filter criteria for operator queries
type OperatorFilter struct {
	ID      *uint
	UUID    *uuid.UUID
	SalonID *uint
	Email   *string
	Status  *string
}
