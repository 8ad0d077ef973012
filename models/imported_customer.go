package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CustomerStatus represents where an imported customer sits in the
// invitation funnel
type CustomerStatus string

const (
	CustomerStatusPending    CustomerStatus = "pending"
	CustomerStatusInvited    CustomerStatus = "invited"
	CustomerStatusRegistered CustomerStatus = "registered"
	CustomerStatusExpired    CustomerStatus = "expired"
)

func (cs CustomerStatus) Valid() bool {
	switch cs {
	case CustomerStatusPending,
		CustomerStatusInvited,
		CustomerStatusRegistered,
		CustomerStatusExpired:
		return true
	}
	return false
}

func (cs *CustomerStatus) Scan(value interface{}) error {
	if value == nil {
		return fmt.Errorf("cannot scan nil into CustomerStatus")
	}
	switch v := value.(type) {
	case string:
		*cs = CustomerStatus(v)
	case []byte:
		*cs = CustomerStatus(v)
	default:
		return fmt.Errorf("cannot scan %T into CustomerStatus", value)
	}
	if !cs.Valid() {
		return fmt.Errorf("invalid customer status: %s", *cs)
	}
	return nil
}

func (cs CustomerStatus) Value() (driver.Value, error) {
	if !cs.Valid() {
		return nil, fmt.Errorf("invalid customer status: %s", cs)
	}
	return string(cs), nil
}

// ImportedCustomer is a contact uploaded by a salon that has not
// necessarily registered on the platform yet
type ImportedCustomer struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	UUID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_imported_customers_uuid" json:"uuid"`
	SalonID uint      `gorm:"not null;index:idx_imported_customers_salon_id" json:"salon_id"`

	FullName string  `gorm:"size:120;not null" json:"full_name"`
	Phone    string  `gorm:"size:20;not null;index:idx_imported_customers_phone" json:"phone"`
	ChatID   *string `gorm:"size:64" json:"chat_id,omitempty"`

	Status        CustomerStatus `gorm:"size:20;not null;default:'pending';index:idx_imported_customers_status" json:"status"`
	LastInvitedAt *time.Time     `json:"last_invited_at,omitempty"`
	RegisteredAt  *time.Time     `json:"registered_at,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Salon *Salon `gorm:"foreignKey:SalonID" json:"-"`
}

func (ImportedCustomer) TableName() string {
	return "imported_customers"
}

// Invitable checks whether a campaign may target this customer. A customer
// already invited by any campaign is never targeted again.
func (c *ImportedCustomer) Invitable() bool {
	return c.Status == CustomerStatusPending
}

// HasChatChannel checks whether the customer can receive chat messages
func (c *ImportedCustomer) HasChatChannel() bool {
	return c.ChatID != nil && *c.ChatID != ""
}

// ImportedCustomerFilter represents filter criteria for customer queries
type ImportedCustomerFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	SalonID       *uint
	Phone         *string
	Status        *CustomerStatus
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
