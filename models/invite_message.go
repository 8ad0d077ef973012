package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageStatus represents the delivery state of a single invitation message
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

func (ms MessageStatus) Valid() bool {
	switch ms {
	case MessageStatusPending,
		MessageStatusSent,
		MessageStatusDelivered,
		MessageStatusRead,
		MessageStatusFailed:
		return true
	}
	return false
}

func (ms *MessageStatus) Scan(value interface{}) error {
	if value == nil {
		return fmt.Errorf("cannot scan nil into MessageStatus")
	}
	switch v := value.(type) {
	case string:
		*ms = MessageStatus(v)
	case []byte:
		*ms = MessageStatus(v)
	default:
		return fmt.Errorf("cannot scan %T into MessageStatus", value)
	}
	if !ms.Valid() {
		return fmt.Errorf("invalid message status: %s", *ms)
	}
	return nil
}

func (ms MessageStatus) Value() (driver.Value, error) {
	if !ms.Valid() {
		return nil, fmt.Errorf("invalid message status: %s", ms)
	}
	return string(ms), nil
}

// IsTerminal checks if a provider report can still move the message
// to a different state. Failed and read never downgrade.
func (ms MessageStatus) IsTerminal() bool {
	return ms == MessageStatusRead || ms == MessageStatusFailed
}

// CountsAsSent checks whether the message left the platform successfully
func (ms MessageStatus) CountsAsSent() bool {
	return ms == MessageStatusSent || ms == MessageStatusDelivered || ms == MessageStatusRead
}

// CountsAsDelivered checks whether the provider confirmed handset delivery
func (ms MessageStatus) CountsAsDelivered() bool {
	return ms == MessageStatusDelivered || ms == MessageStatusRead
}

// InviteMessage is one ledger row per customer per channel attempt
type InviteMessage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_invite_messages_uuid" json:"uuid"`
	CampaignID uint      `gorm:"not null;index:idx_invite_messages_campaign_id" json:"campaign_id"`
	CustomerID uint      `gorm:"not null;index:idx_invite_messages_customer_id" json:"customer_id"`

	Channel     string `gorm:"size:10;not null" json:"channel"`
	Destination string `gorm:"size:64;not null" json:"destination"`
	Body        string `gorm:"type:text;not null" json:"body"`

	Status MessageStatus `gorm:"size:20;not null;default:'pending';index:idx_invite_messages_status" json:"status"`

	// ProviderMessageID correlates delivery webhooks back to this row
	ProviderMessageID *string `gorm:"size:128;index:idx_invite_messages_provider_message_id" json:"provider_message_id,omitempty"`
	FailureReason     *string `gorm:"size:255" json:"failure_reason,omitempty"`

	SentAt      *time.Time `json:"sent_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Campaign *InviteCampaign   `gorm:"foreignKey:CampaignID" json:"-"`
	Customer *ImportedCustomer `gorm:"foreignKey:CustomerID" json:"-"`
}

func (InviteMessage) TableName() string {
	return "invite_messages"
}

// InviteMessageFilter represents filter criteria for message ledger queries
type InviteMessageFilter struct {
	ID                *uint
	UUID              *uuid.UUID
	CampaignID        *uint
	CustomerID        *uint
	Channel           *string
	Status            *MessageStatus
	ProviderMessageID *string
	Limit             *int
	Offset            *int
}
