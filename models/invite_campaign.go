package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CampaignStatus represents the lifecycle state of an invitation campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusSending   CampaignStatus = "sending"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// Campaign channels
const (
	ChannelSMS  = "sms"
	ChannelChat = "chat"
	ChannelBoth = "both"
)

func (cs CampaignStatus) Valid() bool {
	switch cs {
	case CampaignStatusDraft,
		CampaignStatusScheduled,
		CampaignStatusSending,
		CampaignStatusPaused,
		CampaignStatusCompleted,
		CampaignStatusFailed:
		return true
	}
	return false
}

func (cs *CampaignStatus) Scan(value interface{}) error {
	if value == nil {
		return fmt.Errorf("cannot scan nil into CampaignStatus")
	}
	switch v := value.(type) {
	case string:
		*cs = CampaignStatus(v)
	case []byte:
		*cs = CampaignStatus(v)
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}
	if !cs.Valid() {
		return fmt.Errorf("invalid campaign status: %s", *cs)
	}
	return nil
}

func (cs CampaignStatus) Value() (driver.Value, error) {
	if !cs.Valid() {
		return nil, fmt.Errorf("invalid campaign status: %s", cs)
	}
	return string(cs), nil
}

// CanTransitionTo checks if the status transition is allowed
func (cs CampaignStatus) CanTransitionTo(target CampaignStatus) bool {
	switch cs {
	case CampaignStatusDraft:
		return target == CampaignStatusScheduled || target == CampaignStatusSending
	case CampaignStatusScheduled:
		return target == CampaignStatusSending || target == CampaignStatusDraft
	case CampaignStatusSending:
		return target == CampaignStatusPaused ||
			target == CampaignStatusCompleted ||
			target == CampaignStatusFailed
	case CampaignStatusPaused:
		return target == CampaignStatusSending
	case CampaignStatusCompleted, CampaignStatusFailed:
		return false
	}
	return false
}

// IsTerminal checks if the campaign can no longer change state
func (cs CampaignStatus) IsTerminal() bool {
	return cs == CampaignStatusCompleted || cs == CampaignStatusFailed
}

// InviteCampaign is a batch send of invitation messages to a salon's
// imported customers
type InviteCampaign struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	UUID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_invite_campaigns_uuid" json:"uuid"`
	SalonID uint      `gorm:"not null;index:idx_invite_campaigns_salon_id" json:"salon_id"`

	Title   string         `gorm:"size:120;not null" json:"title"`
	Status  CampaignStatus `gorm:"size:20;not null;default:'draft';index:idx_invite_campaigns_status" json:"status"`
	Channel string         `gorm:"size:10;not null;default:'sms'" json:"channel"`

	// Channels is the ordered expansion of Channel used by the dispatcher,
	// e.g. both => {sms, chat}
	Channels pq.StringArray `gorm:"type:text[]" json:"channels"`

	TemplateText string `gorm:"type:text;not null" json:"template_text"`

	WelcomeOfferID *uint `gorm:"index:idx_invite_campaigns_offer_id" json:"welcome_offer_id,omitempty"`

	ScheduledAt *time.Time `gorm:"index:idx_invite_campaigns_scheduled_at" json:"scheduled_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`

	// Aggregate counters recomputed from the message ledger
	TotalTargets   uint `gorm:"not null;default:0" json:"total_targets"`
	SentCount      uint `gorm:"not null;default:0" json:"sent_count"`
	DeliveredCount uint `gorm:"not null;default:0" json:"delivered_count"`
	FailedCount    uint `gorm:"not null;default:0" json:"failed_count"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_invite_campaigns_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Salon        *Salon          `gorm:"foreignKey:SalonID" json:"-"`
	WelcomeOffer *WelcomeOffer   `gorm:"foreignKey:WelcomeOfferID" json:"-"`
	Messages     []InviteMessage `gorm:"foreignKey:CampaignID" json:"-"`
}

func (InviteCampaign) TableName() string {
	return "invite_campaigns"
}

// ValidChannel checks the campaign channel selector
func ValidChannel(channel string) bool {
	switch channel {
	case ChannelSMS, ChannelChat, ChannelBoth:
		return true
	}
	return false
}

// ExpandChannels returns the ordered list of concrete channels for a selector.
// SMS is attempted before chat when both are requested.
func ExpandChannels(channel string) pq.StringArray {
	switch channel {
	case ChannelBoth:
		return pq.StringArray{ChannelSMS, ChannelChat}
	case ChannelChat:
		return pq.StringArray{ChannelChat}
	default:
		return pq.StringArray{ChannelSMS}
	}
}

// IsLaunchable checks whether the campaign may enter the sending state
func (c *InviteCampaign) IsLaunchable() bool {
	return c.Status == CampaignStatusDraft || c.Status == CampaignStatusScheduled
}

// InviteCampaignFilter represents filter criteria for campaign queries
type InviteCampaignFilter struct {
	ID                 *uint
	UUID               *uuid.UUID
	SalonID            *uint
	Status             *CampaignStatus
	Channel            *string
	ScheduledAtBefore  *time.Time
	CreatedAfter       *time.Time
	CreatedBefore      *time.Time
	OrderByCreatedDesc bool
	Limit              *int
	Offset             *int
}
