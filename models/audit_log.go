package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	OperatorID   *uint           `gorm:"index:idx_audit_operator_id" json:"operator_id,omitempty"`
	Operator     *Operator       `gorm:"foreignKey:OperatorID;references:ID" json:"operator,omitempty"`
	Action       string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionLoginSuccessful      = "login_successful"
	AuditActionLoginFailed          = "login_failed"
	AuditActionCampaignCreated      = "campaign_created"
	AuditActionCampaignUpdated      = "campaign_updated"
	AuditActionCampaignScheduled    = "campaign_scheduled"
	AuditActionCampaignDeleted      = "campaign_deleted"
	AuditActionCampaignLaunched     = "campaign_launched"
	AuditActionCampaignPaused       = "campaign_paused"
	AuditActionCampaignResumed      = "campaign_resumed"
	AuditActionCampaignCompleted    = "campaign_completed"
	AuditActionCampaignFailed       = "campaign_failed"
	AuditActionCustomersImported    = "customers_imported"
	AuditActionDeliveryReport       = "delivery_report_received"
	AuditActionWelcomeOfferCreated  = "welcome_offer_created"
	AuditActionWelcomeOfferDisabled = "welcome_offer_disabled"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	OperatorID    *uint
	Action        *string
	Success       *bool
	IPAddress     *string
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
