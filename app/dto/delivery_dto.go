// Package dto contains Data Transfer Objects for API request and response structures
package dto

import (
	"time"
)

// DeliveryReportRequest represents a provider delivery webhook payload
type DeliveryReportRequest struct {
	ProviderMessageID string     `json:"provider_message_id" validate:"required,max=128" example:"prov-8f2e1"`
	Status            string     `json:"status" validate:"required,max=32" example:"delivered"`
	Reason            *string    `json:"reason,omitempty" validate:"omitempty,max=255"`
	OccurredAt        *time.Time `json:"occurred_at,omitempty"`
}

// DeliveryReportResult represents the acknowledgment of a delivery webhook
type DeliveryReportResult struct {
	Applied bool `json:"applied"`
}
