// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/glowdesk/invite-engine/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
}

// SalonRepository defines operations for salons
type SalonRepository interface {
	Repository[models.Salon, models.SalonFilter]
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.Salon, error)
}

// OperatorRepository defines operations for operator accounts
type OperatorRepository interface {
	Repository[models.Operator, models.OperatorFilter]
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.Operator, error)
	ByEmail(ctx context.Context, email string) (*models.Operator, error)
	UpdateLastLogin(ctx context.Context, operatorID uint, loginAt time.Time) error
}

// WelcomeOfferRepository defines operations for welcome offers
type WelcomeOfferRepository interface {
	Repository[models.WelcomeOffer, models.WelcomeOfferFilter]
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.WelcomeOffer, error)
	ListBySalon(ctx context.Context, salonID uint, activeOnly bool) ([]*models.WelcomeOffer, error)
	Update(ctx context.Context, offer *models.WelcomeOffer) error
}

// ImportedCustomerRepository defines operations for imported customers
type ImportedCustomerRepository interface {
	Repository[models.ImportedCustomer, models.ImportedCustomerFilter]
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.ImportedCustomer, error)
	ByFilter(ctx context.Context, filter models.ImportedCustomerFilter) ([]*models.ImportedCustomer, error)
	ByPhone(ctx context.Context, salonID uint, phone string) (*models.ImportedCustomer, error)
	ListInvitable(ctx context.Context, salonID uint) ([]*models.ImportedCustomer, error)
	CountInvitable(ctx context.Context, salonID uint) (uint, error)
	UpdateStatus(ctx context.Context, customerID uint, status models.CustomerStatus, invitedAt *time.Time) error
}

// InviteCampaignRepository defines operations for invitation campaigns
type InviteCampaignRepository interface {
	Repository[models.InviteCampaign, models.InviteCampaignFilter]
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.InviteCampaign, error)
	ByFilter(ctx context.Context, filter models.InviteCampaignFilter) ([]*models.InviteCampaign, error)
	CountByFilter(ctx context.Context, filter models.InviteCampaignFilter) (int64, error)
	Update(ctx context.Context, campaign *models.InviteCampaign) error
	UpdateStatus(ctx context.Context, campaignID uint, from, to models.CampaignStatus) (bool, error)
	// UpdateCounters writes only the aggregate counter columns; the status
	// column belongs to the UpdateStatus CAS path.
	UpdateCounters(ctx context.Context, campaignID uint, sent, delivered, failed uint) error
	CurrentStatus(ctx context.Context, campaignID uint) (models.CampaignStatus, error)
	ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*models.InviteCampaign, error)
	// Delete removes a campaign unless it is currently sending. Reports
	// whether a row was removed.
	Delete(ctx context.Context, campaignID uint) (bool, error)
}

// MessageAggregate holds per-status message counts for one campaign
type MessageAggregate struct {
	Status models.MessageStatus
	Count  uint
}

// InviteMessageRepository defines operations for the message ledger
type InviteMessageRepository interface {
	Repository[models.InviteMessage, models.InviteMessageFilter]
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.InviteMessage, error)
	ByFilter(ctx context.Context, filter models.InviteMessageFilter) ([]*models.InviteMessage, error)
	ByProviderMessageID(ctx context.Context, providerMessageID string) (*models.InviteMessage, error)
	Update(ctx context.Context, message *models.InviteMessage) error
	AggregateByCampaign(ctx context.Context, campaignID uint) ([]MessageAggregate, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ByOperatorID(ctx context.Context, operatorID uint, limit int) ([]*models.AuditLog, error)
}
