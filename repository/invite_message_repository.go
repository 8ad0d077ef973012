package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/glowdesk/invite-engine/models"
	"github.com/glowdesk/invite-engine/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type inviteMessageRepository struct {
	*BaseRepository[models.InviteMessage, models.InviteMessageFilter]
}

// NewInviteMessageRepository creates a new message ledger repository instance
func NewInviteMessageRepository(db *gorm.DB) InviteMessageRepository {
	return &inviteMessageRepository{
		BaseRepository: NewBaseRepository[models.InviteMessage, models.InviteMessageFilter](db),
	}
}

func (r *inviteMessageRepository) ByUUID(ctx context.Context, id uuid.UUID) (*models.InviteMessage, error) {
	db := r.getDB(ctx)

	var message models.InviteMessage
	err := db.Where("uuid = ?", id).Last(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find message by UUID: %w", err)
	}

	return &message, nil
}

func (r *inviteMessageRepository) ByFilter(ctx context.Context, filter models.InviteMessageFilter) ([]*models.InviteMessage, error) {
	db := r.getDB(ctx)

	query := db.Model(&models.InviteMessage{})
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.CampaignID != nil {
		query = query.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Channel != nil {
		query = query.Where("channel = ?", *filter.Channel)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ProviderMessageID != nil {
		query = query.Where("provider_message_id = ?", *filter.ProviderMessageID)
	}

	query = query.Order("id ASC")
	if filter.Limit != nil {
		query = query.Limit(*filter.Limit)
	}
	if filter.Offset != nil {
		query = query.Offset(*filter.Offset)
	}

	var messages []*models.InviteMessage
	err := query.Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find messages by filter: %w", err)
	}

	return messages, nil
}

func (r *inviteMessageRepository) ByProviderMessageID(ctx context.Context, providerMessageID string) (*models.InviteMessage, error) {
	db := r.getDB(ctx)

	var message models.InviteMessage
	err := db.Where("provider_message_id = ?", providerMessageID).Last(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find message by provider message ID: %w", err)
	}

	return &message, nil
}

func (r *inviteMessageRepository) Update(ctx context.Context, message *models.InviteMessage) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	message.UpdatedAt = utils.UTCNow()
	err = db.Save(message).Error
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	return nil
}

// AggregateByCampaign groups the ledger by status for stats recomputation
func (r *inviteMessageRepository) AggregateByCampaign(ctx context.Context, campaignID uint) ([]MessageAggregate, error) {
	db := r.getDB(ctx)

	var rows []MessageAggregate
	err := db.Model(&models.InviteMessage{}).
		Select("status, COUNT(*) as count").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate messages for campaign %d: %w", campaignID, err)
	}

	return rows, nil
}
