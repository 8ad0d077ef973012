package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glowdesk/invite-engine/models"
	"github.com/glowdesk/invite-engine/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type inviteCampaignRepository struct {
	*BaseRepository[models.InviteCampaign, models.InviteCampaignFilter]
}

// NewInviteCampaignRepository creates a new campaign repository instance
func NewInviteCampaignRepository(db *gorm.DB) InviteCampaignRepository {
	return &inviteCampaignRepository{
		BaseRepository: NewBaseRepository[models.InviteCampaign, models.InviteCampaignFilter](db),
	}
}

func (r *inviteCampaignRepository) ByUUID(ctx context.Context, id uuid.UUID) (*models.InviteCampaign, error) {
	db := r.getDB(ctx)

	var campaign models.InviteCampaign
	err := db.Where("uuid = ?", id).Last(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find campaign by UUID: %w", err)
	}

	return &campaign, nil
}

func (r *inviteCampaignRepository) ByFilter(ctx context.Context, filter models.InviteCampaignFilter) ([]*models.InviteCampaign, error) {
	db := r.getDB(ctx)

	query := db.Model(&models.InviteCampaign{})
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.SalonID != nil {
		query = query.Where("salon_id = ?", *filter.SalonID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Channel != nil {
		query = query.Where("channel = ?", *filter.Channel)
	}
	if filter.ScheduledAtBefore != nil {
		query = query.Where("scheduled_at <= ?", *filter.ScheduledAtBefore)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}

	if filter.OrderByCreatedDesc {
		query = query.Order("created_at DESC")
	} else {
		query = query.Order("id ASC")
	}
	if filter.Limit != nil {
		query = query.Limit(*filter.Limit)
	}
	if filter.Offset != nil {
		query = query.Offset(*filter.Offset)
	}

	var campaigns []*models.InviteCampaign
	err := query.Find(&campaigns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find campaigns by filter: %w", err)
	}

	return campaigns, nil
}

func (r *inviteCampaignRepository) CountByFilter(ctx context.Context, filter models.InviteCampaignFilter) (int64, error) {
	db := r.getDB(ctx)

	query := db.Model(&models.InviteCampaign{})
	if filter.SalonID != nil {
		query = query.Where("salon_id = ?", *filter.SalonID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Channel != nil {
		query = query.Where("channel = ?", *filter.Channel)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	return count, nil
}

func (r *inviteCampaignRepository) Update(ctx context.Context, campaign *models.InviteCampaign) error {
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

	campaign.UpdatedAt = utils.UTCNow()
	err = db.Save(campaign).Error
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}

	return nil
}

// UpdateCounters writes only the aggregate counter columns, so a counter
// push from the dispatch loop cannot clobber a pause raced in through the
// CAS path.
func (r *inviteCampaignRepository) UpdateCounters(ctx context.Context, campaignID uint, sent, delivered, failed uint) error {
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

	err = db.Model(&models.InviteCampaign{}).
		Where("id = ?", campaignID).
		Updates(map[string]interface{}{
			"sent_count":      sent,
			"delivered_count": delivered,
			"failed_count":    failed,
			"updated_at":      utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update campaign counters: %w", err)
	}

	return nil
}

// UpdateStatus performs a compare-and-swap status transition. It reports
// whether the row was actually moved, so concurrent launchers and the
// pause path cannot both win.
func (r *inviteCampaignRepository) UpdateStatus(ctx context.Context, campaignID uint, from, to models.CampaignStatus) (bool, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
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

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": utils.UTCNow(),
	}
	switch to {
	case models.CampaignStatusSending:
		if from != models.CampaignStatusPaused {
			updates["started_at"] = utils.UTCNow()
		}
	case models.CampaignStatusCompleted, models.CampaignStatusFailed:
		updates["finished_at"] = utils.UTCNow()
	}

	result := db.Model(&models.InviteCampaign{}).
		Where("id = ? AND status = ?", campaignID, from).
		Updates(updates)
	if result.Error != nil {
		err = fmt.Errorf("failed to update campaign status: %w", result.Error)
		return false, err
	}

	return result.RowsAffected > 0, nil
}

func (r *inviteCampaignRepository) CurrentStatus(ctx context.Context, campaignID uint) (models.CampaignStatus, error) {
	db := r.getDB(ctx)

	var status models.CampaignStatus
	err := db.Model(&models.InviteCampaign{}).
		Select("status").
		Where("id = ?", campaignID).
		Scan(&status).Error
	if err != nil {
		return "", fmt.Errorf("failed to read campaign status: %w", err)
	}
	if status == "" {
		return "", fmt.Errorf("campaign %d not found", campaignID)
	}

	return status, nil
}

// Delete removes a campaign row. The status guard lives in the query so a
// campaign that entered sending after the caller's check is still protected.
func (r *inviteCampaignRepository) Delete(ctx context.Context, campaignID uint) (bool, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
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

	result := db.Where("id = ? AND status <> ?", campaignID, models.CampaignStatusSending).
		Delete(&models.InviteCampaign{})
	if result.Error != nil {
		err = fmt.Errorf("failed to delete campaign: %w", result.Error)
		return false, err
	}

	return result.RowsAffected > 0, nil
}

// ListDueScheduled returns scheduled campaigns whose launch time has passed
func (r *inviteCampaignRepository) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*models.InviteCampaign, error) {
	db := r.getDB(ctx)

	var campaigns []*models.InviteCampaign
	err := db.Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?",
		models.CampaignStatusScheduled, now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&campaigns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due scheduled campaigns: %w", err)
	}

	return campaigns, nil
}
