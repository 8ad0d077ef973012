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

type welcomeOfferRepository struct {
	*BaseRepository[models.WelcomeOffer, models.WelcomeOfferFilter]
}

// NewWelcomeOfferRepository creates a new welcome offer repository instance
func NewWelcomeOfferRepository(db *gorm.DB) WelcomeOfferRepository {
	return &welcomeOfferRepository{
		BaseRepository: NewBaseRepository[models.WelcomeOffer, models.WelcomeOfferFilter](db),
	}
}

func (r *welcomeOfferRepository) ByUUID(ctx context.Context, id uuid.UUID) (*models.WelcomeOffer, error) {
	db := r.getDB(ctx)

	var offer models.WelcomeOffer
	err := db.Where("uuid = ?", id).Last(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find welcome offer by UUID: %w", err)
	}

	return &offer, nil
}

func (r *welcomeOfferRepository) ListBySalon(ctx context.Context, salonID uint, activeOnly bool) ([]*models.WelcomeOffer, error) {
	db := r.getDB(ctx)

	query := db.Where("salon_id = ?", salonID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var offers []*models.WelcomeOffer
	err := query.Order("created_at DESC").Find(&offers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list welcome offers: %w", err)
	}

	return offers, nil
}

func (r *welcomeOfferRepository) Update(ctx context.Context, offer *models.WelcomeOffer) error {
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

	offer.UpdatedAt = utils.UTCNow()
	err = db.Save(offer).Error
	if err != nil {
		return fmt.Errorf("failed to update welcome offer: %w", err)
	}

	return nil
}
