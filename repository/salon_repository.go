package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/glowdesk/invite-engine/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type salonRepository struct {
	*BaseRepository[models.Salon, models.SalonFilter]
}

// NewSalonRepository creates a new salon repository instance
func NewSalonRepository(db *gorm.DB) SalonRepository {
	return &salonRepository{
		BaseRepository: NewBaseRepository[models.Salon, models.SalonFilter](db),
	}
}

func (r *salonRepository) ByUUID(ctx context.Context, id uuid.UUID) (*models.Salon, error) {
	db := r.getDB(ctx)

	var salon models.Salon
	err := db.Where("uuid = ?", id).Last(&salon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find salon by UUID: %w", err)
	}

	return &salon, nil
}
