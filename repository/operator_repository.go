package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glowdesk/invite-engine/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type operatorRepository struct {
	*BaseRepository[models.Operator, models.OperatorFilter]
}

// NewOperatorRepository creates a new operator repository instance
func NewOperatorRepository(db *gorm.DB) OperatorRepository {
	return &operatorRepository{
		BaseRepository: NewBaseRepository[models.Operator, models.OperatorFilter](db),
	}
}

func (r *operatorRepository) ByUUID(ctx context.Context, id uuid.UUID) (*models.Operator, error) {
	db := r.getDB(ctx)

	var operator models.Operator
	err := db.Where("uuid = ?", id).Last(&operator).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find operator by UUID: %w", err)
	}

	return &operator, nil
}

func (r *operatorRepository) ByEmail(ctx context.Context, email string) (*models.Operator, error) {
	db := r.getDB(ctx)

	var operator models.Operator
	err := db.Where("email = ?", email).Last(&operator).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find operator by email: %w", err)
	}

	return &operator, nil
}

func (r *operatorRepository) UpdateLastLogin(ctx context.Context, operatorID uint, loginAt time.Time) error {
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

	err = db.Model(&models.Operator{}).
		Where("id = ?", operatorID).
		Updates(map[string]interface{}{
			"last_login_at": loginAt,
			"updated_at":    loginAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update operator last login: %w", err)
	}

	return nil
}
