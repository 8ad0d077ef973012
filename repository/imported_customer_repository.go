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

type importedCustomerRepository struct {
	*BaseRepository[models.ImportedCustomer, models.ImportedCustomerFilter]
}

// NewImportedCustomerRepository creates a new imported customer repository instance
func NewImportedCustomerRepository(db *gorm.DB) ImportedCustomerRepository {
	return &importedCustomerRepository{
		BaseRepository: NewBaseRepository[models.ImportedCustomer, models.ImportedCustomerFilter](db),
	}
}

func (r *importedCustomerRepository) ByUUID(ctx context.Context, id uuid.UUID) (*models.ImportedCustomer, error) {
	db := r.getDB(ctx)

	var customer models.ImportedCustomer
	err := db.Where("uuid = ?", id).Last(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find customer by UUID: %w", err)
	}

	return &customer, nil
}

func (r *importedCustomerRepository) ByFilter(ctx context.Context, filter models.ImportedCustomerFilter) ([]*models.ImportedCustomer, error) {
	db := r.getDB(ctx)

	query := db.Model(&models.ImportedCustomer{})
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.SalonID != nil {
		query = query.Where("salon_id = ?", *filter.SalonID)
	}
	if filter.Phone != nil {
		query = query.Where("phone = ?", *filter.Phone)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}

	var customers []*models.ImportedCustomer
	err := query.Order("id ASC").Find(&customers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find customers by filter: %w", err)
	}

	return customers, nil
}

func (r *importedCustomerRepository) ByPhone(ctx context.Context, salonID uint, phone string) (*models.ImportedCustomer, error) {
	db := r.getDB(ctx)

	var customer models.ImportedCustomer
	err := db.Where("salon_id = ? AND phone = ?", salonID, phone).Last(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find customer by phone: %w", err)
	}

	return &customer, nil
}

// ListInvitable returns the salon's still-pending customers in stable import
// order. Invited customers are excluded so a new campaign never re-targets
// someone an earlier campaign already reached.
func (r *importedCustomerRepository) ListInvitable(ctx context.Context, salonID uint) ([]*models.ImportedCustomer, error) {
	db := r.getDB(ctx)

	var customers []*models.ImportedCustomer
	err := db.Where("salon_id = ? AND status = ?", salonID, models.CustomerStatusPending).
		Order("id ASC").
		Find(&customers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invitable customers: %w", err)
	}

	return customers, nil
}

// CountInvitable counts the salon's still-pending customers
func (r *importedCustomerRepository) CountInvitable(ctx context.Context, salonID uint) (uint, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.ImportedCustomer{}).
		Where("salon_id = ? AND status = ?", salonID, models.CustomerStatusPending).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count invitable customers: %w", err)
	}

	return uint(count), nil
}

func (r *importedCustomerRepository) UpdateStatus(ctx context.Context, customerID uint, status models.CustomerStatus, invitedAt *time.Time) error {
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

	updates := map[string]interface{}{
		"status":     status,
		"updated_at": utils.UTCNow(),
	}
	if invitedAt != nil {
		updates["last_invited_at"] = *invitedAt
	}
	if status == models.CustomerStatusRegistered {
		updates["registered_at"] = utils.UTCNow()
	}

	err = db.Model(&models.ImportedCustomer{}).
		Where("id = ?", customerID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update customer status: %w", err)
	}

	return nil
}
