package repository

import (
	"context"
	"fmt"

	"github.com/glowdesk/invite-engine/models"
	"gorm.io/gorm"
)

type auditLogRepository struct {
	*BaseRepository[models.AuditLog, models.AuditLogFilter]
}

// NewAuditLogRepository creates a new audit log repository instance
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{
		BaseRepository: NewBaseRepository[models.AuditLog, models.AuditLogFilter](db),
	}
}

func (r *auditLogRepository) ByOperatorID(ctx context.Context, operatorID uint, limit int) ([]*models.AuditLog, error) {
	db := r.getDB(ctx)

	var logs []*models.AuditLog
	err := db.Where("operator_id = ?", operatorID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs for operator %d: %w", operatorID, err)
	}

	return logs, nil
}
