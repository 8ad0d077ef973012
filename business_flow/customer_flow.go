package businessflow

import (
	"context"

	"github.com/glowdesk/invite-engine/app/dto"
	"github.com/glowdesk/invite-engine/models"
	"github.com/glowdesk/invite-engine/repository"
	"github.com/glowdesk/invite-engine/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomerFlow defines imported customer operations
type CustomerFlow interface {
	ImportCustomers(ctx context.Context, operator *models.Operator, req *dto.ImportCustomersRequest, metadata *ClientMetadata) (*dto.ImportCustomersResult, error)
	ListCustomers(ctx context.Context, operator *models.Operator, req *dto.ListCustomersRequest) (*dto.ListCustomersResult, error)
}

// CustomerFlowImpl implements the customer import flow
type CustomerFlowImpl struct {
	customerRepo repository.ImportedCustomerRepository
	auditRepo    repository.AuditLogRepository
	db           *gorm.DB
}

// NewCustomerFlow creates a new customer flow instance
func NewCustomerFlow(
	customerRepo repository.ImportedCustomerRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) CustomerFlow {
	return &CustomerFlowImpl{
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		db:           db,
	}
}

// ImportCustomers inserts a batch of contacts, skipping phones that already
// exist for the salon
func (f *CustomerFlowImpl) ImportCustomers(ctx context.Context, operator *models.Operator, req *dto.ImportCustomersRequest, metadata *ClientMetadata) (*dto.ImportCustomersResult, error) {
	for _, item := range req.Customers {
		if item.Phone == "" {
			return nil, NewBusinessError("CUSTOMER_PHONE_REQUIRED", "customer phone is required", ErrCustomerPhoneRequired)
		}
		if item.FullName == "" {
			return nil, NewBusinessError("CUSTOMER_NAME_REQUIRED", "customer name is required", ErrCustomerNameRequired)
		}
	}

	result := &dto.ImportCustomersResult{}
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		seen := make(map[string]bool, len(req.Customers))
		toInsert := make([]*models.ImportedCustomer, 0, len(req.Customers))

		for _, item := range req.Customers {
			if seen[item.Phone] {
				result.Skipped++
				continue
			}
			seen[item.Phone] = true

			existing, err := f.customerRepo.ByPhone(txCtx, operator.SalonID, item.Phone)
			if err != nil {
				return err
			}
			if existing != nil {
				result.Skipped++
				continue
			}

			toInsert = append(toInsert, &models.ImportedCustomer{
				UUID:      uuid.New(),
				SalonID:   operator.SalonID,
				FullName:  item.FullName,
				Phone:     item.Phone,
				ChatID:    item.ChatID,
				Status:    models.CustomerStatusPending,
				CreatedAt: utils.UTCNow(),
				UpdatedAt: utils.UTCNow(),
			})
		}

		if err := f.customerRepo.SaveBatch(txCtx, toInsert); err != nil {
			return err
		}
		result.Imported = len(toInsert)
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_IMPORT_FAILED", "failed to import customers", err)
	}

	return result, nil
}

// ListCustomers returns a page of the salon's imported customers
func (f *CustomerFlowImpl) ListCustomers(ctx context.Context, operator *models.Operator, req *dto.ListCustomersRequest) (*dto.ListCustomersResult, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 100 {
		return nil, NewBusinessError("INVALID_PAGE_SIZE", "page size must be between 1 and 100", ErrInvalidPageSize)
	}

	filter := models.ImportedCustomerFilter{SalonID: &operator.SalonID}
	if req.Status != nil {
		status := models.CustomerStatus(*req.Status)
		filter.Status = &status
	}

	customers, err := f.customerRepo.ByFilter(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LIST_FAILED", "failed to list customers", err)
	}

	total := int64(len(customers))
	start := (page - 1) * pageSize
	if start > len(customers) {
		start = len(customers)
	}
	end := start + pageSize
	if end > len(customers) {
		end = len(customers)
	}

	items := make([]dto.CustomerInfo, 0, end-start)
	for _, c := range customers[start:end] {
		items = append(items, dto.CustomerInfo{
			UUID:          c.UUID.String(),
			FullName:      c.FullName,
			Phone:         c.Phone,
			ChatID:        c.ChatID,
			Status:        string(c.Status),
			LastInvitedAt: c.LastInvitedAt,
			RegisteredAt:  c.RegisteredAt,
			CreatedAt:     c.CreatedAt,
		})
	}

	return &dto.ListCustomersResult{
		Items: items,
		Pagination: dto.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	}, nil
}
