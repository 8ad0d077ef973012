package businessflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/glowdesk/invite-engine/models"
	"github.com/glowdesk/invite-engine/repository"
	"github.com/google/uuid"
)

// In-memory repositories backing the flows under test. The flows run with a
// nil *gorm.DB, which makes WithTransaction call straight through.

type fakeCampaignRepo struct {
	mu     sync.Mutex
	rows   map[uint]*models.InviteCampaign
	nextID uint
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{rows: make(map[uint]*models.InviteCampaign)}
}

func (r *fakeCampaignRepo) add(c *models.InviteCampaign) *models.InviteCampaign {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	cp := *c
	r.rows[c.ID] = &cp
	return c
}

func (r *fakeCampaignRepo) ByID(ctx context.Context, id uint) (*models.InviteCampaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, found := r.rows[id]; found {
		cp := *row
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeCampaignRepo) Save(ctx context.Context, entity *models.InviteCampaign) error {
	r.add(entity)
	return nil
}

func (r *fakeCampaignRepo) SaveBatch(ctx context.Context, entities []*models.InviteCampaign) error {
	for _, e := range entities {
		r.add(e)
	}
	return nil
}

func (r *fakeCampaignRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.InviteCampaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UUID == id {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCampaignRepo) ByFilter(ctx context.Context, filter models.InviteCampaignFilter) ([]*models.InviteCampaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.InviteCampaign
	for id := uint(1); id <= r.nextID; id++ {
		row, found := r.rows[id]
		if !found {
			continue
		}
		if filter.SalonID != nil && row.SalonID != *filter.SalonID {
			continue
		}
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	if filter.Offset != nil {
		if *filter.Offset >= len(out) {
			out = nil
		} else {
			out = out[*filter.Offset:]
		}
	}
	if filter.Limit != nil && len(out) > *filter.Limit {
		out = out[:*filter.Limit]
	}
	return out, nil
}

func (r *fakeCampaignRepo) CountByFilter(ctx context.Context, filter models.InviteCampaignFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, row := range r.rows {
		if filter.SalonID != nil && row.SalonID != *filter.SalonID {
			continue
		}
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		count++
	}
	return count, nil
}

func (r *fakeCampaignRepo) Update(ctx context.Context, campaign *models.InviteCampaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, found := r.rows[campaign.ID]; found {
		// Status transitions go through UpdateStatus; Update must not clobber
		// a pause raced in by another goroutine.
		campaign.Status = existing.Status
	}
	cp := *campaign
	r.rows[campaign.ID] = &cp
	return nil
}

func (r *fakeCampaignRepo) UpdateStatus(ctx context.Context, campaignID uint, from, to models.CampaignStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, found := r.rows[campaignID]
	if !found || row.Status != from {
		return false, nil
	}
	row.Status = to
	return true, nil
}

func (r *fakeCampaignRepo) UpdateCounters(ctx context.Context, campaignID uint, sent, delivered, failed uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, found := r.rows[campaignID]
	if !found {
		return fmt.Errorf("campaign %d not found", campaignID)
	}
	row.SentCount = sent
	row.DeliveredCount = delivered
	row.FailedCount = failed
	return nil
}

func (r *fakeCampaignRepo) setStatus(campaignID uint, status models.CampaignStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, found := r.rows[campaignID]; found {
		row.Status = status
	}
}

func (r *fakeCampaignRepo) CurrentStatus(ctx context.Context, campaignID uint) (models.CampaignStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, found := r.rows[campaignID]
	if !found {
		return "", fmt.Errorf("campaign %d not found", campaignID)
	}
	return row.Status, nil
}

func (r *fakeCampaignRepo) Delete(ctx context.Context, campaignID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, found := r.rows[campaignID]
	if !found || row.Status == models.CampaignStatusSending {
		return false, nil
	}
	delete(r.rows, campaignID)
	return true, nil
}

func (r *fakeCampaignRepo) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*models.InviteCampaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.InviteCampaign
	for _, row := range r.rows {
		if row.Status == models.CampaignStatusScheduled && row.ScheduledAt != nil && !row.ScheduledAt.After(now) {
			cp := *row
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

var _ repository.InviteCampaignRepository = (*fakeCampaignRepo)(nil)

type fakeCustomerRepo struct {
	mu     sync.Mutex
	rows   map[uint]*models.ImportedCustomer
	nextID uint
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{rows: make(map[uint]*models.ImportedCustomer)}
}

func (r *fakeCustomerRepo) add(c *models.ImportedCustomer) *models.ImportedCustomer {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	cp := *c
	r.rows[c.ID] = &cp
	return c
}

func (r *fakeCustomerRepo) ByID(ctx context.Context, id uint) (*models.ImportedCustomer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, found := r.rows[id]; found {
		cp := *row
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeCustomerRepo) Save(ctx context.Context, entity *models.ImportedCustomer) error {
	r.add(entity)
	return nil
}

func (r *fakeCustomerRepo) SaveBatch(ctx context.Context, entities []*models.ImportedCustomer) error {
	for _, e := range entities {
		r.add(e)
	}
	return nil
}

func (r *fakeCustomerRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.ImportedCustomer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UUID == id {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) ByFilter(ctx context.Context, filter models.ImportedCustomerFilter) ([]*models.ImportedCustomer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ImportedCustomer
	for id := uint(1); id <= r.nextID; id++ {
		row, found := r.rows[id]
		if !found {
			continue
		}
		if filter.SalonID != nil && row.SalonID != *filter.SalonID {
			continue
		}
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		if filter.Phone != nil && row.Phone != *filter.Phone {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeCustomerRepo) ByPhone(ctx context.Context, salonID uint, phone string) (*models.ImportedCustomer, error) {
	customers, _ := r.ByFilter(ctx, models.ImportedCustomerFilter{SalonID: &salonID, Phone: &phone})
	if len(customers) == 0 {
		return nil, nil
	}
	return customers[len(customers)-1], nil
}

func (r *fakeCustomerRepo) ListInvitable(ctx context.Context, salonID uint) ([]*models.ImportedCustomer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ImportedCustomer
	for id := uint(1); id <= r.nextID; id++ {
		row, found := r.rows[id]
		if !found || row.SalonID != salonID || !row.Invitable() {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeCustomerRepo) CountInvitable(ctx context.Context, salonID uint) (uint, error) {
	customers, err := r.ListInvitable(ctx, salonID)
	if err != nil {
		return 0, err
	}
	return uint(len(customers)), nil
}

func (r *fakeCustomerRepo) UpdateStatus(ctx context.Context, customerID uint, status models.CustomerStatus, invitedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, found := r.rows[customerID]
	if !found {
		return fmt.Errorf("customer %d not found", customerID)
	}
	row.Status = status
	if invitedAt != nil {
		row.LastInvitedAt = invitedAt
	}
	return nil
}

var _ repository.ImportedCustomerRepository = (*fakeCustomerRepo)(nil)

type fakeMessageRepo struct {
	mu     sync.Mutex
	rows   map[uint]*models.InviteMessage
	nextID uint
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{rows: make(map[uint]*models.InviteMessage)}
}

func (r *fakeMessageRepo) ByID(ctx context.Context, id uint) (*models.InviteMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, found := r.rows[id]; found {
		cp := *row
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeMessageRepo) Save(ctx context.Context, entity *models.InviteMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entity.ID = r.nextID
	cp := *entity
	r.rows[entity.ID] = &cp
	return nil
}

func (r *fakeMessageRepo) SaveBatch(ctx context.Context, entities []*models.InviteMessage) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeMessageRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.InviteMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UUID == id {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) ByFilter(ctx context.Context, filter models.InviteMessageFilter) ([]*models.InviteMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.InviteMessage
	for id := uint(1); id <= r.nextID; id++ {
		row, found := r.rows[id]
		if !found {
			continue
		}
		if filter.CampaignID != nil && row.CampaignID != *filter.CampaignID {
			continue
		}
		if filter.CustomerID != nil && row.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Channel != nil && row.Channel != *filter.Channel {
			continue
		}
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeMessageRepo) ByProviderMessageID(ctx context.Context, providerMessageID string) (*models.InviteMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ProviderMessageID != nil && *row.ProviderMessageID == providerMessageID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) Update(ctx context.Context, message *models.InviteMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *message
	r.rows[message.ID] = &cp
	return nil
}

func (r *fakeMessageRepo) AggregateByCampaign(ctx context.Context, campaignID uint) ([]repository.MessageAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[models.MessageStatus]uint)
	for _, row := range r.rows {
		if row.CampaignID == campaignID {
			counts[row.Status]++
		}
	}
	var out []repository.MessageAggregate
	for status, count := range counts {
		out = append(out, repository.MessageAggregate{Status: status, Count: count})
	}
	return out, nil
}

var _ repository.InviteMessageRepository = (*fakeMessageRepo)(nil)

type fakeOfferRepo struct {
	mu     sync.Mutex
	rows   map[uint]*models.WelcomeOffer
	nextID uint
}

func newFakeOfferRepo() *fakeOfferRepo {
	return &fakeOfferRepo{rows: make(map[uint]*models.WelcomeOffer)}
}

func (r *fakeOfferRepo) ByID(ctx context.Context, id uint) (*models.WelcomeOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, found := r.rows[id]; found {
		cp := *row
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeOfferRepo) Save(ctx context.Context, entity *models.WelcomeOffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entity.ID = r.nextID
	cp := *entity
	r.rows[entity.ID] = &cp
	return nil
}

func (r *fakeOfferRepo) SaveBatch(ctx context.Context, entities []*models.WelcomeOffer) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeOfferRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.WelcomeOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UUID == id {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeOfferRepo) ListBySalon(ctx context.Context, salonID uint, activeOnly bool) ([]*models.WelcomeOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.WelcomeOffer
	for _, row := range r.rows {
		if row.SalonID != salonID {
			continue
		}
		if activeOnly && (row.IsActive == nil || !*row.IsActive) {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeOfferRepo) Update(ctx context.Context, offer *models.WelcomeOffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *offer
	r.rows[offer.ID] = &cp
	return nil
}

var _ repository.WelcomeOfferRepository = (*fakeOfferRepo)(nil)

type fakeSalonRepo struct {
	mu   sync.Mutex
	rows map[uint]*models.Salon
}

func newFakeSalonRepo() *fakeSalonRepo {
	return &fakeSalonRepo{rows: make(map[uint]*models.Salon)}
}

func (r *fakeSalonRepo) add(s *models.Salon) *models.Salon {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.rows[s.ID] = &cp
	return s
}

func (r *fakeSalonRepo) ByID(ctx context.Context, id uint) (*models.Salon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, found := r.rows[id]; found {
		cp := *row
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeSalonRepo) Save(ctx context.Context, entity *models.Salon) error {
	r.add(entity)
	return nil
}

func (r *fakeSalonRepo) SaveBatch(ctx context.Context, entities []*models.Salon) error {
	for _, e := range entities {
		r.add(e)
	}
	return nil
}

func (r *fakeSalonRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.Salon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UUID == id {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

var _ repository.SalonRepository = (*fakeSalonRepo)(nil)

type fakeOperatorRepo struct {
	mu   sync.Mutex
	rows map[uint]*models.Operator
}

func newFakeOperatorRepo() *fakeOperatorRepo {
	return &fakeOperatorRepo{rows: make(map[uint]*models.Operator)}
}

func (r *fakeOperatorRepo) add(o *models.Operator) *models.Operator {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.rows[o.ID] = &cp
	return o
}

func (r *fakeOperatorRepo) ByID(ctx context.Context, id uint) (*models.Operator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, found := r.rows[id]; found {
		cp := *row
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeOperatorRepo) Save(ctx context.Context, entity *models.Operator) error {
	r.add(entity)
	return nil
}

func (r *fakeOperatorRepo) SaveBatch(ctx context.Context, entities []*models.Operator) error {
	for _, e := range entities {
		r.add(e)
	}
	return nil
}

func (r *fakeOperatorRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.Operator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UUID == id {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeOperatorRepo) ByEmail(ctx context.Context, email string) (*models.Operator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Email == email {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeOperatorRepo) UpdateLastLogin(ctx context.Context, operatorID uint, loginAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, found := r.rows[operatorID]; found {
		row.LastLoginAt = &loginAt
	}
	return nil
}

var _ repository.OperatorRepository = (*fakeOperatorRepo)(nil)

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) ByID(ctx context.Context, id uint) (*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) Save(ctx context.Context, entity *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entity
	r.logs = append(r.logs, &cp)
	return nil
}

func (r *fakeAuditRepo) SaveBatch(ctx context.Context, entities []*models.AuditLog) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeAuditRepo) ByOperatorID(ctx context.Context, operatorID uint, limit int) ([]*models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditLog
	for _, l := range r.logs {
		if l.OperatorID != nil && *l.OperatorID == operatorID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, l.Action)
	}
	return out
}

var _ repository.AuditLogRepository = (*fakeAuditRepo)(nil)
