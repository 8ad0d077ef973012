package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/glowdesk/invite-engine/app/dto"
	"github.com/glowdesk/invite-engine/app/services"
	"github.com/glowdesk/invite-engine/config"
	"github.com/glowdesk/invite-engine/models"
	"github.com/glowdesk/invite-engine/repository"
	"github.com/glowdesk/invite-engine/utils"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

// Dispatch metrics
var (
	messagesDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invite_messages_dispatched_total",
		Help: "Invitation messages handed to the provider, by channel and outcome",
	}, []string{"channel", "outcome"})

	dispatchLoopsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "invite_dispatch_loops_active",
		Help: "Number of campaign dispatch loops currently running",
	})
)

// InviteCampaignFlow defines campaign lifecycle operations
type InviteCampaignFlow interface {
	CreateCampaign(ctx context.Context, operator *models.Operator, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignInfo, error)
	UpdateCampaign(ctx context.Context, operator *models.Operator, campaignUUID string, req *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignInfo, error)
	GetCampaign(ctx context.Context, operator *models.Operator, campaignUUID string) (*dto.CampaignInfo, error)
	ListCampaigns(ctx context.Context, operator *models.Operator, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResult, error)
	LaunchCampaign(ctx context.Context, operator *models.Operator, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignInfo, error)
	PauseCampaign(ctx context.Context, operator *models.Operator, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignInfo, error)
	ResumeCampaign(ctx context.Context, operator *models.Operator, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignInfo, error)
	GetCampaignStats(ctx context.Context, operator *models.Operator, campaignUUID string) (*dto.CampaignStatsResult, error)
	DeleteCampaign(ctx context.Context, operator *models.Operator, campaignUUID string, metadata *ClientMetadata) error

	// LaunchDue moves a due scheduled campaign into sending and starts its
	// dispatch loop. Used by the scheduler.
	LaunchDue(ctx context.Context, campaign *models.InviteCampaign) error

	// WaitDispatch blocks until all dispatch loops started by this flow have
	// finished. Intended for tests and shutdown.
	WaitDispatch()
}

// InviteCampaignFlowImpl implements the campaign business flow
type InviteCampaignFlowImpl struct {
	campaignRepo repository.InviteCampaignRepository
	customerRepo repository.ImportedCustomerRepository
	messageRepo  repository.InviteMessageRepository
	offerRepo    repository.WelcomeOfferRepository
	salonRepo    repository.SalonRepository
	auditRepo    repository.AuditLogRepository
	gateway      services.MessageGateway
	statsCache   services.StatsCache
	db           *gorm.DB
	dispatchCfg  config.DispatchConfig
	statsTTL     time.Duration

	dispatchWG sync.WaitGroup
}

// NewInviteCampaignFlow creates a new campaign flow instance
func NewInviteCampaignFlow(
	campaignRepo repository.InviteCampaignRepository,
	customerRepo repository.ImportedCustomerRepository,
	messageRepo repository.InviteMessageRepository,
	offerRepo repository.WelcomeOfferRepository,
	salonRepo repository.SalonRepository,
	auditRepo repository.AuditLogRepository,
	gateway services.MessageGateway,
	statsCache services.StatsCache,
	db *gorm.DB,
	dispatchCfg config.DispatchConfig,
	statsTTL time.Duration,
) InviteCampaignFlow {
	return &InviteCampaignFlowImpl{
		campaignRepo: campaignRepo,
		customerRepo: customerRepo,
		messageRepo:  messageRepo,
		offerRepo:    offerRepo,
		salonRepo:    salonRepo,
		auditRepo:    auditRepo,
		gateway:      gateway,
		statsCache:   statsCache,
		db:           db,
		dispatchCfg:  dispatchCfg,
		statsTTL:     statsTTL,
	}
}

// CreateCampaign creates a draft (or scheduled) invitation campaign
func (f *InviteCampaignFlowImpl) CreateCampaign(ctx context.Context, operator *models.Operator, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignInfo, error) {
	if err := f.validateCampaignFields(req.Title, req.TemplateText, req.Channel); err != nil {
		return nil, err
	}

	var offerID *uint
	if req.WelcomeOfferUUID != nil {
		offer, err := f.resolveOffer(ctx, operator.SalonID, *req.WelcomeOfferUUID)
		if err != nil {
			return nil, err
		}
		offerID = &offer.ID
	}

	targets, err := f.customerRepo.CountInvitable(ctx, operator.SalonID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATE_FAILED", "failed to count campaign targets", err)
	}

	status := models.CampaignStatusDraft
	var scheduledAt *time.Time
	if req.ScheduledAt != nil {
		at := utils.TimeToUTC(*req.ScheduledAt)
		if !at.After(utils.UTCNow()) {
			return nil, NewBusinessError("SCHEDULE_TIME_IN_PAST", "scheduled time must be in the future", ErrScheduleTimeInPast)
		}
		status = models.CampaignStatusScheduled
		scheduledAt = &at
	}

	campaign := &models.InviteCampaign{
		UUID:           uuid.New(),
		SalonID:        operator.SalonID,
		Title:          req.Title,
		Status:         status,
		Channel:        req.Channel,
		Channels:       models.ExpandChannels(req.Channel),
		TemplateText:   req.TemplateText,
		WelcomeOfferID: offerID,
		TotalTargets:   targets,
		ScheduledAt:    scheduledAt,
		CreatedAt:      utils.UTCNow(),
		UpdatedAt:      utils.UTCNow(),
	}

	if err := f.campaignRepo.Save(ctx, campaign); err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATE_FAILED", "failed to create campaign", err)
	}

	f.createAuditLog(ctx, operator, models.AuditActionCampaignCreated,
		fmt.Sprintf("campaign %s created", campaign.UUID), metadata, true, nil)

	info := toCampaignInfo(campaign, req.WelcomeOfferUUID)
	return &info, nil
}

// UpdateCampaign applies a partial update to a draft or scheduled campaign
func (f *InviteCampaignFlowImpl) UpdateCampaign(ctx context.Context, operator *models.Operator, campaignUUID string, req *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignInfo, error) {
	campaign, err := f.ownedCampaign(ctx, operator, campaignUUID)
	if err != nil {
		return nil, err
	}

	if campaign.Status != models.CampaignStatusDraft && campaign.Status != models.CampaignStatusScheduled {
		return nil, NewBusinessErrorf("CAMPAIGN_INVALID_STATE", "campaign in status %s cannot be updated", ErrCampaignInvalidState, campaign.Status)
	}

	if req.Title != nil {
		campaign.Title = *req.Title
	}
	if req.TemplateText != nil {
		campaign.TemplateText = *req.TemplateText
	}
	if req.Channel != nil {
		campaign.Channel = *req.Channel
		campaign.Channels = models.ExpandChannels(*req.Channel)
	}
	if req.WelcomeOfferUUID != nil {
		offer, err := f.resolveOffer(ctx, operator.SalonID, *req.WelcomeOfferUUID)
		if err != nil {
			return nil, err
		}
		campaign.WelcomeOfferID = &offer.ID
	}
	if req.ScheduledAt != nil {
		at := utils.TimeToUTC(*req.ScheduledAt)
		if !at.After(utils.UTCNow()) {
			return nil, NewBusinessError("SCHEDULE_TIME_IN_PAST", "scheduled time must be in the future", ErrScheduleTimeInPast)
		}
		campaign.ScheduledAt = &at
		campaign.Status = models.CampaignStatusScheduled
	}

	if err := f.validateCampaignFields(campaign.Title, campaign.TemplateText, campaign.Channel); err != nil {
		return nil, err
	}

	if err := f.campaignRepo.Update(ctx, campaign); err != nil {
		return nil, NewBusinessError("CAMPAIGN_UPDATE_FAILED", "failed to update campaign", err)
	}

	f.createAuditLog(ctx, operator, models.AuditActionCampaignUpdated,
		fmt.Sprintf("campaign %s updated", campaign.UUID), metadata, true, nil)

	info := toCampaignInfo(campaign, nil)
	return &info, nil
}

// GetCampaign returns one campaign owned by the operator's salon
func (f *InviteCampaignFlowImpl) GetCampaign(ctx context.Context, operator *models.Operator, campaignUUID string) (*dto.CampaignInfo, error) {
	campaign, err := f.ownedCampaign(ctx, operator, campaignUUID)
	if err != nil {
		return nil, err
	}

	info := toCampaignInfo(campaign, nil)
	return &info, nil
}

// ListCampaigns returns a page of the salon's campaigns, newest first
func (f *InviteCampaignFlowImpl) ListCampaigns(ctx context.Context, operator *models.Operator, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResult, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		return nil, NewBusinessError("INVALID_PAGE_SIZE", "page size must be between 1 and 100", ErrInvalidPageSize)
	}

	filter := models.InviteCampaignFilter{
		SalonID:            &operator.SalonID,
		OrderByCreatedDesc: true,
	}
	if req.Status != nil {
		status := models.CampaignStatus(*req.Status)
		filter.Status = &status
	}
	total, err := f.campaignRepo.CountByFilter(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "failed to count campaigns", err)
	}

	limit := pageSize
	offset := (page - 1) * pageSize
	filter.Limit = &limit
	filter.Offset = &offset

	campaigns, err := f.campaignRepo.ByFilter(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "failed to list campaigns", err)
	}

	items := make([]dto.CampaignInfo, 0, len(campaigns))
	for _, c := range campaigns {
		items = append(items, toCampaignInfo(c, nil))
	}

	return &dto.ListCampaignsResult{
		Items: items,
		Pagination: dto.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	}, nil
}

// LaunchCampaign moves a draft or scheduled campaign into sending and starts
// the dispatch loop in the background
func (f *InviteCampaignFlowImpl) LaunchCampaign(ctx context.Context, operator *models.Operator, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignInfo, error) {
	campaign, err := f.ownedCampaign(ctx, operator, campaignUUID)
	if err != nil {
		return nil, err
	}

	if err := f.launch(ctx, campaign); err != nil {
		f.createAuditLog(ctx, operator, models.AuditActionCampaignLaunched,
			fmt.Sprintf("campaign %s launch rejected", campaign.UUID), metadata, false, err)
		return nil, err
	}

	f.createAuditLog(ctx, operator, models.AuditActionCampaignLaunched,
		fmt.Sprintf("campaign %s launched with %d targets", campaign.UUID, campaign.TotalTargets), metadata, true, nil)

	info := toCampaignInfo(campaign, nil)
	return &info, nil
}

// LaunchDue launches a due scheduled campaign on behalf of the scheduler
func (f *InviteCampaignFlowImpl) LaunchDue(ctx context.Context, campaign *models.InviteCampaign) error {
	return f.launch(ctx, campaign)
}

func (f *InviteCampaignFlowImpl) launch(ctx context.Context, campaign *models.InviteCampaign) error {
	if !campaign.IsLaunchable() {
		return NewBusinessErrorf("CAMPAIGN_INVALID_STATE", "campaign in status %s cannot be launched", ErrCampaignInvalidState, campaign.Status)
	}

	customers, err := f.customerRepo.ListInvitable(ctx, campaign.SalonID)
	if err != nil {
		return NewBusinessError("CAMPAIGN_LAUNCH_FAILED", "failed to load campaign targets", err)
	}
	if len(customers) == 0 {
		return NewBusinessError("CAMPAIGN_NO_TARGETS", "campaign has no eligible customers", ErrCampaignNoTargets)
	}

	from := campaign.Status
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		moved, err := f.campaignRepo.UpdateStatus(txCtx, campaign.ID, from, models.CampaignStatusSending)
		if err != nil {
			return err
		}
		if !moved {
			return ErrCampaignInvalidState
		}

		campaign.Status = models.CampaignStatusSending
		campaign.StartedAt = utils.UTCNowPtr()
		campaign.TotalTargets = uint(len(customers))
		campaign.Channels = models.ExpandChannels(campaign.Channel)
		return f.campaignRepo.Update(txCtx, campaign)
	})
	if err != nil {
		if IsCampaignInvalidState(err) {
			return NewBusinessError("CAMPAIGN_INVALID_STATE", "campaign was launched concurrently", err)
		}
		return NewBusinessError("CAMPAIGN_LAUNCH_FAILED", "failed to start campaign", err)
	}

	f.startDispatch(campaign)
	return nil
}

// PauseCampaign requests a cooperative stop of the dispatch loop
func (f *InviteCampaignFlowImpl) PauseCampaign(ctx context.Context, operator *models.Operator, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignInfo, error) {
	campaign, err := f.ownedCampaign(ctx, operator, campaignUUID)
	if err != nil {
		return nil, err
	}

	moved, err := f.campaignRepo.UpdateStatus(ctx, campaign.ID, models.CampaignStatusSending, models.CampaignStatusPaused)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_PAUSE_FAILED", "failed to pause campaign", err)
	}
	if !moved {
		return nil, NewBusinessErrorf("CAMPAIGN_INVALID_STATE", "campaign in status %s cannot be paused", ErrCampaignInvalidState, campaign.Status)
	}

	campaign.Status = models.CampaignStatusPaused

	f.createAuditLog(ctx, operator, models.AuditActionCampaignPaused,
		fmt.Sprintf("campaign %s paused", campaign.UUID), metadata, true, nil)

	info := toCampaignInfo(campaign, nil)
	return &info, nil
}

// ResumeCampaign restarts dispatch for the targets not yet processed
func (f *InviteCampaignFlowImpl) ResumeCampaign(ctx context.Context, operator *models.Operator, campaignUUID string, metadata *ClientMetadata) (*dto.CampaignInfo, error) {
	campaign, err := f.ownedCampaign(ctx, operator, campaignUUID)
	if err != nil {
		return nil, err
	}

	moved, err := f.campaignRepo.UpdateStatus(ctx, campaign.ID, models.CampaignStatusPaused, models.CampaignStatusSending)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_RESUME_FAILED", "failed to resume campaign", err)
	}
	if !moved {
		return nil, NewBusinessErrorf("CAMPAIGN_INVALID_STATE", "campaign in status %s cannot be resumed", ErrCampaignInvalidState, campaign.Status)
	}

	campaign.Status = models.CampaignStatusSending

	f.createAuditLog(ctx, operator, models.AuditActionCampaignResumed,
		fmt.Sprintf("campaign %s resumed", campaign.UUID), metadata, true, nil)

	f.startDispatch(campaign)

	info := toCampaignInfo(campaign, nil)
	return &info, nil
}

// DeleteCampaign removes a campaign. A campaign that is currently sending
// must be paused first.
func (f *InviteCampaignFlowImpl) DeleteCampaign(ctx context.Context, operator *models.Operator, campaignUUID string, metadata *ClientMetadata) error {
	campaign, err := f.ownedCampaign(ctx, operator, campaignUUID)
	if err != nil {
		return err
	}

	if campaign.Status == models.CampaignStatusSending {
		return NewBusinessError("CAMPAIGN_INVALID_STATE", "campaign cannot be deleted while sending", ErrCampaignInvalidState)
	}

	deleted, err := f.campaignRepo.Delete(ctx, campaign.ID)
	if err != nil {
		return NewBusinessError("CAMPAIGN_DELETE_FAILED", "failed to delete campaign", err)
	}
	if !deleted {
		// The dispatch loop won the race and the row is sending now.
		return NewBusinessError("CAMPAIGN_INVALID_STATE", "campaign cannot be deleted while sending", ErrCampaignInvalidState)
	}

	f.createAuditLog(ctx, operator, models.AuditActionCampaignDeleted,
		fmt.Sprintf("campaign %s deleted", campaign.UUID), metadata, true, nil)

	return nil
}

// GetCampaignStats returns aggregate delivery statistics, served from a
// short-lived cache when available
func (f *InviteCampaignFlowImpl) GetCampaignStats(ctx context.Context, operator *models.Operator, campaignUUID string) (*dto.CampaignStatsResult, error) {
	campaign, err := f.ownedCampaign(ctx, operator, campaignUUID)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("campaign_stats:%s", campaign.UUID)
	var cached dto.CampaignStatsResult
	if found, err := f.statsCache.Get(ctx, cacheKey, &cached); err == nil && found {
		return &cached, nil
	}

	aggregates, err := f.messageRepo.AggregateByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_STATS_FAILED", "failed to aggregate campaign messages", err)
	}

	stats := dto.CampaignStatsResult{
		CampaignUUID: campaign.UUID.String(),
		Status:       string(campaign.Status),
		TotalTargets: campaign.TotalTargets,
	}
	var sentTotal, deliveredTotal uint
	for _, agg := range aggregates {
		switch agg.Status {
		case models.MessageStatusPending:
			stats.PendingCount = agg.Count
		case models.MessageStatusSent:
			stats.SentCount = agg.Count
		case models.MessageStatusDelivered:
			stats.DeliveredCount = agg.Count
		case models.MessageStatusRead:
			stats.ReadCount = agg.Count
		case models.MessageStatusFailed:
			stats.FailedCount = agg.Count
		}
		if agg.Status.CountsAsSent() {
			sentTotal += agg.Count
		}
		if agg.Status.CountsAsDelivered() {
			deliveredTotal += agg.Count
		}
	}
	if sentTotal > 0 {
		stats.DeliveryRate = math.Round(float64(deliveredTotal)/float64(sentTotal)*100) / 100
	}

	if err := f.statsCache.Set(ctx, cacheKey, &stats, f.statsTTL); err != nil {
		log.Printf("campaign stats cache write failed: %v", err)
	}

	return &stats, nil
}

// WaitDispatch blocks until all running dispatch loops have finished
func (f *InviteCampaignFlowImpl) WaitDispatch() {
	f.dispatchWG.Wait()
}

// startDispatch runs the dispatch loop in a background goroutine.
// The loop owns its own context; cancelling the API request that
// triggered the launch must not stop sending.
func (f *InviteCampaignFlowImpl) startDispatch(campaign *models.InviteCampaign) {
	f.dispatchWG.Add(1)
	dispatchLoopsActive.Inc()

	go func() {
		defer f.dispatchWG.Done()
		defer dispatchLoopsActive.Dec()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("dispatch loop for campaign %s panicked: %v", campaign.UUID, r)
				// The sending status is the re-entrance lock; a campaign
				// stuck in it would block pause, resume and delete forever.
				f.finishCampaign(context.Background(), campaign, true)
			}
		}()

		f.runDispatchLoop(context.Background(), campaign)
	}()
}

// runDispatchLoop walks the campaign's targets one at a time, creating a
// ledger row per channel attempt. The persisted campaign status is the
// single source of truth: a pause observed at a customer boundary stops
// the loop without touching rows already written.
func (f *InviteCampaignFlowImpl) runDispatchLoop(ctx context.Context, campaign *models.InviteCampaign) {
	salon, err := f.salonRepo.ByID(ctx, campaign.SalonID)
	if err != nil || salon == nil {
		log.Printf("dispatch: failed to load salon %d for campaign %s: %v", campaign.SalonID, campaign.UUID, err)
		f.finishCampaign(ctx, campaign, true)
		return
	}

	var offer *models.WelcomeOffer
	if campaign.WelcomeOfferID != nil {
		offer, err = f.offerRepo.ByID(ctx, *campaign.WelcomeOfferID)
		if err != nil {
			log.Printf("dispatch: failed to load offer for campaign %s: %v", campaign.UUID, err)
		}
	}

	customers, err := f.customerRepo.ListInvitable(ctx, campaign.SalonID)
	if err != nil {
		log.Printf("dispatch: failed to load targets for campaign %s: %v", campaign.UUID, err)
		f.finishCampaign(ctx, campaign, true)
		return
	}

	// Rows already written by a previous run (before a pause) must not be
	// re-sent on resume.
	handled, err := f.handledChannels(ctx, campaign.ID)
	if err != nil {
		log.Printf("dispatch: failed to load ledger for campaign %s: %v", campaign.UUID, err)
		f.finishCampaign(ctx, campaign, true)
		return
	}

	interrupted := false
	for _, customer := range customers {
		status, err := f.campaignRepo.CurrentStatus(ctx, campaign.ID)
		if err != nil {
			log.Printf("dispatch: failed to read status for campaign %s: %v", campaign.UUID, err)
			interrupted = true
			break
		}
		if status != models.CampaignStatusSending {
			// Paused or externally finished; stop at the customer boundary
			// with the tally so far visible on the campaign row.
			f.recomputeCounters(ctx, campaign)
			return
		}

		for _, channel := range campaign.Channels {
			if handled[channelKey(customer.ID, channel)] {
				continue
			}

			destination := customer.Phone
			if channel == models.ChannelChat {
				if !customer.HasChatChannel() {
					f.recordMissingDestination(ctx, campaign, customer, channel)
					continue
				}
				destination = *customer.ChatID
			}

			body := f.renderBody(campaign, salon, offer, customer)
			f.sendOne(ctx, campaign, customer, channel, destination, body)

			if f.dispatchCfg.SendDelay > 0 {
				time.Sleep(f.dispatchCfg.SendDelay)
			}
		}

		// Invited regardless of outcomes; failed attempts are not retried.
		now := utils.UTCNow()
		if err := f.customerRepo.UpdateStatus(ctx, customer.ID, models.CustomerStatusInvited, &now); err != nil {
			log.Printf("dispatch: failed to mark customer %d invited: %v", customer.ID, err)
		}

		f.recomputeCounters(ctx, campaign)
	}

	f.finishCampaign(ctx, campaign, interrupted)
}

// sendOne writes the pending ledger row, calls the gateway and finalizes the row
func (f *InviteCampaignFlowImpl) sendOne(ctx context.Context, campaign *models.InviteCampaign, customer *models.ImportedCustomer, channel, destination, body string) {
	message := &models.InviteMessage{
		UUID:        uuid.New(),
		CampaignID:  campaign.ID,
		CustomerID:  customer.ID,
		Channel:     channel,
		Destination: destination,
		Body:        body,
		Status:      models.MessageStatusPending,
		CreatedAt:   utils.UTCNow(),
		UpdatedAt:   utils.UTCNow(),
	}
	if err := f.messageRepo.Save(ctx, message); err != nil {
		log.Printf("dispatch: failed to write ledger row for campaign %s customer %d: %v", campaign.UUID, customer.ID, err)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, f.dispatchCfg.SendTimeout)
	result, err := f.gateway.Send(sendCtx, channel, destination, body)
	cancel()

	switch {
	case err != nil:
		reason := err.Error()
		message.Status = models.MessageStatusFailed
		message.FailureReason = &reason
		messagesDispatchedTotal.WithLabelValues(channel, "error").Inc()
	case !result.Accepted:
		message.Status = models.MessageStatusFailed
		message.FailureReason = result.FailureReason
		messagesDispatchedTotal.WithLabelValues(channel, "rejected").Inc()
	default:
		message.Status = models.MessageStatusSent
		message.ProviderMessageID = result.ProviderMessageID
		message.SentAt = utils.UTCNowPtr()
		if result.Delivered {
			// Some providers confirm delivery in the send response itself.
			message.Status = models.MessageStatusDelivered
			message.DeliveredAt = utils.UTCNowPtr()
		}
		messagesDispatchedTotal.WithLabelValues(channel, "sent").Inc()
	}

	if err := f.messageRepo.Update(ctx, message); err != nil {
		log.Printf("dispatch: failed to finalize ledger row %s: %v", message.UUID, err)
	}
}

// recordMissingDestination writes a failed ledger row for a channel the
// customer cannot receive, so the attempt still shows up in the aggregates
func (f *InviteCampaignFlowImpl) recordMissingDestination(ctx context.Context, campaign *models.InviteCampaign, customer *models.ImportedCustomer, channel string) {
	reason := "no chat destination"
	message := &models.InviteMessage{
		UUID:          uuid.New(),
		CampaignID:    campaign.ID,
		CustomerID:    customer.ID,
		Channel:       channel,
		Destination:   "",
		Status:        models.MessageStatusFailed,
		FailureReason: &reason,
		CreatedAt:     utils.UTCNow(),
		UpdatedAt:     utils.UTCNow(),
	}
	if err := f.messageRepo.Save(ctx, message); err != nil {
		log.Printf("dispatch: failed to write ledger row for campaign %s customer %d: %v", campaign.UUID, customer.ID, err)
		return
	}
	messagesDispatchedTotal.WithLabelValues(channel, "rejected").Inc()
}

// finishCampaign recomputes counters from the ledger and moves the campaign
// out of sending
func (f *InviteCampaignFlowImpl) finishCampaign(ctx context.Context, campaign *models.InviteCampaign, interrupted bool) {
	f.recomputeCounters(ctx, campaign)

	// Per-message failures never fail the campaign; failed is reserved for
	// fatal setup errors and loop-level exceptions.
	target := models.CampaignStatusCompleted
	if interrupted {
		target = models.CampaignStatusFailed
	}

	moved, err := f.campaignRepo.UpdateStatus(ctx, campaign.ID, models.CampaignStatusSending, target)
	if err != nil {
		log.Printf("dispatch: failed to finish campaign %s: %v", campaign.UUID, err)
		return
	}
	if moved {
		campaign.Status = target
		campaign.FinishedAt = utils.UTCNowPtr()
	}

	cacheKey := fmt.Sprintf("campaign_stats:%s", campaign.UUID)
	if err := f.statsCache.Invalidate(ctx, cacheKey); err != nil {
		log.Printf("dispatch: failed to invalidate stats cache for %s: %v", campaign.UUID, err)
	}
}

// recomputeCounters derives campaign counters from the message ledger and
// persists them. Sent counts every row that left the platform, delivered
// only provider-confirmed rows.
func (f *InviteCampaignFlowImpl) recomputeCounters(ctx context.Context, campaign *models.InviteCampaign) {
	aggregates, err := f.messageRepo.AggregateByCampaign(ctx, campaign.ID)
	if err != nil {
		log.Printf("dispatch: failed to recompute counters for campaign %s: %v", campaign.UUID, err)
		return
	}

	var sent, delivered, failed uint
	for _, agg := range aggregates {
		if agg.Status.CountsAsSent() {
			sent += agg.Count
		}
		if agg.Status.CountsAsDelivered() {
			delivered += agg.Count
		}
		if agg.Status == models.MessageStatusFailed {
			failed += agg.Count
		}
	}

	campaign.SentCount = sent
	campaign.DeliveredCount = delivered
	campaign.FailedCount = failed
	if err := f.campaignRepo.UpdateCounters(ctx, campaign.ID, sent, delivered, failed); err != nil {
		log.Printf("dispatch: failed to persist counters for campaign %s: %v", campaign.UUID, err)
	}
}

// handledChannels returns the (customer, channel) pairs that already have a
// ledger row for this campaign
func (f *InviteCampaignFlowImpl) handledChannels(ctx context.Context, campaignID uint) (map[string]bool, error) {
	messages, err := f.messageRepo.ByFilter(ctx, models.InviteMessageFilter{CampaignID: &campaignID})
	if err != nil {
		return nil, err
	}

	handled := make(map[string]bool, len(messages))
	for _, m := range messages {
		handled[channelKey(m.CustomerID, m.Channel)] = true
	}
	return handled, nil
}

func channelKey(customerID uint, channel string) string {
	return fmt.Sprintf("%d:%s", customerID, channel)
}

// renderBody substitutes the template placeholders for one customer
func (f *InviteCampaignFlowImpl) renderBody(campaign *models.InviteCampaign, salon *models.Salon, offer *models.WelcomeOffer, customer *models.ImportedCustomer) string {
	// Every placeholder is supplied, empty when unavailable, so campaigns
	// without an offer still render cleanly.
	values := map[string]string{
		utils.PlaceholderCustomerName: customer.FullName,
		utils.PlaceholderSalonName:    salon.Name,
		utils.PlaceholderOfferAmount:  "",
		utils.PlaceholderOfferCode:    "",
		utils.PlaceholderDownloadLink: "",
		utils.PlaceholderExpiryDays:   "",
	}
	if offer != nil {
		values[utils.PlaceholderOfferAmount] = offer.DiscountText
		values[utils.PlaceholderOfferCode] = offer.Code
		values[utils.PlaceholderExpiryDays] = strconv.FormatUint(uint64(offer.ValidDays), 10)
	}
	if salon.DownloadLink != nil {
		values[utils.PlaceholderDownloadLink] = *salon.DownloadLink
	}
	return utils.RenderTemplate(campaign.TemplateText, values)
}

func (f *InviteCampaignFlowImpl) validateCampaignFields(title, template, channel string) error {
	if title == "" {
		return NewBusinessError("CAMPAIGN_TITLE_REQUIRED", "campaign title is required", ErrCampaignTitleRequired)
	}
	if template == "" {
		return NewBusinessError("CAMPAIGN_TEMPLATE_REQUIRED", "campaign template is required", ErrCampaignTemplateRequired)
	}
	if len(template) > utils.MaxTemplateLength {
		return NewBusinessError("CAMPAIGN_TEMPLATE_TOO_LONG", "campaign template is too long", ErrCampaignTemplateTooLong)
	}
	if !models.ValidChannel(channel) {
		return NewBusinessErrorf("CAMPAIGN_CHANNEL_INVALID", "channel %q is invalid", ErrCampaignChannelInvalid, channel)
	}
	return nil
}

func (f *InviteCampaignFlowImpl) resolveOffer(ctx context.Context, salonID uint, offerUUID string) (*models.WelcomeOffer, error) {
	id, err := uuid.Parse(offerUUID)
	if err != nil {
		return nil, NewBusinessError("WELCOME_OFFER_NOT_FOUND", "welcome offer not found", ErrWelcomeOfferNotFound)
	}

	offer, err := f.offerRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("WELCOME_OFFER_LOOKUP_FAILED", "failed to look up welcome offer", err)
	}
	if offer == nil || offer.SalonID != salonID {
		return nil, NewBusinessError("WELCOME_OFFER_NOT_FOUND", "welcome offer not found", ErrWelcomeOfferNotFound)
	}
	if !offer.IsUsable(utils.UTCNow()) {
		return nil, NewBusinessError("WELCOME_OFFER_EXPIRED", "welcome offer is expired or disabled", ErrWelcomeOfferExpired)
	}

	return offer, nil
}

// ownedCampaign loads a campaign and enforces salon ownership
func (f *InviteCampaignFlowImpl) ownedCampaign(ctx context.Context, operator *models.Operator, campaignUUID string) (*models.InviteCampaign, error) {
	id, err := uuid.Parse(campaignUUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "campaign not found", ErrCampaignNotFound)
	}

	campaign, err := f.campaignRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "failed to look up campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "campaign not found", ErrCampaignNotFound)
	}
	if campaign.SalonID != operator.SalonID {
		return nil, NewBusinessError("CAMPAIGN_ACCESS_DENIED", "campaign access denied", ErrCampaignAccessDenied)
	}

	return campaign, nil
}

// createAuditLog records an audit entry; failures are logged, never surfaced
func (f *InviteCampaignFlowImpl) createAuditLog(ctx context.Context, operator *models.Operator, action, description string, metadata *ClientMetadata, success bool, cause error) {
	auditLog := &models.AuditLog{
		OperatorID:  &operator.ID,
		Action:      action,
		Description: &description,
		Success:     &success,
		CreatedAt:   utils.UTCNow(),
	}
	if cause != nil {
		msg := cause.Error()
		auditLog.ErrorMessage = &msg
	}
	if metadata != nil {
		if metadata.IPAddress != "" {
			auditLog.IPAddress = &metadata.IPAddress
		}
		if metadata.UserAgent != "" {
			auditLog.UserAgent = &metadata.UserAgent
		}
		if metadata.RequestID != "" {
			auditLog.RequestID = &metadata.RequestID
		}
		if len(metadata.Additional) > 0 {
			if raw, err := json.Marshal(metadata.Additional); err == nil {
				auditLog.Metadata = raw
			}
		}
	}

	if err := f.auditRepo.Save(ctx, auditLog); err != nil {
		log.Printf("failed to write audit log (%s): %v", action, err)
	}
}

func toCampaignInfo(campaign *models.InviteCampaign, offerUUID *string) dto.CampaignInfo {
	return dto.CampaignInfo{
		UUID:             campaign.UUID.String(),
		Title:            campaign.Title,
		Status:           string(campaign.Status),
		Channel:          campaign.Channel,
		TemplateText:     campaign.TemplateText,
		WelcomeOfferUUID: offerUUID,
		ScheduledAt:      campaign.ScheduledAt,
		StartedAt:        campaign.StartedAt,
		FinishedAt:       campaign.FinishedAt,
		TotalTargets:     campaign.TotalTargets,
		SentCount:        campaign.SentCount,
		DeliveredCount:   campaign.DeliveredCount,
		FailedCount:      campaign.FailedCount,
		CreatedAt:        campaign.CreatedAt,
	}
}
