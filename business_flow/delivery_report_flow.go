package businessflow

import (
	"context"
	"log"
	"strings"

	"github.com/glowdesk/invite-engine/app/dto"
	"github.com/glowdesk/invite-engine/models"
	"github.com/glowdesk/invite-engine/repository"
	"github.com/glowdesk/invite-engine/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var deliveryReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "invite_delivery_reports_total",
	Help: "Delivery webhooks received, by outcome",
}, []string{"outcome"})

// DeliveryReportFlow reconciles provider delivery webhooks into the message ledger
type DeliveryReportFlow interface {
	ApplyReport(ctx context.Context, req *dto.DeliveryReportRequest) (*dto.DeliveryReportResult, error)
}

// DeliveryReportFlowImpl implements DeliveryReportFlow
type DeliveryReportFlowImpl struct {
	messageRepo  repository.InviteMessageRepository
	campaignRepo repository.InviteCampaignRepository
	db           *gorm.DB
}

// NewDeliveryReportFlow creates a new delivery report flow instance
func NewDeliveryReportFlow(
	messageRepo repository.InviteMessageRepository,
	campaignRepo repository.InviteCampaignRepository,
	db *gorm.DB,
) DeliveryReportFlow {
	return &DeliveryReportFlowImpl{
		messageRepo:  messageRepo,
		campaignRepo: campaignRepo,
		db:           db,
	}
}

// ApplyReport maps a provider status onto the ledger row identified by the
// provider message ID. Reports arrive at-least-once and out of order, so the
// mapping never regresses a row: read and failed rows are final, a delivered
// row only advances to read, and a bare "sent" confirmation never downgrades
// a row the provider already advanced.
func (f *DeliveryReportFlowImpl) ApplyReport(ctx context.Context, req *dto.DeliveryReportRequest) (*dto.DeliveryReportResult, error) {
	target, known := mapProviderStatus(req.Status)
	if !known {
		deliveryReportsTotal.WithLabelValues("unknown_status").Inc()
		log.Printf("delivery report with unknown status %q for %s", req.Status, req.ProviderMessageID)
		return &dto.DeliveryReportResult{Applied: false}, NewBusinessErrorf("UNKNOWN_DELIVERY_STATUS", "unknown delivery status %q", ErrUnknownDeliveryStatus, req.Status)
	}

	message, err := f.messageRepo.ByProviderMessageID(ctx, req.ProviderMessageID)
	if err != nil {
		deliveryReportsTotal.WithLabelValues("error").Inc()
		return nil, NewBusinessError("DELIVERY_LOOKUP_FAILED", "failed to look up message", err)
	}
	if message == nil {
		// Unknown IDs happen when providers replay reports for purged
		// campaigns; acknowledged so the provider stops retrying.
		deliveryReportsTotal.WithLabelValues("unknown_id").Inc()
		log.Printf("delivery report for unknown provider message id %s", req.ProviderMessageID)
		return &dto.DeliveryReportResult{Applied: false}, NewBusinessError("UNKNOWN_PROVIDER_MESSAGE_ID", "unknown provider message id", ErrUnknownProviderMessageID)
	}

	if !f.shouldApply(message.Status, target) {
		deliveryReportsTotal.WithLabelValues("ignored").Inc()
		return &dto.DeliveryReportResult{Applied: false}, nil
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		message.Status = target
		switch target {
		case models.MessageStatusDelivered, models.MessageStatusRead:
			if message.DeliveredAt == nil {
				if req.OccurredAt != nil {
					message.DeliveredAt = utils.TimeToUTCPtr(req.OccurredAt)
				} else {
					message.DeliveredAt = utils.UTCNowPtr()
				}
			}
		case models.MessageStatusFailed:
			message.FailureReason = req.Reason
		}
		if err := f.messageRepo.Update(txCtx, message); err != nil {
			return err
		}
		f.refreshCampaignCounters(txCtx, message.CampaignID)
		return nil
	})
	if err != nil {
		deliveryReportsTotal.WithLabelValues("error").Inc()
		return nil, NewBusinessError("DELIVERY_APPLY_FAILED", "failed to apply delivery report", err)
	}

	deliveryReportsTotal.WithLabelValues("applied").Inc()
	return &dto.DeliveryReportResult{Applied: true}, nil
}

// shouldApply decides whether a report moves the row
func (f *DeliveryReportFlowImpl) shouldApply(current, target models.MessageStatus) bool {
	if current.IsTerminal() {
		return false
	}
	if target == current {
		return false
	}
	// A delivered row only advances to read; a late failure report must not
	// undo a confirmed delivery.
	if current == models.MessageStatusDelivered && target != models.MessageStatusRead {
		return false
	}
	// A "sent" confirmation is a no-op refresh once the row advanced past sent.
	if target == models.MessageStatusSent && current != models.MessageStatusPending {
		return false
	}
	return true
}

// refreshCampaignCounters recomputes aggregate counters from the ledger.
// Runs inside the report transaction; a recompute failure only logs, the
// next report or the dispatch loop's final tally converges the counters.
func (f *DeliveryReportFlowImpl) refreshCampaignCounters(ctx context.Context, campaignID uint) {
	aggregates, err := f.messageRepo.AggregateByCampaign(ctx, campaignID)
	if err != nil {
		log.Printf("delivery report: failed to aggregate campaign %d: %v", campaignID, err)
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

	if err := f.campaignRepo.UpdateCounters(ctx, campaignID, sent, delivered, failed); err != nil {
		log.Printf("delivery report: failed to persist counters for campaign %d: %v", campaignID, err)
	}
}

// mapProviderStatus translates provider vocabulary into ledger statuses
func mapProviderStatus(status string) (models.MessageStatus, bool) {
	switch strings.ToLower(status) {
	case "delivered":
		return models.MessageStatusDelivered, true
	case "read":
		return models.MessageStatusRead, true
	case "failed", "undelivered":
		return models.MessageStatusFailed, true
	case "sent", "queued":
		return models.MessageStatusSent, true
	}
	return "", false
}
