package businessflow

import (
	"context"

	"github.com/glowdesk/invite-engine/app/dto"
	"github.com/glowdesk/invite-engine/models"
	"github.com/glowdesk/invite-engine/repository"
	"github.com/glowdesk/invite-engine/utils"
	"github.com/google/uuid"
)

// WelcomeOfferFlow defines welcome offer operations
type WelcomeOfferFlow interface {
	CreateOffer(ctx context.Context, operator *models.Operator, req *dto.CreateWelcomeOfferRequest) (*dto.WelcomeOfferInfo, error)
	ListOffers(ctx context.Context, operator *models.Operator, activeOnly bool) ([]dto.WelcomeOfferInfo, error)
	DisableOffer(ctx context.Context, operator *models.Operator, offerUUID string) error
}

// WelcomeOfferFlowImpl implements WelcomeOfferFlow
type WelcomeOfferFlowImpl struct {
	offerRepo repository.WelcomeOfferRepository
}

// NewWelcomeOfferFlow creates a new welcome offer flow instance
func NewWelcomeOfferFlow(offerRepo repository.WelcomeOfferRepository) WelcomeOfferFlow {
	return &WelcomeOfferFlowImpl{offerRepo: offerRepo}
}

func (f *WelcomeOfferFlowImpl) CreateOffer(ctx context.Context, operator *models.Operator, req *dto.CreateWelcomeOfferRequest) (*dto.WelcomeOfferInfo, error) {
	validDays := req.ValidDays
	if validDays == 0 {
		validDays = 30
	}

	offer := &models.WelcomeOffer{
		UUID:         uuid.New(),
		SalonID:      operator.SalonID,
		Title:        req.Title,
		DiscountText: req.DiscountText,
		Code:         req.Code,
		ValidDays:    validDays,
		ExpiresAt:    utils.TimeToUTCPtr(req.ExpiresAt),
		IsActive:     utils.ToPtr(true),
		CreatedAt:    utils.UTCNow(),
		UpdatedAt:    utils.UTCNow(),
	}

	if err := f.offerRepo.Save(ctx, offer); err != nil {
		return nil, NewBusinessError("WELCOME_OFFER_CREATE_FAILED", "failed to create welcome offer", err)
	}

	info := toWelcomeOfferInfo(offer)
	return &info, nil
}

func (f *WelcomeOfferFlowImpl) ListOffers(ctx context.Context, operator *models.Operator, activeOnly bool) ([]dto.WelcomeOfferInfo, error) {
	offers, err := f.offerRepo.ListBySalon(ctx, operator.SalonID, activeOnly)
	if err != nil {
		return nil, NewBusinessError("WELCOME_OFFER_LIST_FAILED", "failed to list welcome offers", err)
	}

	items := make([]dto.WelcomeOfferInfo, 0, len(offers))
	for _, o := range offers {
		items = append(items, toWelcomeOfferInfo(o))
	}
	return items, nil
}

func (f *WelcomeOfferFlowImpl) DisableOffer(ctx context.Context, operator *models.Operator, offerUUID string) error {
	id, err := uuid.Parse(offerUUID)
	if err != nil {
		return NewBusinessError("WELCOME_OFFER_NOT_FOUND", "welcome offer not found", ErrWelcomeOfferNotFound)
	}

	offer, err := f.offerRepo.ByUUID(ctx, id)
	if err != nil {
		return NewBusinessError("WELCOME_OFFER_LOOKUP_FAILED", "failed to look up welcome offer", err)
	}
	if offer == nil || offer.SalonID != operator.SalonID {
		return NewBusinessError("WELCOME_OFFER_NOT_FOUND", "welcome offer not found", ErrWelcomeOfferNotFound)
	}

	offer.IsActive = utils.ToPtr(false)
	if err := f.offerRepo.Update(ctx, offer); err != nil {
		return NewBusinessError("WELCOME_OFFER_UPDATE_FAILED", "failed to disable welcome offer", err)
	}
	return nil
}

func toWelcomeOfferInfo(offer *models.WelcomeOffer) dto.WelcomeOfferInfo {
	return dto.WelcomeOfferInfo{
		UUID:         offer.UUID.String(),
		Title:        offer.Title,
		DiscountText: offer.DiscountText,
		Code:         offer.Code,
		ValidDays:    offer.ValidDays,
		ExpiresAt:    offer.ExpiresAt,
		IsActive:     utils.IsTrue(offer.IsActive),
		CreatedAt:    offer.CreatedAt,
	}
}
