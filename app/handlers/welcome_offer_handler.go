package handlers

import (
	"log"

	"github.com/glowdesk/invite-engine/app/dto"
	businessflow "github.com/glowdesk/invite-engine/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// WelcomeOfferHandlerInterface defines the contract for welcome offer handlers
type WelcomeOfferHandlerInterface interface {
	Create(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Disable(c fiber.Ctx) error
}

// WelcomeOfferHandler handles welcome offer HTTP requests
type WelcomeOfferHandler struct {
	offerFlow businessflow.WelcomeOfferFlow
	validator *validator.Validate
}

// NewWelcomeOfferHandler creates a new welcome offer handler
func NewWelcomeOfferHandler(offerFlow businessflow.WelcomeOfferFlow) *WelcomeOfferHandler {
	return &WelcomeOfferHandler{
		offerFlow: offerFlow,
		validator: validator.New(),
	}
}

// Create creates a welcome offer for the operator's salon
// @Summary Create Welcome Offer
// @Description Create a welcome offer that campaigns can attach to invitations
// @Tags Welcome Offers
// @Accept json
// @Produce json
// @Param request body dto.CreateWelcomeOfferRequest true "Offer data"
// @Success 201 {object} dto.APIResponse{data=dto.WelcomeOfferInfo} "Offer created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/offers [post]
func (h *WelcomeOfferHandler) Create(c fiber.Ctx) error {
	operator, err := operatorFromContext(c)
	if err != nil {
		return err
	}

	var req dto.CreateWelcomeOfferRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.offerFlow.CreateOffer(createRequestContext(c, "/api/v1/offers"), operator, &req)
	if err != nil {
		log.Println("Welcome offer creation failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Welcome offer creation failed", "WELCOME_OFFER_CREATE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusCreated, "Welcome offer created", result)
}

// List returns the salon's welcome offers
// @Summary List Welcome Offers
// @Description List the salon's welcome offers
// @Tags Welcome Offers
// @Produce json
// @Param active_only query bool false "Return only active offers"
// @Success 200 {object} dto.APIResponse{data=[]dto.WelcomeOfferInfo} "Offers"
// @Router /api/v1/offers [get]
func (h *WelcomeOfferHandler) List(c fiber.Ctx) error {
	operator, err := operatorFromContext(c)
	if err != nil {
		return err
	}

	activeOnly := c.Query("active_only") == "true"

	result, err := h.offerFlow.ListOffers(createRequestContext(c, "/api/v1/offers"), operator, activeOnly)
	if err != nil {
		log.Println("Welcome offer listing failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Welcome offer listing failed", "WELCOME_OFFER_LIST_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Welcome offers", result)
}

// Disable deactivates a welcome offer
// @Summary Disable Welcome Offer
// @Description Deactivate a welcome offer so new campaigns cannot attach it
// @Tags Welcome Offers
// @Produce json
// @Param uuid path string true "Offer UUID"
// @Success 200 {object} dto.APIResponse "Offer disabled"
// @Failure 404 {object} dto.APIResponse "Offer not found"
// @Router /api/v1/offers/{uuid}/disable [post]
func (h *WelcomeOfferHandler) Disable(c fiber.Ctx) error {
	operator, err := operatorFromContext(c)
	if err != nil {
		return err
	}

	if err := h.offerFlow.DisableOffer(createRequestContext(c, "/api/v1/offers/:uuid/disable"), operator, c.Params("uuid")); err != nil {
		if businessflow.IsWelcomeOfferNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Welcome offer not found", "WELCOME_OFFER_NOT_FOUND", nil)
		}

		log.Println("Welcome offer disable failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Welcome offer disable failed", "WELCOME_OFFER_DISABLE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Welcome offer disabled", nil)
}
