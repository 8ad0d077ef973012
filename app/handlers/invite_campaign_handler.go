package handlers

import (
	"errors"
	"log"

	"github.com/glowdesk/invite-engine/app/dto"
	businessflow "github.com/glowdesk/invite-engine/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// InviteCampaignHandlerInterface defines the contract for campaign handlers
type InviteCampaignHandlerInterface interface {
	Create(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Launch(c fiber.Ctx) error
	Pause(c fiber.Ctx) error
	Resume(c fiber.Ctx) error
	Stats(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
}

// InviteCampaignHandler handles campaign lifecycle HTTP requests
type InviteCampaignHandler struct {
	campaignFlow businessflow.InviteCampaignFlow
	validator    *validator.Validate
}

// NewInviteCampaignHandler creates a new campaign handler
func NewInviteCampaignHandler(campaignFlow businessflow.InviteCampaignFlow) *InviteCampaignHandler {
	return &InviteCampaignHandler{
		campaignFlow: campaignFlow,
		validator:    validator.New(),
	}
}

// Create creates a draft or scheduled invitation campaign
// @Summary Create Campaign
// @Description Create a new invitation campaign for the operator's salon
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body dto.CreateCampaignRequest true "Campaign data"
// @Success 201 {object} dto.APIResponse{data=dto.CampaignInfo} "Campaign created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Router /api/v1/campaigns [post]
func (h *InviteCampaignHandler) Create(c fiber.Ctx) error {
	operator, err := operatorFromContext(c)
	if err != nil {
		return err
	}

	var req dto.CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.campaignFlow.CreateCampaign(createRequestContext(c, "/api/v1/campaigns"), operator, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsWelcomeOfferNotFound(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Welcome offer not found", "WELCOME_OFFER_NOT_FOUND", nil)
		}

		return h.campaignErrorResponse(c, err, "Campaign creation failed", "CAMPAIGN_CREATE_FAILED")
	}

	return successResponse(c, fiber.StatusCreated, "Campaign created", result)
}

// Update applies a partial update to a draft or scheduled campaign
// @Summary Update Campaign
// @Description Update a draft or scheduled campaign
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.UpdateCampaignRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignInfo} "Campaign updated"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid state"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid} [put]
func (h *InviteCampaignHandler) Update(c fiber.Ctx) error {
	operator, err := operatorFromContext(c)
	if err != nil {
		return err
	}

	var req dto.UpdateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.campaignFlow.UpdateCampaign(createRequestContext(c, "/api/v1/campaigns/:uuid"), operator, c.Params("uuid"), &req, clientMetadata(c))
	if err != nil {
		return h.campaignErrorResponse(c, err, "Campaign update failed", "CAMPAIGN_UPDATE_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Campaign updated", result)
}

// Get returns one campaign
// @Summary Get Campaign
// @Description Get one campaign owned by the operator's salon
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignInfo} "Campaign"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid} [get]
func (h *InviteCampaignHandler) Get(c fiber.Ctx) error {
	operator, err := operatorFromContext(c)
	if err != nil {
		return err
	}

	result, err := h.campaignFlow.GetCampaign(createRequestContext(c, "/api/v1/campaigns/:uuid"), operator, c.Params("uuid"))
	if err != nil {
		return h.campaignErrorResponse(c, err, "Campaign lookup failed", "CAMPAIGN_LOOKUP_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Campaign", result)
}

// List returns a page of the salon's campaigns
// @Summary List Campaigns
// @Description List the salon's campaigns, newest first
// @Tags Campaigns
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param status query string false "Filter by status"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResult} "Campaigns"
// @Router /api/v1/campaigns [get]
func (h *InviteCampaignHandler) List(c fiber.Ctx) error {
	operator, err := operatorFromContext(c)
	if err != nil {
		return err
	}

	var req dto.ListCampaignsRequest
	if err := c.Bind().Query(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.campaignFlow.ListCampaigns(createRequestContext(c, "/api/v1/campaigns"), operator, &req)
	if err != nil {
		return h.campaignErrorResponse(c, err, "Campaign listing failed", "CAMPAIGN_LIST_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Campaigns", result)
}

// Launch starts sending a draft or scheduled campaign
// @Summary Launch Campaign
// @Description Start dispatching a draft or scheduled campaign immediately
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignInfo} "Campaign launched"
// @Failure 400 {object} dto.APIResponse "Invalid state or no targets"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid}/launch [post]
func (h *InviteCampaignHandler) Launch(c fiber.Ctx) error {
	operator, err := operatorFromContext(c)
	if err != nil {
		return err
	}

	result, err := h.campaignFlow.LaunchCampaign(createRequestContext(c, "/api/v1/campaigns/:uuid/launch"), operator, c.Params("uuid"), clientMetadata(c))
	if err != nil {
		if businessflow.IsCampaignNoTargets(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Campaign has no eligible customers", "CAMPAIGN_NO_TARGETS", nil)
		}

		return h.campaignErrorResponse(c, err, "Campaign launch failed", "CAMPAIGN_LAUNCH_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Campaign launched", result)
}

// Pause requests a cooperative stop of a sending campaign
// @Summary Pause Campaign
// @Description Pause a sending campaign at the next customer boundary
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignInfo} "Campaign paused"
// @Failure 400 {object} dto.APIResponse "Campaign is not sending"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid}/pause [post]
func (h *InviteCampaignHandler) Pause(c fiber.Ctx) error {
	operator, err := operatorFromContext(c)
	if err != nil {
		return err
	}

	result, err := h.campaignFlow.PauseCampaign(createRequestContext(c, "/api/v1/campaigns/:uuid/pause"), operator, c.Params("uuid"), clientMetadata(c))
	if err != nil {
		return h.campaignErrorResponse(c, err, "Campaign pause failed", "CAMPAIGN_PAUSE_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Campaign paused", result)
}

// Resume restarts dispatch for a paused campaign
// @Summary Resume Campaign
// @Description Resume a paused campaign; already-handled customers are skipped
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignInfo} "Campaign resumed"
// @Failure 400 {object} dto.APIResponse "Campaign is not paused"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid}/resume [post]
func (h *InviteCampaignHandler) Resume(c fiber.Ctx) error {
	operator, err := operatorFromContext(c)
	if err != nil {
		return err
	}

	result, err := h.campaignFlow.ResumeCampaign(createRequestContext(c, "/api/v1/campaigns/:uuid/resume"), operator, c.Params("uuid"), clientMetadata(c))
	if err != nil {
		return h.campaignErrorResponse(c, err, "Campaign resume failed", "CAMPAIGN_RESUME_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Campaign resumed", result)
}

// Delete removes a campaign that is not currently sending
// @Summary Delete Campaign
// @Description Delete a campaign; forbidden while sending
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse "Campaign deleted"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Campaign is sending"
// @Router /api/v1/campaigns/{uuid} [delete]
func (h *InviteCampaignHandler) Delete(c fiber.Ctx) error {
	operator, err := operatorFromContext(c)
	if err != nil {
		return err
	}

	if err := h.campaignFlow.DeleteCampaign(createRequestContext(c, "/api/v1/campaigns/:uuid"), operator, c.Params("uuid"), clientMetadata(c)); err != nil {
		return h.campaignErrorResponse(c, err, "Campaign delete failed", "CAMPAIGN_DELETE_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Campaign deleted", nil)
}

// Stats returns aggregate delivery statistics for one campaign
// @Summary Campaign Statistics
// @Description Get per-status message counts for one campaign
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignStatsResult} "Campaign statistics"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid}/stats [get]
func (h *InviteCampaignHandler) Stats(c fiber.Ctx) error {
	operator, err := operatorFromContext(c)
	if err != nil {
		return err
	}

	result, err := h.campaignFlow.GetCampaignStats(createRequestContext(c, "/api/v1/campaigns/:uuid/stats"), operator, c.Params("uuid"))
	if err != nil {
		return h.campaignErrorResponse(c, err, "Campaign statistics failed", "CAMPAIGN_STATS_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Campaign statistics", result)
}

// campaignErrorResponse maps shared campaign business errors onto HTTP responses
func (h *InviteCampaignHandler) campaignErrorResponse(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	if businessflow.IsCampaignNotFound(err) {
		return errorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
	}
	if businessflow.IsCampaignAccessDenied(err) {
		// Hidden as not-found so campaign UUIDs cannot be probed across salons
		return errorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
	}
	if businessflow.IsCampaignInvalidState(err) {
		return errorResponse(c, fiber.StatusConflict, "Campaign is not in a valid state for this operation", "CAMPAIGN_INVALID_STATE", nil)
	}

	var businessErr *businessflow.BusinessError
	if errors.As(err, &businessErr) {
		switch businessErr.Code {
		case "CAMPAIGN_TITLE_REQUIRED", "CAMPAIGN_TEMPLATE_REQUIRED", "CAMPAIGN_TEMPLATE_TOO_LONG",
			"CAMPAIGN_CHANNEL_INVALID", "SCHEDULE_TIME_IN_PAST", "INVALID_PAGE_SIZE", "WELCOME_OFFER_EXPIRED":
			return errorResponse(c, fiber.StatusBadRequest, businessErr.Message, businessErr.Code, nil)
		}
	}

	log.Println(fallbackMessage, err)
	return errorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}
