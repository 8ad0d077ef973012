package handlers

import (
	"log"

	"github.com/glowdesk/invite-engine/app/dto"
	businessflow "github.com/glowdesk/invite-engine/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// DeliveryWebhookHandlerInterface defines the contract for provider webhook handlers
type DeliveryWebhookHandlerInterface interface {
	Receive(c fiber.Ctx) error
}

// DeliveryWebhookHandler receives delivery status callbacks from message providers
type DeliveryWebhookHandler struct {
	deliveryFlow businessflow.DeliveryReportFlow
	validator    *validator.Validate
}

// NewDeliveryWebhookHandler creates a new delivery webhook handler
func NewDeliveryWebhookHandler(deliveryFlow businessflow.DeliveryReportFlow) *DeliveryWebhookHandler {
	return &DeliveryWebhookHandler{
		deliveryFlow: deliveryFlow,
		validator:    validator.New(),
	}
}

// Receive applies one delivery report to the message ledger.
// Providers retry on non-2xx, so every recognizable payload is answered with
// 200 even when the report cannot be applied.
// @Summary Delivery Report Webhook
// @Description Receive a message delivery status callback from the provider
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param request body dto.DeliveryReportRequest true "Delivery report"
// @Success 200 {object} dto.APIResponse{data=dto.DeliveryReportResult} "Report acknowledged"
// @Failure 400 {object} dto.APIResponse "Malformed payload"
// @Router /api/v1/webhooks/delivery [post]
func (h *DeliveryWebhookHandler) Receive(c fiber.Ctx) error {
	var req dto.DeliveryReportRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.deliveryFlow.ApplyReport(createRequestContext(c, "/api/v1/webhooks/delivery"), &req)
	if err != nil {
		// Unknown IDs and statuses are acknowledged so the provider stops
		// retrying a report that will never apply.
		if result != nil {
			return successResponse(c, fiber.StatusOK, "Report acknowledged", result)
		}

		log.Println("Delivery report failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Delivery report failed", "DELIVERY_REPORT_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Report acknowledged", result)
}
