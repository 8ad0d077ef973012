package handlers

import (
	"log"

	"github.com/glowdesk/invite-engine/app/dto"
	businessflow "github.com/glowdesk/invite-engine/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// CustomerHandlerInterface defines the contract for customer handlers
type CustomerHandlerInterface interface {
	Import(c fiber.Ctx) error
	List(c fiber.Ctx) error
}

// CustomerHandler handles imported customer HTTP requests
type CustomerHandler struct {
	customerFlow businessflow.CustomerFlow
	validator    *validator.Validate
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customerFlow businessflow.CustomerFlow) *CustomerHandler {
	return &CustomerHandler{
		customerFlow: customerFlow,
		validator:    validator.New(),
	}
}

// Import handles batch customer imports
// @Summary Import Customers
// @Description Import a batch of contacts; phones already imported for the salon are skipped
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body dto.ImportCustomersRequest true "Customer batch"
// @Success 200 {object} dto.APIResponse{data=dto.ImportCustomersResult} "Import summary"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Router /api/v1/customers/import [post]
func (h *CustomerHandler) Import(c fiber.Ctx) error {
	operator, err := operatorFromContext(c)
	if err != nil {
		return err
	}

	var req dto.ImportCustomersRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.customerFlow.ImportCustomers(createRequestContext(c, "/api/v1/customers/import"), operator, &req, clientMetadata(c))
	if err != nil {
		log.Println("Customer import failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Customer import failed", "CUSTOMER_IMPORT_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Customers imported", result)
}

// List returns a page of the salon's imported customers
// @Summary List Customers
// @Description List the salon's imported customers
// @Tags Customers
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param status query string false "Filter by status"
// @Success 200 {object} dto.APIResponse{data=dto.ListCustomersResult} "Customers"
// @Router /api/v1/customers [get]
func (h *CustomerHandler) List(c fiber.Ctx) error {
	operator, err := operatorFromContext(c)
	if err != nil {
		return err
	}

	var req dto.ListCustomersRequest
	if err := c.Bind().Query(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.customerFlow.ListCustomers(createRequestContext(c, "/api/v1/customers"), operator, &req)
	if err != nil {
		log.Println("Customer listing failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Customer listing failed", "CUSTOMER_LIST_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Customers", result)
}
