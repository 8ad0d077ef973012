package handlers

import (
	"log"
	"time"

	"github.com/glowdesk/invite-engine/app/dto"
	businessflow "github.com/glowdesk/invite-engine/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Login(c fiber.Ctx) error
	RefreshToken(c fiber.Ctx) error
	Health(c fiber.Ctx) error
}

// AuthHandler handles operator authentication requests
type AuthHandler struct {
	loginFlow businessflow.LoginFlow
	validator *validator.Validate
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(loginFlow businessflow.LoginFlow) *AuthHandler {
	return &AuthHandler{
		loginFlow: loginFlow,
		validator: validator.New(),
	}
}

// Login handles operator authentication
// @Summary Operator Login
// @Description Authenticate a salon operator with email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResult} "Login successful with tokens"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Authentication failed"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.loginFlow.Login(createRequestContext(c, "/api/v1/auth/login"), &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsOperatorNotFound(err) || businessflow.IsIncorrectPassword(err) {
			// Same response for unknown email and bad password
			return errorResponse(c, fiber.StatusUnauthorized, "Invalid email or password", "INVALID_CREDENTIALS", nil)
		}
		if businessflow.IsOperatorSuspended(err) {
			return errorResponse(c, fiber.StatusUnauthorized, "Operator account is suspended", "OPERATOR_SUSPENDED", nil)
		}

		log.Println("Login failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Login successful", result)
}

// RefreshToken exchanges a refresh token for a new token pair
// @Summary Refresh Token
// @Description Exchange a valid refresh token for a new access/refresh pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.TokenInfo} "Token refreshed"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid refresh token"
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	token, err := h.loginFlow.RefreshToken(createRequestContext(c, "/api/v1/auth/refresh"), req.RefreshToken)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid refresh token", "TOKEN_REFRESH_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Token refreshed", token)
}

// Health handles health check requests
// @Summary Health Check
// @Description Check the health status of the API
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse "Service is healthy"
// @Router /api/v1/health [get]
func (h *AuthHandler) Health(c fiber.Ctx) error {
	return successResponse(c, fiber.StatusOK, "Service is healthy", fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "invite-engine",
	})
}
