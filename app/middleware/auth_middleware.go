// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/glowdesk/invite-engine/app/dto"
	"github.com/glowdesk/invite-engine/app/services"
	"github.com/glowdesk/invite-engine/models"
	"github.com/glowdesk/invite-engine/repository"
	"github.com/gofiber/fiber/v3"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
	operatorRepo repository.OperatorRepository
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService, operatorRepo repository.OperatorRepository) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		operatorRepo: operatorRepo,
	}
}

// Authenticate validates the Bearer token and loads the operator it belongs to
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "MISSING_AUTHORIZATION_HEADER", "Authorization header is required")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "INVALID_AUTHORIZATION_FORMAT", "Invalid authorization header format. Expected 'Bearer <token>'")
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return unauthorized(c, "MISSING_ACCESS_TOKEN", "Access token is required")
		}

		// Validation already checks for revocation
		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTokenExpired):
				return unauthorized(c, "TOKEN_EXPIRED", "Access token has expired")
			case errors.Is(err, services.ErrTokenRevoked):
				return unauthorized(c, "TOKEN_REVOKED", "Access token has been revoked")
			case errors.Is(err, services.ErrTokenInvalid):
				return unauthorized(c, "TOKEN_INVALID", "Invalid access token")
			default:
				return unauthorized(c, "TOKEN_VALIDATION_FAILED", "Token validation failed")
			}
		}

		operator, err := m.operatorRepo.ByID(c.Context(), claims.OperatorID)
		if err != nil || operator == nil {
			return unauthorized(c, "OPERATOR_NOT_FOUND", "Operator account not found")
		}
		if !operator.IsActive() {
			return unauthorized(c, "OPERATOR_SUSPENDED", "Operator account is suspended")
		}

		c.Locals("operator", operator)
		c.Locals("operator_id", operator.ID)
		c.Locals("salon_id", operator.SalonID)
		c.Locals("token_id", claims.TokenID)

		// Stored for audit logging downstream
		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

func unauthorized(c fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: code,
		},
	})
}

// GetOperatorFromContext extracts the authenticated operator from the request context
func GetOperatorFromContext(c fiber.Ctx) (*models.Operator, bool) {
	operator, ok := c.Locals("operator").(*models.Operator)
	return operator, ok
}

// GetOperatorIDFromContext extracts the operator ID from the request context
func GetOperatorIDFromContext(c fiber.Ctx) (uint, bool) {
	operatorID, ok := c.Locals("operator_id").(uint)
	return operatorID, ok
}
