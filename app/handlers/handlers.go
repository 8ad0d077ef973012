// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/glowdesk/invite-engine/app/dto"
	"github.com/glowdesk/invite-engine/app/middleware"
	businessflow "github.com/glowdesk/invite-engine/business_flow"
	"github.com/glowdesk/invite-engine/models"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

func errorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func successResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func validationErrorResponse(c fiber.Ctx, err error) error {
	var validationErrors []string
	for _, fieldErr := range err.(validator.ValidationErrors) {
		validationErrors = append(validationErrors, getValidationErrorMessage(fieldErr))
	}
	return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
}

// operatorFromContext returns the operator loaded by the auth middleware
func operatorFromContext(c fiber.Ctx) (*models.Operator, error) {
	operator, ok := middleware.GetOperatorFromContext(c)
	if !ok || operator == nil {
		return nil, errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}
	return operator, nil
}

func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if requestID := c.Get("X-Request-ID"); requestID != "" {
		metadata.SetRequestID(requestID)
	}
	return metadata
}

// createRequestContext creates a context with request-scoped values for observability and timeout.
// The returned context is detached from the connection; handler work must not be
// interrupted by a client that hangs up mid-request.
func createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel)

	return ctx
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "e164":
		return err.Field() + " must be a phone number in E.164 format, e.g. +5511999990001"
	case "uuid":
		return err.Field() + " must be a valid UUID"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
