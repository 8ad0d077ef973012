// Package dto contains Data Transfer Objects for API request and response structures
package dto

import (
	"time"
)

// LoginRequest represents the request payload for operator login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"ana@glowdesk.example"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// RefreshTokenRequest represents the request payload for refreshing a token pair
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// OperatorInfo represents operator information returned in login responses
type OperatorInfo struct {
	ID          uint   `json:"id" example:"123"`
	UUID        string `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Email       string `json:"email" example:"ana@glowdesk.example"`
	DisplayName string `json:"display_name" example:"Ana"`
	SalonID     uint   `json:"salon_id" example:"7"`
	CreatedAt   string `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// TokenInfo represents the issued token pair
type TokenInfo struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type" example:"Bearer"`
	ExpiresIn    int       `json:"expires_in" example:"86400"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// LoginResult represents the data payload of a successful login
type LoginResult struct {
	Operator OperatorInfo `json:"operator"`
	Token    TokenInfo    `json:"token"`
}
