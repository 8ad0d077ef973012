// Package dto contains Data Transfer Objects for API request and response structures
package dto

import (
	"time"
)

// CreateWelcomeOfferRequest represents the payload for creating a welcome offer
type CreateWelcomeOfferRequest struct {
	Title        string     `json:"title" validate:"required,min=1,max=120" example:"New client discount"`
	DiscountText string     `json:"discount_text" validate:"required,min=1,max=40" example:"20%"`
	Code         string     `json:"code" validate:"omitempty,max=40" example:"WELCOME20"`
	ValidDays    uint       `json:"valid_days" validate:"omitempty,min=1,max=365" example:"30"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// WelcomeOfferInfo represents a welcome offer in API responses
type WelcomeOfferInfo struct {
	UUID         string     `json:"uuid"`
	Title        string     `json:"title"`
	DiscountText string     `json:"discount_text"`
	Code         string     `json:"code,omitempty"`
	ValidDays    uint       `json:"valid_days"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
}
