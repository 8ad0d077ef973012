// Package dto contains Data Transfer Objects for API request and response structures
package dto

import (
	"time"
)

// ImportCustomerItem represents one contact in a customer import request
type ImportCustomerItem struct {
	FullName string  `json:"full_name" validate:"required,min=1,max=120" example:"Ana Souza"`
	Phone    string  `json:"phone" validate:"required,e164" example:"+5511999990001"`
	ChatID   *string `json:"chat_id,omitempty" validate:"omitempty,max=64"`
}

// ImportCustomersRequest represents a batch customer import
type ImportCustomersRequest struct {
	Customers []ImportCustomerItem `json:"customers" validate:"required,min=1,max=5000,dive"`
}

// ImportCustomersResult represents the outcome of a customer import
type ImportCustomersResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// CustomerInfo represents an imported customer in API responses
type CustomerInfo struct {
	UUID          string     `json:"uuid"`
	FullName      string     `json:"full_name"`
	Phone         string     `json:"phone"`
	ChatID        *string    `json:"chat_id,omitempty"`
	Status        string     `json:"status" example:"invited"`
	LastInvitedAt *time.Time `json:"last_invited_at,omitempty"`
	RegisteredAt  *time.Time `json:"registered_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ListCustomersRequest represents paging and filtering for customer listing
type ListCustomersRequest struct {
	Page     int     `json:"page" query:"page" validate:"omitempty,min=1"`
	PageSize int     `json:"page_size" query:"page_size" validate:"omitempty,min=1,max=100"`
	Status   *string `json:"status" query:"status" validate:"omitempty,oneof=pending invited registered expired"`
}

// ListCustomersResult represents the data payload of a customer listing
type ListCustomersResult struct {
	Items      []CustomerInfo `json:"items"`
	Pagination Pagination     `json:"pagination"`
}
