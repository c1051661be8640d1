package domain

import (
	"errors"
	"fmt"
)

// APIError represents a standardized API error with HTTP status code
type APIError struct {
	Type   string                 `json:"type"`
	Title  string                 `json:"title"`
	Status int                    `json:"status"`
	Detail string                 `json:"detail,omitempty"`
	Errors map[string]interface{} `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// ValidationMessages provides human-readable validation error messages
var ValidationMessages = map[string]string{
	"required":    "This field is required",
	"max":         "Exceeds maximum length",
	"min":         "Below minimum length",
	"gte":         "Must be greater than or equal to minimum value",
	"gt":          "Must be greater than zero",
	"lte":         "Must be less than or equal to maximum value",
	"uuid":        "Must be a valid UUID",
	"oneof":       "Must be one of the allowed values",
	"hexadecimal": "Must be a hexadecimal string",
	"len":         "Must be exactly the specified length",
	"dive":        "Contains an invalid element",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}

// Common error types for RFC 7807 Problem Details
const (
	ErrorTypeValidation        = "validation_error"
	ErrorTypeNotFound          = "not_found"
	ErrorTypeBadRequest        = "bad_request"
	ErrorTypeConflict          = "conflict"
	ErrorTypeInsufficientStock = "insufficient_stock"
	ErrorTypeInvalidTransition = "invalid_state_transition"
	ErrorTypeUnauthorized      = "unauthorized"
	ErrorTypeForbidden         = "forbidden"
	ErrorTypeInternal          = "internal_error"
	ErrorTypeRateLimited       = "rate_limited"
)

// ErrInsufficientStock is matched by every InsufficientStockError
var ErrInsufficientStock = errors.New("insufficient stock")

// InsufficientStockError reports a sale that would drive a stack below zero at a location
type InsufficientStockError struct {
	Available float64
	Requested float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %.0f bales available, %.0f requested", e.Available, e.Requested)
}

// Is lets errors.Is(err, ErrInsufficientStock) match
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
