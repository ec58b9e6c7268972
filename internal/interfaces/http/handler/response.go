package handler

import "github.com/saas/backoffice/internal/interfaces/http/dto"

// APIResponse represents a generic API response for OpenAPI documentation
// @Description Standard API response wrapper with typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse represents an error API response for OpenAPI documentation
// @Description Standard error response
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// AmountData wraps a single monetary figure
// @Description Monetary amount
type AmountData struct {
	Amount string `json:"amount" example:"1250.00"`
}

// RateData wraps a single percentage
// @Description Percentage rate
type RateData struct {
	Rate float64 `json:"rate" example:"12.5"`
}
