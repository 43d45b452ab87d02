package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/upb/vehicle-valuation/models"
)

// Provider represents an external vehicle valuation API
type Provider interface {
	// Name returns the provider name recorded on valuations and provider logs
	Name() string

	// FetchValuation asks the provider for the value range of a vehicle
	FetchValuation(ctx context.Context, req ValuationRequest) (*models.Valuation, error)
}

// ValuationRequest represents a unified valuation request
type ValuationRequest struct {
	// VRM is the vehicle registration mark
	VRM string

	// Mileage of the vehicle. Providers that price on VRM alone ignore it.
	Mileage int
}

// ProviderConfig holds common configuration for providers
type ProviderConfig struct {
	// BaseURL for the API
	BaseURL string

	// Timeout for requests. Cancellation is owned by the HTTP client, not the caller.
	Timeout time.Duration

	// Additional headers
	Headers map[string]string
}

// DefaultProviderConfig returns a sensible default configuration
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Timeout: 10 * time.Second,
		Headers: make(map[string]string),
	}
}

// Error codes carried by ProviderError
const (
	CodeRequestError   = "REQUEST_ERROR"
	CodeHTTPError      = "HTTP_ERROR"
	CodeReadError      = "READ_ERROR"
	CodeUpstreamStatus = "UPSTREAM_STATUS"
	CodeDecodeError    = "DECODE_ERROR"
	CodeMissingData    = "MISSING_DATA"
)

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Code is the error code
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// CheckRange rejects value bands a provider should never return
func CheckRange(lowest, highest decimal.Decimal) error {
	if lowest.IsNegative() || highest.IsNegative() {
		return fmt.Errorf("negative valuation amount (lowest %s, highest %s)", lowest, highest)
	}
	if lowest.GreaterThan(highest) {
		return fmt.Errorf("lowest value %s exceeds highest value %s", lowest, highest)
	}
	return nil
}

// AsProviderError extracts a ProviderError from an error chain
func AsProviderError(err error) (*ProviderError, bool) {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr, true
	}
	return nil, false
}
