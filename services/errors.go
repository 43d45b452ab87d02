package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeUnavailable ErrorType = "service_unavailable"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}

	// sentinel is the package-level error this one was derived from
	sentinel *DomainError
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is. A sentinel target matches itself and the errors
// derived from it. A target with no message matches any error of its type.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Message == "" {
		return e.Type == t.Type
	}
	return e == t || (e.sentinel != nil && e.sentinel == t)
}

// Derive returns a copy of the sentinel carrying a cause and, optionally, a
// more specific client-facing message. The copy still matches the sentinel
// under errors.Is.
func (e *DomainError) Derive(message string, err error) *DomainError {
	base := e
	if e.sentinel != nil {
		base = e.sentinel
	}
	if message == "" {
		message = e.Message
	}
	return &DomainError{
		Type:     e.Type,
		Message:  message,
		Err:      err,
		Details:  make(map[string]interface{}),
		sentinel: base,
	}
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables. Return them through Derive so callers never share
// a mutable sentinel.

var (
	// Not Found Errors
	ErrValuationNotFound = NewDomainError(ErrorTypeNotFound, "valuation not found", nil)

	// Validation Errors
	ErrInvalidInput   = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrMissingVRM     = NewDomainError(ErrorTypeValidation, "vrm is required", nil)
	ErrInvalidVRM     = NewDomainError(ErrorTypeValidation, "vrm must be 7 characters or less", nil)
	ErrInvalidMileage = NewDomainError(ErrorTypeValidation, "mileage must be a positive number", nil)

	// Internal Errors
	ErrDatabaseError = NewDomainError(ErrorTypeInternal, "database error", nil)

	// Availability Errors. ErrAllProvidersFailed is only returned after the
	// fallback provider was tried and failed too.
	ErrServiceUnavailable = NewDomainError(ErrorTypeUnavailable, "service unavailable", nil)
	ErrAllProvidersFailed = NewDomainError(ErrorTypeUnavailable, "all valuation providers failed", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

// IsUnavailableError checks if an error means no provider could serve the request
func IsUnavailableError(err error) bool {
	return hasType(err, ErrorTypeUnavailable)
}

func hasType(err error, errType ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == errType
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}
