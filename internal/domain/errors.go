package domain

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/parkops/pricingservice/internal/pricing"
)

// ErrCouponOverrun is returned by a usage store when a coupon's limit was reached by a
// concurrent redemption after the coupon was validated.
var ErrCouponOverrun = errors.New("coupon usage limit reached concurrently")

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common domain error codes
const (
	ErrCodeConfigInvalid = "CONFIG_INVALID"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeCouponOverrun = "COUPON_OVERRUN"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// HTTPStatus maps the error code to an HTTP status
func (e *DomainError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeConfigInvalid, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeCouponOverrun:
		return http.StatusConflict
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// NewInvalidInputError creates a new invalid input error
func NewInvalidInputError(message, details string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidInput,
		Message: message,
		Details: details,
	}
}

// NewConfigInvalidError creates a new invalid configuration error
func NewConfigInvalidError(details string) *DomainError {
	return &DomainError{
		Code:    ErrCodeConfigInvalid,
		Message: "Pricing configuration is invalid",
		Details: details,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Details: fmt.Sprintf("ID: %s", id),
	}
}

// NewRateLimitedError creates a new rate limited error
func NewRateLimitedError() *DomainError {
	return &DomainError{
		Code:    ErrCodeRateLimited,
		Message: "Rate limit exceeded",
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInternal,
		Message: message,
	}
}

// SanitizeError converts any error to a DomainError without exposing internal details
func SanitizeError(err error) *DomainError {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var verr *pricing.ValidationError
	switch {
	case errors.Is(err, pricing.ErrConfigInvalid):
		if errors.As(err, &verr) {
			return NewConfigInvalidError(verr.Field + ": " + verr.Reason)
		}
		return NewConfigInvalidError(err.Error())
	case errors.Is(err, pricing.ErrInvalidSession):
		if errors.As(err, &verr) {
			return NewInvalidInputError("Parking session is invalid", verr.Field+": "+verr.Reason)
		}
		return NewInvalidInputError("Parking session is invalid", err.Error())
	case errors.Is(err, ErrCouponOverrun):
		return &DomainError{Code: ErrCodeCouponOverrun, Message: "Coupon usage limit reached"}
	default:
		return NewInternalError("Internal server error")
	}
}
