package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigInvalid is returned when a pricing configuration, surge rule or coupon snapshot is malformed.
	ErrConfigInvalid = errors.New("pricing config invalid")
	// ErrInvalidSession is returned when a parking session cannot be priced.
	ErrInvalidSession = errors.New("parking session invalid")
)

// ValidationError describes a single malformed input field. It unwraps to ErrConfigInvalid or
// ErrInvalidSession.
type ValidationError struct {
	Field  string
	Reason string
	kind   error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", e.kind, e.Field, e.Reason)
}

// Unwrap returns the error category
func (e *ValidationError) Unwrap() error {
	return e.kind
}

func configError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...), kind: ErrConfigInvalid}
}

func sessionError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...), kind: ErrInvalidSession}
}
