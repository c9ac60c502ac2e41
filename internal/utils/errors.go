package utils

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType categorizes failures inside the data layer. Nothing here is
// fatal to the dashboard: every category degrades to stale/partial data
// plus a message.
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "NETWORK"     // upstream fetch failed, stale data retained
	ErrorTypeBadRequest  ErrorType = "BAD_REQUEST" // malformed parameters, partial data warning
	ErrorTypeStaleness   ErrorType = "STALENESS"   // data older than the freshness threshold
	ErrorTypeConsistency ErrorType = "CONSISTENCY" // chart/table views of one window disagree
	ErrorTypeConfig      ErrorType = "CONFIG"
	ErrorTypeWebSocket   ErrorType = "WEBSOCKET"
	ErrorTypeInternal    ErrorType = "INTERNAL"
)

// AppError is the structured error carried across component boundaries.
type AppError struct {
	Type      ErrorType `json:"type"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Cause     error     `json:"-"`
	Component string    `json:"component"`
	Timestamp time.Time `json:"timestamp"`
	Retryable bool      `json:"retryable"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Type, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithDetails attaches free-form detail text.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a structured error.
func NewAppError(errorType ErrorType, code, message, component string) *AppError {
	return &AppError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Component: component,
		Timestamp: time.Now().UTC(),
	}
}

// WrapError wraps err with structured context. Network errors are marked
// retryable.
func WrapError(err error, errorType ErrorType, code, message, component string) *AppError {
	appErr := NewAppError(errorType, code, message, component)
	appErr.Cause = err
	appErr.Retryable = errorType == ErrorTypeNetwork
	return appErr
}

// GetErrorType extracts the error type, defaulting to INTERNAL for plain
// errors.
func GetErrorType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsRetryable reports whether the error is worth retrying.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}
