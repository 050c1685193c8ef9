package helpers

import (
	"errors"
	"fmt"
	"runtime/debug"

	"market-dashboard/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type DashboardError struct {
	Message string
	Cause   error
}

func (e *DashboardError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DashboardError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As classification
type ConfigurationError struct{ DashboardError }
type ProviderError struct{ DashboardError }
type StorageError struct{ DashboardError }
type ValidationError struct{ DashboardError }

// -----------------------------------------------------------------------------

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{DashboardError{Message: fmt.Sprintf(format, args...)}}
}

func NewProviderError(message string, cause error) error {
	return &ProviderError{DashboardError{Message: message, Cause: cause}}
}

func NewConfigurationError(message string, cause error) error {
	return &ConfigurationError{DashboardError{Message: message, Cause: cause}}
}

func NewStorageError(message string, cause error) error {
	return &StorageError{DashboardError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------

// IsValidation reports whether err is a client-side input problem.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger *logger.Logger
}

func NewErrorHandler(l *logger.Logger) *ErrorHandler {
	return &ErrorHandler{Logger: l}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) Handle(err error, context string) {
	if err == nil {
		return
	}
	var provider *ProviderError
	if errors.As(err, &provider) {
		e.Logger.Warning("Provider failure in %s: %v", context, err)
		return
	}
	e.Logger.Error("Error in %s: %v", context, err)
}

// -----------------------------------------------------------------------------

// Recover must be deferred. It turns a panic into a logged error so the
// calling goroutine keeps running on its next iteration.
func (e *ErrorHandler) Recover(context string) {
	if r := recover(); r != nil {
		e.Logger.Error("Recovered panic in %s: %v\n%s", context, r, debug.Stack())
	}
}
