package core

import (
	"errors"
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: element_not_found, daemon_unreachable, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an ExecutionError with the same code, so that
// copies made by WithCause/WithMessage/WithDetails still match the predefined errors.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// Configuration errors
	ErrInvalidConfiguration = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_configuration",
		Message:  "invalid configuration",
	}
	ErrInvalidAction = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_action",
		Message:  "invalid action descriptor",
	}

	// Element resolution errors
	ErrElementNotFound = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "element_not_found",
		Message:  "element not found",
	}

	// Connection errors
	ErrDaemonUnreachable = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     "daemon_unreachable",
		Message:  "could not connect to test daemon",
	}
	ErrDaemonDisconnected = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     "daemon_disconnected",
		Message:  "test daemon connection lost",
	}

	// Soft timeout: logged and reported, never returned to the caller as a failure.
	ErrIdleTimeoutExceeded = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "idle_timeout_exceeded",
		Message:  "application did not become idle before timeout",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// IsDisconnected reports whether err means the daemon channel broke mid-session.
func IsDisconnected(err error) bool {
	return errors.Is(err, ErrDaemonDisconnected)
}

// CategoryOf returns the category of the first ExecutionError in err's chain.
func CategoryOf(err error) ErrorCategory {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Category
	}
	return ErrCategoryNone
}
