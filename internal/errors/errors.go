package errors

import (
	"fmt"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// Validation errors - invalid input data, fatal to the request
	ErrorTypeValidation ErrorType = iota
	// External errors - transient failures in the change-event source
	ErrorTypeExternal
	// Config errors - missing or invalid configuration
	ErrorTypeConfig
	// Internal errors - unexpected internal state
	ErrorTypeInternal
)

// Severity represents how critical an error is
type Severity int

const (
	// SeverityLow - can continue with degraded functionality
	SeverityLow Severity = iota
	// SeverityMedium - should be addressed but not fatal
	SeverityMedium
	// SeverityHigh - significant issue, may impact functionality
	SeverityHigh
	// SeverityCritical - must be addressed, stops execution
	SeverityCritical
)

// Error represents a structured error with context
type Error struct {
	Type     ErrorType
	Severity Severity
	Message  string
	Cause    error
	Context  map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is checks if this error matches the target error type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsFatal returns true if this error should stop the request
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

// New creates a new error with the given type, severity, and message
func New(errType ErrorType, severity Severity, message string) *Error {
	return &Error{
		Type:     errType,
		Severity: severity,
		Message:  message,
		Context:  make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Type:     errType,
		Severity: severity,
		Message:  message,
		Cause:    err,
		Context:  make(map[string]interface{}),
	}
}

// ValidationError creates a validation error. Validation errors are
// fatal: an invalid bug report is rejected before any fetch happens.
func ValidationError(message string) *Error {
	return New(ErrorTypeValidation, SeverityCritical, message)
}

// ValidationErrorf creates a validation error with formatting
func ValidationErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeValidation, SeverityCritical, fmt.Sprintf(format, args...))
}

// ExternalError wraps a change-event source failure. These are absorbed
// by the analyzer and never abort a routing request.
func ExternalError(err error, message string) *Error {
	return Wrap(err, ErrorTypeExternal, SeverityMedium, message)
}

// ExternalErrorf wraps an external service error with formatting
func ExternalErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeExternal, SeverityMedium, fmt.Sprintf(format, args...))
}

// ConfigError creates a configuration error
func ConfigError(message string) *Error {
	return New(ErrorTypeConfig, SeverityCritical, message)
}

// InternalError creates an internal error
func InternalError(message string) *Error {
	return New(ErrorTypeInternal, SeverityCritical, message)
}

// IsFatal checks if an error is fatal (should stop execution)
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		return e.IsFatal()
	}
	return false
}

// GetType returns the type of an error
func GetType(err error) ErrorType {
	if err == nil {
		return ErrorTypeInternal
	}
	if e, ok := err.(*Error); ok {
		return e.Type
	}
	return ErrorTypeInternal
}
