package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeParse      = "PARSE_ERROR"
	ErrCodeEvaluation = "EVALUATION_ERROR"
	ErrCodeMapping    = "MAPPING_ERROR"
	ErrCodeTimeout    = "TIMEOUT_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeStore      = "STORE_ERROR"
)

// ConvertError is the structured error type for all flowmorph operations.
type ConvertError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Path    string         `json:"path,omitempty"`
	Cause   error          `json:"-"`
}

func (e *ConvertError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] at %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ConvertError) Unwrap() error {
	return e.Cause
}

// NewError creates a new ConvertError.
func NewError(code, message string) *ConvertError {
	return &ConvertError{Code: code, Message: message}
}

// NewErrorf creates a new ConvertError with a formatted message.
func NewErrorf(code, format string, args ...any) *ConvertError {
	return &ConvertError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithPath attaches the parameter-tree path where the error occurred.
func (e *ConvertError) WithPath(path string) *ConvertError {
	e.Path = path
	return e
}

// WithCause attaches an underlying cause.
func (e *ConvertError) WithCause(err error) *ConvertError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *ConvertError) WithDetails(details map[string]any) *ConvertError {
	e.Details = details
	return e
}
