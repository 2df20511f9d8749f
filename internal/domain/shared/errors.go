package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so that
// errors.Is(NewDomainError("NOT_FOUND", "..."), ErrNotFound) holds.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeNotFound      = "NOT_FOUND"
	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeInvalidState  = "INVALID_STATE"
	CodeValidation    = "VALIDATION"
	CodePartialData   = "PARTIAL_DATA"
	CodeExternalFetch = "EXTERNAL_FETCH"
)

// Common domain errors
var (
	ErrNotFound      = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput  = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState  = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrValidation    = NewDomainError(CodeValidation, "Value failed validation")
	ErrPartialData   = NewDomainError(CodePartialData, "Requested data is not available")
	ErrExternalFetch = NewDomainError(CodeExternalFetch, "External fetch failed")
)

// NewNotFoundError creates a NOT_FOUND error with a specific message
func NewNotFoundError(message string) *DomainError {
	return NewDomainError(CodeNotFound, message)
}

// NewValidationError creates a VALIDATION error with a specific message
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewInvalidStateError creates an INVALID_STATE error with a specific message
func NewInvalidStateError(message string) *DomainError {
	return NewDomainError(CodeInvalidState, message)
}

// ErrorCode extracts the domain error code from err, or "" when err is not a DomainError
func ErrorCode(err error) string {
	var fe *ExternalFetchError
	if errors.As(err, &fe) {
		return CodeExternalFetch
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ExternalFetchError wraps a failure from an external collaborator (evidence
// store, configuration store). It is always recoverable by the caller.
type ExternalFetchError struct {
	Source string
	Err    error
}

// Error implements the error interface
func (e *ExternalFetchError) Error() string {
	return e.Source + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *ExternalFetchError) Unwrap() error {
	return e.Err
}

// Is matches ErrExternalFetch
func (e *ExternalFetchError) Is(target error) bool {
	return target == ErrExternalFetch
}

// NewExternalFetchError wraps err as an external fetch failure from source
func NewExternalFetchError(source string, err error) *ExternalFetchError {
	return &ExternalFetchError{Source: source, Err: err}
}
