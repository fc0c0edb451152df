package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeInternalError   = "INTERNAL_ERROR"
	ErrCodeEmbeddingFailed = "EMBEDDING_FAILED"
	ErrCodeNoResults       = "NO_RESULTS"
)

// Validation errors
var (
	ErrInvalidCategory      = NewDomainError(ErrCodeValidation, "invalid knowledge category")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "search query cannot be empty")
)

// Not found errors
var (
	ErrKnowledgeItemNotFound = NewDomainError(ErrCodeNotFound, "knowledge item not found")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Embedding capability errors. The engine never substitutes heuristic
// vectors when the provider fails; these surface to the caller instead.
var (
	ErrEmbeddingUnavailable = NewDomainError(ErrCodeEmbeddingFailed, "embedding provider unavailable")
	ErrEmbeddingTimeout     = NewDomainError(ErrCodeEmbeddingFailed, "embedding request timed out")
)

// Search errors
var (
	ErrNoRelevantKnowledge = NewDomainError(ErrCodeNoResults, "no knowledge items met the relevance threshold")
)

// WrapEmbeddingError attaches a provider failure to the typed embedding error.
func WrapEmbeddingError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbeddingFailed, "embedding provider unavailable", err)
}
