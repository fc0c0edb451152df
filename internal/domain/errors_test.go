package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError(ErrCodeValidation, "bad input")
	assert.Equal(t, "[VALIDATION_ERROR] bad input", err.Error())

	cause := errors.New("boom")
	wrapped := NewDomainErrorWithCause(ErrCodeInternalError, "something failed", cause)
	assert.Equal(t, "[INTERNAL_ERROR] something failed: boom", wrapped.Error())
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapEmbeddingError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeEmbeddingFailed, err.Code)

	var domainErr *DomainError
	assert.ErrorAs(t, error(err), &domainErr)
}

func TestSentinelCodes(t *testing.T) {
	assert.Equal(t, ErrCodeValidation, ErrEmptyQuery.Code)
	assert.Equal(t, ErrCodeNotFound, ErrKnowledgeItemNotFound.Code)
	assert.Equal(t, ErrCodeUnauthorized, ErrInvalidAPIKey.Code)
	assert.Equal(t, ErrCodeNoResults, ErrNoRelevantKnowledge.Code)
	assert.Equal(t, ErrCodeEmbeddingFailed, ErrEmbeddingTimeout.Code)
}
