package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapErrorMarksNetworkRetryable(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(cause, ErrorTypeNetwork, "UPSTREAM_UNREACHABLE", "request failed", "api")

	assert.True(t, IsRetryable(err))
	assert.Equal(t, ErrorTypeNetwork, GetErrorType(err))
	assert.ErrorIs(t, err, cause)
}

func TestWrapErrorNonNetworkNotRetryable(t *testing.T) {
	err := WrapError(errors.New("boom"), ErrorTypeConsistency, "COUNT_MISMATCH", "counts diverge", "validator")
	assert.False(t, IsRetryable(err))
}

func TestGetErrorTypeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, ErrorTypeInternal, GetErrorType(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestErrorTypeSurvivesWrapping(t *testing.T) {
	inner := NewAppError(ErrorTypeBadRequest, "INVALID_RANGE", "bad range", "api")
	wrapped := fmt.Errorf("fetch: %w", inner)

	assert.Equal(t, ErrorTypeBadRequest, GetErrorType(wrapped))

	var appErr *AppError
	require.ErrorAs(t, wrapped, &appErr)
	assert.Equal(t, "INVALID_RANGE", appErr.Code)
}

func TestErrorStringIncludesDetails(t *testing.T) {
	err := NewAppError(ErrorTypeStaleness, "STALE_DATA", "data is stale", "validator").
		WithDetails("last updated 6m ago")
	assert.Contains(t, err.Error(), "STALENESS")
	assert.Contains(t, err.Error(), "last updated 6m ago")
}
