package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  NewError(ErrRateLimited, "too many requests"),
			want: "[LLM_RATE_LIMITED] too many requests",
		},
		{
			name: "with cause",
			err:  NewError(ErrUpstreamError, "request failed").WithCause(errors.New("connection reset")),
			want: "[LLM_UPSTREAM_ERROR] request failed: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorBuilders(t *testing.T) {
	cause := errors.New("boom")
	err := NewError(ErrUnauthorized, "invalid api key").
		WithCause(cause).
		WithHTTPStatus(401).
		WithRetryable(false).
		WithProvider("openai")

	assert.Equal(t, ErrUnauthorized, err.Code)
	assert.Equal(t, 401, err.HTTPStatus)
	assert.False(t, err.Retryable)
	assert.Equal(t, "openai", err.Provider)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestIsRetryable(t *testing.T) {
	retryable := NewError(ErrRateLimited, "slow down").WithRetryable(true)
	fatal := NewError(ErrInvalidRequest, "bad payload")

	assert.True(t, IsRetryable(retryable))
	assert.False(t, IsRetryable(fatal))
	assert.False(t, IsRetryable(errors.New("plain error")))
	assert.False(t, IsRetryable(nil))

	// wrapped *Error 仍可识别
	wrapped := fmt.Errorf("call failed: %w", retryable)
	assert.True(t, IsRetryable(wrapped))
}

func TestGetErrorCode(t *testing.T) {
	err := NewError(ErrQuotaExceeded, "credits exhausted")

	assert.Equal(t, ErrQuotaExceeded, GetErrorCode(err))
	assert.Equal(t, ErrQuotaExceeded, GetErrorCode(fmt.Errorf("wrap: %w", err)))
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
}
