package openai

import (
	"errors"
	"net/http"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"

	"github.com/bryanwahyu/plantcare/internal/domain/ai"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "bad request", err: &openai.APIError{HTTPStatusCode: http.StatusBadRequest, Message: "invalid image"}, want: ai.ErrInvalidImage},
		{name: "unsupported media", err: &openai.RequestError{HTTPStatusCode: http.StatusUnsupportedMediaType, Err: errors.New("nope")}, want: ai.ErrInvalidImage},
		{name: "quota", err: &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}, want: ai.ErrQuotaExceeded},
		{name: "server", err: &openai.APIError{HTTPStatusCode: http.StatusBadGateway}, want: ai.ErrServiceUnavailable},
		{name: "transport", err: errors.New("dial tcp: connection refused"), want: ai.ErrServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err), tt.want)
		})
	}
}

func TestMapError_QuotaIsUnavailable(t *testing.T) {
	err := mapError(&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests})
	assert.ErrorIs(t, err, ai.ErrServiceUnavailable)
	assert.NotErrorIs(t, err, ai.ErrInvalidImage)
}

func TestIsReasoningModel(t *testing.T) {
	assert.True(t, isReasoningModel("o3-2025-04-16"))
	assert.True(t, isReasoningModel("gpt-5-mini"))
	assert.False(t, isReasoningModel("gpt-4o"))
}
