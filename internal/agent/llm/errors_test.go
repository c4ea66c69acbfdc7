package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	errx "github.com/wayfarer-planner/server/internal/core/error"
)

func openAIError(status int) *openai.Error {
	return &openai.Error{
		StatusCode: status,
		Request:    httptest.NewRequest(http.MethodPost, "https://api.deepseek.com/v1/chat/completions", nil),
		Response:   &http.Response{StatusCode: status},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantRetryable bool
	}{
		{"openai 503", openAIError(http.StatusServiceUnavailable), true},
		{"openai 429", fmt.Errorf("wrapped: %w", openAIError(http.StatusTooManyRequests)), true},
		{"openai 401", openAIError(http.StatusUnauthorized), false},
		{"genai 500", genai.APIError{Code: http.StatusInternalServerError}, true},
		{"genai 400", fmt.Errorf("gemini: %w", genai.APIError{Code: http.StatusBadRequest}), false},
		{"deadline", context.DeadlineExceeded, true},
		{"cancelled", context.Canceled, false},
		{"unknown", errors.New("weird"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("deepseek-chat", tt.err)
			assert.Equal(t, errx.KindExternalService, errx.KindOf(err))
			assert.Equal(t, tt.wantRetryable, errx.IsRetryable(err))
		})
	}
	assert.Nil(t, Classify("x", nil))
}

func TestClassify_KeepsExistingClassification(t *testing.T) {
	orig := errx.Configuration("missing key")
	assert.Same(t, orig, Classify("x", orig))
}
