package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"

	"pdfrag/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		status    int
		retryable bool
	}{
		{"rate limited", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}, 429, true},
		{"server error", &openai.RequestError{HTTPStatusCode: http.StatusBadGateway, Err: errors.New("bad gateway")}, 502, true},
		{"unauthorized", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}, 401, false},
		{"bad request", &openai.APIError{HTTPStatusCode: http.StatusBadRequest, Message: "bad model"}, 400, false},
		{"not found", &openai.RequestError{HTTPStatusCode: http.StatusNotFound, Err: errors.New("nope")}, 404, false},
		{"transport", errors.New("connection refused"), 0, true},
		{"canceled", context.Canceled, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Classify("embed", "gemini", tc.err)
			assert.ErrorIs(t, err, domain.ErrProvider)

			var pe *domain.ProviderError
			assert.True(t, errors.As(err, &pe))
			assert.Equal(t, tc.status, pe.StatusCode)
			assert.Equal(t, tc.retryable, pe.Retryable)
		})
	}

	assert.NoError(t, Classify("embed", "gemini", nil))
}

func TestDefaultBaseURL(t *testing.T) {
	assert.Equal(t, GeminiBaseURL, DefaultBaseURL("gemini"))
	assert.Equal(t, OllamaBaseURL, DefaultBaseURL("ollama"))
	assert.Equal(t, OpenAIBaseURL, DefaultBaseURL("openai"))
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := DefaultRetryPolicy(3)
	assert.Equal(t, 200*time.Millisecond, p.delay(0))
	assert.Equal(t, 400*time.Millisecond, p.delay(1))
	assert.Equal(t, 5*time.Second, p.delay(10))
	assert.Equal(t, 5*time.Second, p.delay(100))
}

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, Base: time.Millisecond, Max: time.Millisecond}
}

func TestRetryPolicy_RetriesTransient(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &domain.ProviderError{Op: "embed", Provider: "p", StatusCode: 503, Retryable: true, Err: errors.New("busy")}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_GivesUp(t *testing.T) {
	calls := 0
	err := fastPolicy(2).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &domain.ProviderError{Op: "embed", Provider: "p", StatusCode: 500, Retryable: true, Err: errors.New("down")}
	})
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_NoRetryOnPermanent(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &domain.ProviderError{Op: "embed", Provider: "p", StatusCode: 401, Err: errors.New("bad key")}
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	policy := RetryPolicy{MaxRetries: 5, Base: time.Hour, Max: time.Hour}
	err := policy.Do(ctx, func(ctx context.Context) error {
		calls++
		return &domain.ProviderError{Op: "embed", Provider: "p", Retryable: true, Err: errors.New("reset")}
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
