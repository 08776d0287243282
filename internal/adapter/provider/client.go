// Package provider holds what the embedding and generation adapters share:
// OpenAI-compatible client construction, error classification and retries.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"pdfrag/internal/domain"
)

const (
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	OpenAIBaseURL = "https://api.openai.com/v1"
	OllamaBaseURL = "http://localhost:11434/v1"
)

// DefaultBaseURL returns the OpenAI-compatible endpoint for a named provider.
func DefaultBaseURL(name string) string {
	switch name {
	case "gemini":
		return GeminiBaseURL
	case "ollama":
		return OllamaBaseURL
	default:
		return OpenAIBaseURL
	}
}

// NewClient builds a go-openai client against baseURL with a per-request timeout.
func NewClient(apiKey, baseURL string, timeout time.Duration) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return openai.NewClientWithConfig(cfg)
}

// Classify wraps a client error as a *domain.ProviderError, deciding whether
// it is worth retrying. Rate limits, server errors and transport failures are;
// rejected requests and caller cancellation are not.
func Classify(op, provider string, err error) error {
	if err == nil {
		return nil
	}

	pe := &domain.ProviderError{Op: op, Provider: provider, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		pe.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		pe.StatusCode = reqErr.HTTPStatusCode
	}

	switch {
	case pe.StatusCode == http.StatusTooManyRequests || pe.StatusCode >= 500:
		pe.Retryable = true
	case pe.StatusCode != 0:
		pe.Retryable = false
	default:
		pe.Retryable = !errors.Is(err, context.Canceled)
	}
	return pe
}

// Invalid reports a well-formed response that cannot be used, such as a
// vector count that does not match the request.
func Invalid(op, provider, format string, args ...any) error {
	return &domain.ProviderError{Op: op, Provider: provider, Err: fmt.Errorf(format, args...)}
}
