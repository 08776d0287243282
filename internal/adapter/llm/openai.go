package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"pdfrag/internal/adapter/provider"
	"pdfrag/internal/domain"
)

// ChatLLM generates answers through an OpenAI-compatible chat completions endpoint.
type ChatLLM struct {
	client      *openai.Client
	provider    string
	model       string
	temperature float32
	retry       provider.RetryPolicy
}

type Options struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
	MaxRetries  int
}

func NewGeminiLLM(apiKey string, opts Options) (*ChatLLM, error) {
	opts.Provider, opts.APIKey = "gemini", apiKey
	return NewOpenAICompatibleLLM(opts)
}

func NewOpenAILLM(apiKey string, opts Options) (*ChatLLM, error) {
	opts.Provider, opts.APIKey = "openai", apiKey
	return NewOpenAICompatibleLLM(opts)
}

func NewOllamaLLM(opts Options) (*ChatLLM, error) {
	opts.Provider, opts.APIKey = "ollama", "ollama"
	if opts.Timeout == 0 {
		opts.Timeout = 300 * time.Second
	}
	return NewOpenAICompatibleLLM(opts)
}

func NewOpenAICompatibleLLM(opts Options) (*ChatLLM, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: API key for %s generation is not set", domain.ErrInvalidConfig, opts.Provider)
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("%w: generation model is not set", domain.ErrInvalidConfig)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = provider.DefaultBaseURL(opts.Provider)
	}

	return &ChatLLM{
		client:      provider.NewClient(opts.APIKey, baseURL, opts.Timeout),
		provider:    opts.Provider,
		model:       opts.Model,
		temperature: opts.Temperature,
		retry:       provider.DefaultRetryPolicy(opts.MaxRetries),
	}, nil
}

func (l *ChatLLM) Generate(ctx context.Context, prompt string) (string, error) {
	var answer string
	err := l.retry.Do(ctx, func(ctx context.Context) error {
		resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: l.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: l.temperature,
		})
		if err != nil {
			return provider.Classify("generate", l.provider, err)
		}
		if len(resp.Choices) == 0 {
			return provider.Invalid("generate", l.provider, "response has no choices")
		}
		answer = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}

func (l *ChatLLM) ModelName() string {
	return l.model
}
