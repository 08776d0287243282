package llm

import (
	"fmt"
	"time"

	"pdfrag/config"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// FromConfig builds the generator named by cfg.Provider.
func FromConfig(cfg config.GenerationConfig) (port.LLM, error) {
	opts := Options{
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Temperature: cfg.Temperature,
		Timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
		MaxRetries:  cfg.MaxRetries,
	}

	var (
		gen port.LLM
		err error
	)
	switch cfg.Provider {
	case "gemini":
		gen, err = NewGeminiLLM(cfg.APIKey(), opts)
	case "openai":
		gen, err = NewOpenAILLM(cfg.APIKey(), opts)
	case "ollama":
		gen, err = NewOllamaLLM(opts)
	case "mock":
		gen = NewMockLLM()
	default:
		return nil, fmt.Errorf("%w: unsupported generation provider: %s", domain.ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	return gen, nil
}
