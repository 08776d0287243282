package embedding

import (
	"fmt"
	"time"

	"pdfrag/config"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// FromConfig builds the embedder named by cfg.Provider.
func FromConfig(cfg config.EmbeddingConfig) (port.Embedder, error) {
	opts := Options{
		Model:      cfg.Model,
		BaseURL:    cfg.BaseURL,
		Dimension:  cfg.Dimension,
		BatchSize:  cfg.BatchSize,
		Timeout:    time.Duration(cfg.TimeoutSecs) * time.Second,
		MaxRetries: cfg.MaxRetries,
	}

	var (
		embedder port.Embedder
		err      error
	)
	switch cfg.Provider {
	case "gemini":
		embedder, err = NewGeminiEmbedder(cfg.APIKey(), opts)
	case "openai":
		embedder, err = NewOpenAIEmbedder(cfg.APIKey(), opts)
	case "ollama":
		embedder, err = NewOllamaEmbedder(opts)
	case "mock":
		embedder = NewMockEmbedder(cfg.Dimension)
	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}
