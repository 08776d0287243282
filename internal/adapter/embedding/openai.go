package embedding

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"pdfrag/internal/adapter/provider"
	"pdfrag/internal/domain"
)

// OpenAIEmbedder calls any OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client    *openai.Client
	provider  string
	model     string
	dimension int
	batchSize int
	retry     provider.RetryPolicy
}

// Options configures an OpenAIEmbedder.
type Options struct {
	Provider   string
	Model      string
	BaseURL    string
	APIKey     string
	Dimension  int // 0 = derive from model
	BatchSize  int
	Timeout    time.Duration
	MaxRetries int
}

// knownDimensions maps embedding models to their output size.
var knownDimensions = map[string]int{
	"text-embedding-004":     768,
	"gemini-embedding-001":   3072,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
}

func NewGeminiEmbedder(apiKey string, opts Options) (*OpenAIEmbedder, error) {
	opts.Provider, opts.APIKey = "gemini", apiKey
	return NewOpenAICompatibleEmbedder(opts)
}

func NewOpenAIEmbedder(apiKey string, opts Options) (*OpenAIEmbedder, error) {
	opts.Provider, opts.APIKey = "openai", apiKey
	return NewOpenAICompatibleEmbedder(opts)
}

func NewOllamaEmbedder(opts Options) (*OpenAIEmbedder, error) {
	opts.Provider, opts.APIKey = "ollama", "ollama"
	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Second
	}
	return NewOpenAICompatibleEmbedder(opts)
}

func NewOpenAICompatibleEmbedder(opts Options) (*OpenAIEmbedder, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: API key for %s embeddings is not set", domain.ErrInvalidConfig, opts.Provider)
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("%w: embedding model is not set", domain.ErrInvalidConfig)
	}

	dimension := opts.Dimension
	if dimension == 0 {
		dimension = knownDimensions[opts.Model]
	}
	if dimension == 0 {
		return nil, fmt.Errorf("%w: unknown dimension for embedding model %q; set embedding.dimension", domain.ErrInvalidConfig, opts.Model)
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = provider.DefaultBaseURL(opts.Provider)
	}

	return &OpenAIEmbedder{
		client:    provider.NewClient(opts.APIKey, baseURL, opts.Timeout),
		provider:  opts.Provider,
		model:     opts.Model,
		dimension: dimension,
		batchSize: batchSize,
		retry:     provider.DefaultRetryPolicy(opts.MaxRetries),
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	allEmbeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		var embeddings [][]float32
		err := e.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			embeddings, err = e.embedBatch(ctx, texts[i:end])
			return err
		})
		if err != nil {
			return nil, err
		}
		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	return allEmbeddings, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, provider.Classify("embed", e.provider, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, provider.Invalid("embed", e.provider, "requested %d embeddings, got %d", len(texts), len(resp.Data))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) || embeddings[data.Index] != nil {
			return nil, provider.Invalid("embed", e.provider, "unexpected embedding index %d", data.Index)
		}
		if len(data.Embedding) != e.dimension {
			return nil, provider.Invalid("embed", e.provider, "embedding has dimension %d, expected %d", len(data.Embedding), e.dimension)
		}
		vec := make([]float32, len(data.Embedding))
		for j, x := range data.Embedding {
			vec[j] = float32(x)
		}
		embeddings[data.Index] = vec
	}

	return embeddings, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
