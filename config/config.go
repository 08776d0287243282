package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"pdfrag/internal/domain"
)

// Config holds all configuration for the pdfrag tool.
type Config struct {
	Docs       DocsConfig       `yaml:"docs"`
	Index      IndexConfig      `yaml:"index"`
	Chunk      ChunkConfig      `yaml:"chunk"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Chat       ChatConfig       `yaml:"chat"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DocsConfig describes where source documents live.
type DocsConfig struct {
	Dir      string   `yaml:"dir"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// IndexConfig holds vector index configuration.
type IndexConfig struct {
	Path   string `yaml:"path"`   // directory holding the persisted index
	Metric string `yaml:"metric"` // "cosine" or "l2"
}

// ChunkConfig holds chunking configuration. Sizes are in characters.
type ChunkConfig struct {
	MaxSize int `yaml:"max_size"`
	Overlap int `yaml:"overlap"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK            int `yaml:"top_k"`
	MaxContextChars int `yaml:"max_context_chars"` // 0 = unbounded
	CacheSize       int `yaml:"cache_size"`        // query embedding cache entries, 0 = disabled
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // "gemini", "openai", "ollama", "mock"
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"` // Environment variable for API key
	Dimension   int    `yaml:"dimension"`   // 0 = derive from model
	BatchSize   int    `yaml:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// GenerationConfig holds generative model configuration.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"` // "gemini", "openai", "ollama", "mock"
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float32 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries"`
	PromptFile  string  `yaml:"prompt_file"` // optional text/template overriding the built-in prompt
}

// ChatConfig holds interactive loop configuration.
type ChatConfig struct {
	ExitWords []string `yaml:"exit_words"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Docs: DocsConfig{
			Dir:      "docs",
			Includes: []string{"**/*.pdf", "**/*.txt", "**/*.md"},
			Excludes: []string{"**/.git/**", "**/.*/**"},
		},
		Index: IndexConfig{
			Path:   filepath.Join("vectorstore", "faiss_index"),
			Metric: string(domain.MetricCosine),
		},
		Chunk: ChunkConfig{
			MaxSize: 1000,
			Overlap: 200,
		},
		Retrieve: RetrieveConfig{
			TopK:            4,
			MaxContextChars: 8000,
			CacheSize:       128,
		},
		Embedding: EmbeddingConfig{
			Provider:    "gemini",
			Model:       "text-embedding-004",
			APIKeyEnv:   "GEMINI_API_KEY",
			BatchSize:   100,
			TimeoutSecs: 60,
			MaxRetries:  3,
		},
		Generation: GenerationConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-flash",
			APIKeyEnv:   "GEMINI_API_KEY",
			Temperature: 0.2,
			TimeoutSecs: 120,
			MaxRetries:  2,
		},
		Chat: ChatConfig{
			ExitWords: []string{"exit", "sair", "quit"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for pdfrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "pdfrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".pdfrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the settings every pipeline depends on.
func (c *Config) Validate() error {
	if c.Chunk.MaxSize <= 0 {
		return fmt.Errorf("%w: chunk.max_size must be positive, got %d", domain.ErrInvalidConfig, c.Chunk.MaxSize)
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.MaxSize {
		return fmt.Errorf("%w: chunk.overlap must be in [0, %d), got %d", domain.ErrInvalidConfig, c.Chunk.MaxSize, c.Chunk.Overlap)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("%w: retrieve.top_k must be positive, got %d", domain.ErrInvalidConfig, c.Retrieve.TopK)
	}
	if c.Retrieve.MaxContextChars < 0 {
		return fmt.Errorf("%w: retrieve.max_context_chars must not be negative", domain.ErrInvalidConfig)
	}
	if _, err := domain.ParseMetric(c.Index.Metric); err != nil {
		return err
	}
	if strings.TrimSpace(c.Index.Path) == "" {
		return fmt.Errorf("%w: index.path is empty", domain.ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Docs.Dir) == "" {
		return fmt.Errorf("%w: docs.dir is empty", domain.ErrInvalidConfig)
	}
	if c.Embedding.Dimension < 0 {
		return fmt.Errorf("%w: embedding.dimension must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}

// APIKey returns the embedding credential from the environment.
func (e EmbeddingConfig) APIKey() string {
	if e.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(e.APIKeyEnv)
}

// APIKey returns the generation credential from the environment.
func (g GenerationConfig) APIKey() string {
	if g.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(g.APIKeyEnv)
}

// IndexDBPath returns the path of the bbolt file inside an index directory.
func IndexDBPath(indexDir string) string {
	return filepath.Join(indexDir, "index.db")
}
