package domain

import (
	"fmt"
	"strings"
	"time"
)

// Document is the text of one source unit: a PDF page or a whole text file.
type Document struct {
	ID     string
	Source string // file path as discovered under the source directory
	Page   int    // 1-based PDF page, 0 for unpaged files
	Text   string
}

// Chunk is a contiguous window [Start, End) of a document's text, in runes.
type Chunk struct {
	ID     string `json:"id"`
	DocID  string `json:"doc_id"`
	Source string `json:"source"`
	Page   int    `json:"page,omitempty"`
	Index  int    `json:"index"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Text   string `json:"text"`
}

// Len returns the chunk length in runes.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// IndexEntry pairs a chunk with its embedding.
type IndexEntry struct {
	Vector []float32
	Chunk  Chunk
}

type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

// ParseMetric validates a configured metric name.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case MetricCosine, "":
		return MetricCosine, nil
	case MetricL2:
		return MetricL2, nil
	default:
		return "", fmt.Errorf("%w: unknown distance metric %q", ErrInvalidConfig, s)
	}
}

// IndexInfo is the self-description stored with a persisted index.
type IndexInfo struct {
	SchemaVersion  int       `json:"schema_version"`
	Dimension      int       `json:"dimension"`
	Metric         Metric    `json:"metric"`
	EmbeddingModel string    `json:"embedding_model"`
	Entries        int       `json:"entries"`
	BuiltAt        time.Time `json:"built_at"`
	ConfigHash     string    `json:"config_hash,omitempty"`
}

type SearchResult struct {
	Chunk    Chunk   `json:"chunk"`
	Distance float64 `json:"distance"`
	Rank     int     `json:"rank"`
}

// Citation names one distinct source used to ground an answer.
type Citation struct {
	Source string `json:"source"`
	Pages  []int  `json:"pages,omitempty"`
}

func (c Citation) String() string {
	if len(c.Pages) == 0 {
		return c.Source
	}
	pages := make([]string, len(c.Pages))
	for i, p := range c.Pages {
		pages[i] = fmt.Sprint(p)
	}
	return fmt.Sprintf("%s (p. %s)", c.Source, strings.Join(pages, ", "))
}

type Answer struct {
	Question  string         `json:"question"`
	Text      string         `json:"answer"`
	Citations []Citation     `json:"sources"`
	Results   []SearchResult `json:"results,omitempty"`
	Prompt    string         `json:"-"`
}
