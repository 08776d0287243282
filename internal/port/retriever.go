package port

import (
	"context"

	"pdfrag/internal/domain"
)

// Retriever defines the interface for searching indexed content.
type Retriever interface {
	// Search returns the top-k chunks for the query, best first.
	Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
}

// VectorSearcher is a built, read-only vector index.
type VectorSearcher interface {
	Search(query []float32, k int) ([]domain.SearchResult, error)
	Info() domain.IndexInfo
	Len() int
}
