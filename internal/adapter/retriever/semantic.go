package retriever

import (
	"context"
	"fmt"

	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// SemanticRetriever embeds the query and searches a vector index with it.
type SemanticRetriever struct {
	index    port.VectorSearcher
	embedder port.Embedder
}

func NewSemanticRetriever(index port.VectorSearcher, embedder port.Embedder) *SemanticRetriever {
	return &SemanticRetriever{
		index:    index,
		embedder: embedder,
	}
}

func (r *SemanticRetriever) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if r.index == nil || r.embedder == nil {
		return nil, fmt.Errorf("%w: semantic search needs an index and an embedder", domain.ErrInvalidConfig)
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, domain.Stage("embed-query", fmt.Errorf("failed to embed query: %w", err))
	}
	if len(embeddings) != 1 {
		return nil, domain.Stage("embed-query", &domain.ProviderError{
			Op:       "embed",
			Provider: r.embedder.ModelName(),
			Err:      fmt.Errorf("expected 1 query embedding, got %d", len(embeddings)),
		})
	}

	results, err := r.index.Search(embeddings[0], k)
	if err != nil {
		return nil, domain.Stage("search", fmt.Errorf("vector search failed: %w", err))
	}
	return results, nil
}
