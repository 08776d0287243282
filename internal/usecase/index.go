package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pdfrag/internal/adapter/memstore"
	"pdfrag/internal/adapter/store"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// IndexUseCase builds a vector index from a directory of documents.
type IndexUseCase struct {
	loader    port.DocumentLoader
	chunker   port.Chunker
	embedder  port.Embedder
	store     *store.BoltIndexStore
	metric    domain.Metric
	batchSize int
	logger    *slog.Logger
}

// IndexOptions tunes an IndexUseCase. Zero values take defaults.
type IndexOptions struct {
	Metric    domain.Metric
	BatchSize int
	Logger    *slog.Logger
}

// NewIndexUseCase creates a new index use case.
func NewIndexUseCase(
	loader port.DocumentLoader,
	chunker port.Chunker,
	embedder port.Embedder,
	store *store.BoltIndexStore,
	opts IndexOptions,
) *IndexUseCase {
	if opts.Metric == "" {
		opts.Metric = domain.MetricCosine
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &IndexUseCase{
		loader:    loader,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		metric:    opts.Metric,
		batchSize: opts.BatchSize,
		logger:    opts.Logger,
	}
}

// ProgressFunc receives the number of chunks embedded so far and the total.
type ProgressFunc func(done, total int)

// IndexResult contains the results of an indexing operation.
type IndexResult struct {
	Files     int
	Documents int
	Chunks    int
	Dimension int
	Path      string
	Elapsed   time.Duration
}

// Build loads, chunks and embeds everything under src and persists the index
// to dst. Nothing is written unless every stage succeeds.
func (u *IndexUseCase) Build(ctx context.Context, src, dst string, progress ProgressFunc) (*IndexResult, error) {
	start := time.Now()

	docs, err := u.loader.Load(src)
	if err != nil {
		return nil, domain.Stage("load", err)
	}

	files := make(map[string]struct{})
	var chunks []domain.Chunk
	for _, doc := range docs {
		files[doc.Source] = struct{}{}
		docChunks, err := u.chunker.Chunk(doc)
		if err != nil {
			return nil, domain.Stage("chunk", fmt.Errorf("failed to chunk %s: %w", doc.Source, err))
		}
		chunks = append(chunks, docChunks...)
	}
	u.logger.Info("loaded documents", "files", len(files), "documents", len(docs), "chunks", len(chunks))

	vectors, err := u.embedChunks(ctx, chunks, progress)
	if err != nil {
		return nil, domain.Stage("embed", err)
	}

	entries := make([]domain.IndexEntry, len(chunks))
	for i := range chunks {
		entries[i] = domain.IndexEntry{Vector: vectors[i], Chunk: chunks[i]}
	}

	idx, err := memstore.Build(entries, u.metric, u.embedder.ModelName())
	if err != nil {
		return nil, domain.Stage("build", err)
	}

	if err := u.store.Persist(idx, dst); err != nil {
		return nil, domain.Stage("persist", err)
	}

	result := &IndexResult{
		Files:     len(files),
		Documents: len(docs),
		Chunks:    len(chunks),
		Dimension: idx.Info().Dimension,
		Path:      dst,
		Elapsed:   time.Since(start),
	}
	u.logger.Info("index built", "path", dst, "chunks", result.Chunks, "dimension", result.Dimension, "elapsed", result.Elapsed)
	return result, nil
}

func (u *IndexUseCase) embedChunks(ctx context.Context, chunks []domain.Chunk, progress ProgressFunc) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	if progress != nil {
		progress(0, len(chunks))
	}

	for i := 0; i < len(chunks); i += u.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := i + u.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-i)
		for j, c := range chunks[i:end] {
			texts[j] = c.Text
		}

		batch, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks %d-%d: %w", i, end-1, err)
		}
		if len(batch) != len(texts) {
			return nil, &domain.ProviderError{
				Op:       "embed",
				Provider: u.embedder.ModelName(),
				Err:      fmt.Errorf("requested %d embeddings, got %d", len(texts), len(batch)),
			}
		}
		vectors = append(vectors, batch...)

		u.logger.Debug("embedded batch", "from", i, "to", end, "total", len(chunks))
		if progress != nil {
			progress(end, len(chunks))
		}
	}

	return vectors, nil
}
