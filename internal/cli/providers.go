package cli

import (
	"pdfrag/config"
	"pdfrag/internal/adapter/cache"
	"pdfrag/internal/adapter/embedding"
	"pdfrag/internal/adapter/llm"
	"pdfrag/internal/adapter/retriever"
	"pdfrag/internal/adapter/store"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
	"pdfrag/internal/usecase"
)

func newIndexStore(cfg *config.Config) *store.BoltIndexStore {
	return store.NewBoltIndexStore(store.ComputeConfigHash(cfg), GetLogger())
}

// openSession loads the index and wires the query pipeline. Generation is
// only set up when withLLM is true so that search works without credentials
// for the generative model.
func openSession(cfg *config.Config, withLLM bool) (*usecase.AskUseCase, error) {
	embedder, err := embedding.FromConfig(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	metric, err := domain.ParseMetric(cfg.Index.Metric)
	if err != nil {
		return nil, err
	}

	idx, err := usecase.OpenIndex(newIndexStore(cfg), resolvePath(cfg.Index.Path), store.Expectation{
		Dimension: embedder.Dimension(),
		Metric:    metric,
		Model:     embedder.ModelName(),
	})
	if err != nil {
		return nil, err
	}

	if cfg.Retrieve.CacheSize > 0 {
		embedder = cache.NewCachedEmbedder(embedder, cache.NewQueryCache(cfg.Retrieve.CacheSize, 0))
	}

	var (
		gen     port.LLM
		prompts *usecase.PromptBuilder
	)
	if withLLM {
		if gen, err = llm.FromConfig(cfg.Generation); err != nil {
			return nil, err
		}
		if prompts, err = usecase.NewPromptBuilder(resolvePromptFile(cfg.Generation.PromptFile)); err != nil {
			return nil, err
		}
	}

	GetLogger().Debug("index opened", "path", cfg.Index.Path, "entries", idx.Len(), "model", idx.Info().EmbeddingModel)

	return usecase.NewAskUseCase(
		retriever.NewSemanticRetriever(idx, embedder),
		usecase.NewPackUseCase(cfg.Retrieve.MaxContextChars),
		prompts,
		gen,
		usecase.AskOptions{TopK: cfg.Retrieve.TopK, Logger: GetLogger()},
	), nil
}

func resolvePromptFile(p string) string {
	if p == "" {
		return ""
	}
	return resolvePath(p)
}
