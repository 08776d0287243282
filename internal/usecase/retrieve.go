package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"pdfrag/internal/adapter/memstore"
	"pdfrag/internal/adapter/store"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// OpenIndex loads the persisted index once for a query session.
func OpenIndex(st *store.BoltIndexStore, dir string, expect store.Expectation) (*memstore.FlatIndex, error) {
	idx, err := st.Load(dir, expect)
	if err != nil {
		return nil, domain.Stage("open-index", err)
	}
	return idx, nil
}

// AskUseCase answers questions from retrieved context.
type AskUseCase struct {
	retriever port.Retriever
	packer    port.Packer
	prompts   *PromptBuilder
	llm       port.LLM
	topK      int
	logger    *slog.Logger
}

type AskOptions struct {
	TopK   int
	Logger *slog.Logger
}

// NewAskUseCase creates a new ask use case.
func NewAskUseCase(
	retriever port.Retriever,
	packer port.Packer,
	prompts *PromptBuilder,
	llm port.LLM,
	opts AskOptions,
) *AskUseCase {
	if opts.TopK <= 0 {
		opts.TopK = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &AskUseCase{
		retriever: retriever,
		packer:    packer,
		prompts:   prompts,
		llm:       llm,
		topK:      opts.TopK,
		logger:    opts.Logger,
	}
}

// Retrieve returns the k chunks closest to query without generating.
func (u *AskUseCase) Retrieve(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = u.topK
	}
	return u.retriever.Search(ctx, query, k)
}

// Ask retrieves context for question, asks the model and cites the sources
// the model was shown.
func (u *AskUseCase) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	results, err := u.retriever.Search(ctx, question, u.topK)
	if err != nil {
		return nil, err
	}

	contextText, packed := u.packer.Pack(results)
	u.logger.Debug("retrieved context", "results", len(results), "packed", len(packed), "chars", len(contextText))

	prompt, err := u.prompts.Build(contextText, question)
	if err != nil {
		return nil, domain.Stage("generate", err)
	}

	text, err := u.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, domain.Stage("generate", fmt.Errorf("failed to generate answer: %w", err))
	}

	return &domain.Answer{
		Question:  question,
		Text:      text,
		Citations: Citations(packed),
		Results:   results,
		Prompt:    prompt,
	}, nil
}
