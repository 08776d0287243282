package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/config"
	"pdfrag/internal/adapter/chunker"
	"pdfrag/internal/adapter/embedding"
	"pdfrag/internal/adapter/fs"
	"pdfrag/internal/adapter/store"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// flakyEmbedder delegates to a mock until failAt batches have been served.
type flakyEmbedder struct {
	inner  *embedding.MockEmbedder
	calls  int
	failAt int
}

func (f *flakyEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls == f.failAt {
		return nil, &domain.ProviderError{Op: "embed", Provider: "flaky", StatusCode: 500, Retryable: true, Err: errors.New("upstream exploded")}
	}
	return f.inner.Embed(ctx, texts)
}
func (f *flakyEmbedder) Dimension() int    { return f.inner.Dimension() }
func (f *flakyEmbedder) ModelName() string { return f.inner.ModelName() }

// shortEmbedder returns one vector too few.
type shortEmbedder struct{ *embedding.MockEmbedder }

func (s shortEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := s.MockEmbedder.Embed(ctx, texts)
	return vecs[:len(vecs)-1], err
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"go.txt":      strings.Repeat("Go is a statically typed compiled language designed at Google. ", 40),
		"rag.md":      strings.Repeat("Retrieval augmented generation grounds answers in documents. ", 40),
		"sub/cats.md": "Cats sleep for most of the day and enjoy warm windowsills.",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func newIndexUseCase(t *testing.T, embedder port.Embedder, batch int) *IndexUseCase {
	t.Helper()
	loader := fs.NewLoader(fs.NewWalker([]string{"**/*.txt", "**/*.md", "**/*.pdf"}, nil), nil)
	ch, err := chunker.NewRecursiveChunker(300, 50)
	require.NoError(t, err)
	return NewIndexUseCase(loader, ch, embedder, store.NewBoltIndexStore("", nil), IndexOptions{BatchSize: batch})
}

func TestIndexBuild(t *testing.T) {
	src := writeCorpus(t)
	dst := filepath.Join(t.TempDir(), "vectorstore", "faiss_index")

	var lastDone, lastTotal, calls int
	uc := newIndexUseCase(t, embedding.NewMockEmbedder(64), 4)
	result, err := uc.Build(context.Background(), src, dst, func(done, total int) {
		calls++
		assert.GreaterOrEqual(t, done, lastDone)
		lastDone, lastTotal = done, total
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Files)
	assert.Equal(t, 3, result.Documents)
	assert.Greater(t, result.Chunks, 3)
	assert.Equal(t, 64, result.Dimension)
	assert.Equal(t, dst, result.Path)
	assert.Equal(t, result.Chunks, lastDone)
	assert.Equal(t, result.Chunks, lastTotal)
	assert.Greater(t, calls, 1)
	assert.FileExists(t, config.IndexDBPath(dst))

	idx, err := store.NewBoltIndexStore("", nil).Load(dst, store.Expectation{Dimension: 64, Model: "mock"})
	require.NoError(t, err)
	assert.Equal(t, result.Chunks, idx.Len())
}

func TestIndexBuild_EmptySource(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "index")

	_, err := newIndexUseCase(t, embedding.NewMockEmbedder(8), 10).Build(context.Background(), t.TempDir(), dst, nil)
	assert.ErrorIs(t, err, domain.ErrNoDocumentsFound)
	assert.Equal(t, "load", domain.StageOf(err))
	assert.NoDirExists(t, dst)
}

func TestIndexBuild_EmbeddingFailureWritesNothing(t *testing.T) {
	src := writeCorpus(t)
	dst := filepath.Join(t.TempDir(), "index")

	embedder := &flakyEmbedder{inner: embedding.NewMockEmbedder(8), failAt: 2}
	_, err := newIndexUseCase(t, embedder, 2).Build(context.Background(), src, dst, nil)
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Equal(t, "embed", domain.StageOf(err))
	assert.NoFileExists(t, config.IndexDBPath(dst))
}

func TestIndexBuild_EmbeddingFailureKeepsPreviousIndex(t *testing.T) {
	src := writeCorpus(t)
	dst := filepath.Join(t.TempDir(), "index")

	first, err := newIndexUseCase(t, embedding.NewMockEmbedder(8), 10).Build(context.Background(), src, dst, nil)
	require.NoError(t, err)

	embedder := &flakyEmbedder{inner: embedding.NewMockEmbedder(8), failAt: 1}
	_, err = newIndexUseCase(t, embedder, 10).Build(context.Background(), src, dst, nil)
	require.Error(t, err)

	idx, err := store.NewBoltIndexStore("", nil).Load(dst, store.Expectation{})
	require.NoError(t, err)
	assert.Equal(t, first.Chunks, idx.Len())
}

func TestIndexBuild_WrongVectorCount(t *testing.T) {
	src := writeCorpus(t)
	dst := filepath.Join(t.TempDir(), "index")

	_, err := newIndexUseCase(t, shortEmbedder{embedding.NewMockEmbedder(8)}, 5).Build(context.Background(), src, dst, nil)
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.NoFileExists(t, config.IndexDBPath(dst))
}

func TestIndexBuild_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newIndexUseCase(t, embedding.NewMockEmbedder(8), 5).Build(ctx, writeCorpus(t), filepath.Join(t.TempDir(), "index"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
