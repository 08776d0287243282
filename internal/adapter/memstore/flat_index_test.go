package memstore

import (
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
)

func entry(id string, vec ...float32) domain.IndexEntry {
	return domain.IndexEntry{Vector: vec, Chunk: domain.Chunk{ID: id, Source: id + ".txt", Text: "text " + id}}
}

func ids(results []domain.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Chunk.ID
	}
	return out
}

func TestBuild_Validation(t *testing.T) {
	_, err := Build(nil, domain.MetricCosine, "m")
	assert.ErrorIs(t, err, domain.ErrEmptyInput)

	_, err = Build([]domain.IndexEntry{entry("a", 1, 0), entry("b", 1, 0, 0)}, domain.MetricCosine, "m")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = Build([]domain.IndexEntry{entry("a")}, domain.MetricCosine, "m")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = Build([]domain.IndexEntry{entry("a", 1)}, domain.Metric("dot"), "m")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestBuild_Info(t *testing.T) {
	idx, err := Build([]domain.IndexEntry{entry("a", 1, 0, 0), entry("b", 0, 1, 0)}, domain.MetricL2, "text-embedding-004")
	require.NoError(t, err)

	info := idx.Info()
	assert.Equal(t, 3, info.Dimension)
	assert.Equal(t, domain.MetricL2, info.Metric)
	assert.Equal(t, "text-embedding-004", info.EmbeddingModel)
	assert.Equal(t, 2, info.Entries)
	assert.Equal(t, 2, idx.Len())
	assert.False(t, info.BuiltAt.IsZero())
}

func TestBuild_CopiesVectors(t *testing.T) {
	vec := []float32{1, 0}
	idx, err := Build([]domain.IndexEntry{{Vector: vec, Chunk: domain.Chunk{ID: "a"}}}, domain.MetricCosine, "m")
	require.NoError(t, err)

	vec[0] = -1
	assert.Equal(t, float32(1), idx.Entries()[0].Vector[0])
}

func TestSearch_Cosine(t *testing.T) {
	idx, err := Build([]domain.IndexEntry{
		entry("east", 1, 0),
		entry("north", 0, 1),
		entry("west", -1, 0),
		entry("northeast", 1, 1),
	}, domain.MetricCosine, "m")
	require.NoError(t, err)

	results, err := idx.Search([]float32{2, 0}, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "northeast", "north", "west"}, ids(results))

	assert.InDelta(t, 0, results[0].Distance, 1e-9)
	assert.InDelta(t, 1-1/math.Sqrt2, results[1].Distance, 1e-6)
	assert.InDelta(t, 1, results[2].Distance, 1e-9)
	assert.InDelta(t, 2, results[3].Distance, 1e-9)
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestSearch_L2(t *testing.T) {
	idx, err := Build([]domain.IndexEntry{
		entry("far", 10, 10),
		entry("near", 1, 1),
		entry("origin", 0, 0),
	}, domain.MetricL2, "m")
	require.NoError(t, err)

	results, err := idx.Search([]float32{0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"origin", "near"}, ids(results))
	assert.InDelta(t, math.Sqrt2, results[1].Distance, 1e-6)
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	entries := make([]domain.IndexEntry, 10)
	for i := range entries {
		entries[i] = entry(fmt.Sprintf("c%d", i), 1, 1)
	}
	idx, err := Build(entries, domain.MetricCosine, "m")
	require.NoError(t, err)

	results, err := idx.Search([]float32{1, 1}, 10)
	require.NoError(t, err)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("c%d", i), r.Chunk.ID)
	}
}

func TestSearch_KBounds(t *testing.T) {
	idx, err := Build([]domain.IndexEntry{entry("a", 1, 0), entry("b", 0, 1)}, domain.MetricCosine, "m")
	require.NoError(t, err)

	results, err := idx.Search([]float32{1, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	_, err = idx.Search([]float32{1, 0}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = idx.Search([]float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestSearch_ZeroVector(t *testing.T) {
	idx, err := Build([]domain.IndexEntry{entry("zero", 0, 0), entry("a", 1, 0)}, domain.MetricCosine, "m")
	require.NoError(t, err)

	results, err := idx.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "zero"}, ids(results))
	assert.InDelta(t, 1, results[1].Distance, 1e-9)
}

func TestSearch_Concurrent(t *testing.T) {
	entries := make([]domain.IndexEntry, 100)
	for i := range entries {
		entries[i] = entry(fmt.Sprintf("c%d", i), float32(i), float32(100-i))
	}
	idx, err := Build(entries, domain.MetricCosine, "m")
	require.NoError(t, err)

	want, err := idx.Search([]float32{1, 2}, 5)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := idx.Search([]float32{1, 2}, 5)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestRestore(t *testing.T) {
	idx, err := Build([]domain.IndexEntry{entry("a", 1, 0), entry("b", 0, 1)}, domain.MetricCosine, "m")
	require.NoError(t, err)

	restored, err := Restore(idx.Info(), idx.Entries())
	require.NoError(t, err)
	assert.Equal(t, idx.Info(), restored.Info())

	info := idx.Info()
	info.Dimension = 3
	_, err = Restore(info, idx.Entries())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func BenchmarkSearch(b *testing.B) {
	const n, dim = 5000, 768
	entries := make([]domain.IndexEntry, n)
	seed := uint32(1)
	for i := range entries {
		vec := make([]float32, dim)
		for j := range vec {
			seed = seed*1664525 + 1013904223
			vec[j] = float32(seed>>8)/float32(1<<24) - 0.5
		}
		entries[i] = entry(fmt.Sprint(i), vec...)
	}
	idx, err := Build(entries, domain.MetricCosine, "bench")
	require.NoError(b, err)
	query := entries[n/2].Vector

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := idx.Search(query, 4); err != nil {
			b.Fatal(err)
		}
	}
}
