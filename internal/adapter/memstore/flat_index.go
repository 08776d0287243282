package memstore

import (
	"fmt"
	"math"
	"sort"
	"time"

	"pdfrag/internal/domain"
)

// FlatIndex is an exact nearest-neighbour index held in memory.
// It is read-only after Build and safe for concurrent searches.
type FlatIndex struct {
	info    domain.IndexInfo
	entries []domain.IndexEntry
	norms   []float64
}

// Build validates entries and returns an index over copies of them.
func Build(entries []domain.IndexEntry, metric domain.Metric, model string) (*FlatIndex, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: cannot build an index over zero entries", domain.ErrEmptyInput)
	}
	if metric != domain.MetricCosine && metric != domain.MetricL2 {
		return nil, fmt.Errorf("%w: unknown distance metric %q", domain.ErrInvalidConfig, metric)
	}

	dim := len(entries[0].Vector)
	if dim == 0 {
		return nil, fmt.Errorf("%w: entry 0 has an empty vector", domain.ErrInvalidInput)
	}

	idx := &FlatIndex{
		entries: make([]domain.IndexEntry, len(entries)),
		norms:   make([]float64, len(entries)),
	}
	for i, e := range entries {
		if len(e.Vector) != dim {
			return nil, fmt.Errorf("%w: entry %d has dimension %d, expected %d", domain.ErrInvalidInput, i, len(e.Vector), dim)
		}
		vec := make([]float32, dim)
		copy(vec, e.Vector)
		idx.entries[i] = domain.IndexEntry{Vector: vec, Chunk: e.Chunk}
		idx.norms[i] = norm(vec)
	}

	idx.info = domain.IndexInfo{
		SchemaVersion:  1,
		Dimension:      dim,
		Metric:         metric,
		EmbeddingModel: model,
		Entries:        len(entries),
		BuiltAt:        time.Now().UTC(),
	}
	return idx, nil
}

// Restore rebuilds an index from persisted info and entries, keeping info as recorded.
func Restore(info domain.IndexInfo, entries []domain.IndexEntry) (*FlatIndex, error) {
	idx, err := Build(entries, info.Metric, info.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	if idx.info.Dimension != info.Dimension {
		return nil, fmt.Errorf("%w: entries have dimension %d, index declares %d", domain.ErrInvalidInput, idx.info.Dimension, info.Dimension)
	}
	info.Entries = len(entries)
	idx.info = info
	return idx, nil
}

// Search returns the k entries closest to query, nearest first.
func (idx *FlatIndex) Search(query []float32, k int) ([]domain.SearchResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidInput, k)
	}
	if len(query) != idx.info.Dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", domain.ErrDimensionMismatch, len(query), idx.info.Dimension)
	}

	type scored struct {
		pos      int
		distance float64
	}

	qnorm := norm(query)
	scores := make([]scored, len(idx.entries))
	for i, e := range idx.entries {
		var d float64
		if idx.info.Metric == domain.MetricL2 {
			d = l2Distance(query, e.Vector)
		} else {
			d = cosineDistance(query, e.Vector, qnorm, idx.norms[i])
		}
		scores[i] = scored{pos: i, distance: d}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].distance < scores[j].distance
	})

	if k > len(scores) {
		k = len(scores)
	}

	results := make([]domain.SearchResult, k)
	for i := 0; i < k; i++ {
		results[i] = domain.SearchResult{
			Chunk:    idx.entries[scores[i].pos].Chunk,
			Distance: scores[i].distance,
			Rank:     i + 1,
		}
	}
	return results, nil
}

func (idx *FlatIndex) Info() domain.IndexInfo {
	return idx.info
}

func (idx *FlatIndex) Len() int {
	return len(idx.entries)
}

// Entries returns the stored entries in insertion order. Callers must not modify them.
func (idx *FlatIndex) Entries() []domain.IndexEntry {
	return idx.entries
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosineDistance is 1 - cosine similarity; a zero vector is treated as orthogonal.
func cosineDistance(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 1
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return 1 - dot/(normA*normB)
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
