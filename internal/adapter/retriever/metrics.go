package retriever

import (
	"math"
	"path/filepath"

	"pdfrag/internal/domain"
)

// RankedSources returns the base names of the distinct sources in results,
// in rank order. Evaluations judge relevance per document, not per chunk.
func RankedSources(results []domain.SearchResult) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range results {
		name := filepath.Base(r.Chunk.Source)
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func PrecisionAtK(retrieved, relevant []string) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	return float64(hits(retrieved, relevant)) / float64(len(retrieved))
}

func RecallAtK(retrieved, relevant []string) float64 {
	if len(relevant) == 0 {
		return 0
	}
	return float64(hits(retrieved, relevant)) / float64(len(relevant))
}

// ReciprocalRank is 1/rank of the first relevant item, or 0.
func ReciprocalRank(retrieved, relevant []string) float64 {
	set := toSet(relevant)
	for i, r := range retrieved {
		if set[r] {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

func NDCG(scores, ideal []float64) float64 {
	idcg := dcg(ideal)
	if idcg == 0 {
		return 0
	}
	return dcg(scores) / idcg
}

// BinaryNDCG scores retrieved with gain 1 for relevant items.
func BinaryNDCG(retrieved, relevant []string) float64 {
	set := toSet(relevant)
	scores := make([]float64, len(retrieved))
	for i, r := range retrieved {
		if set[r] {
			scores[i] = 1
		}
	}
	n := len(relevant)
	if n > len(retrieved) {
		n = len(retrieved)
	}
	ideal := make([]float64, n)
	for i := range ideal {
		ideal[i] = 1
	}
	return NDCG(scores, ideal)
}

func dcg(scores []float64) float64 {
	sum := 0.0
	for i, score := range scores {
		sum += score / math.Log2(float64(i+2))
	}
	return sum
}

func hits(retrieved, relevant []string) int {
	set := toSet(relevant)
	n := 0
	for _, r := range retrieved {
		if set[r] {
			n++
		}
	}
	return n
}

func toSet(xs []string) map[string]bool {
	set := make(map[string]bool, len(xs))
	for _, x := range xs {
		set[x] = true
	}
	return set
}
