package usecase

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"pdfrag/internal/domain"
)

// ContextDelimiter separates packed chunks.
const ContextDelimiter = "\n\n---\n\n"

// PackUseCase turns ranked search results into the context block of a prompt.
type PackUseCase struct {
	maxChars int // 0 = unbounded
}

// NewPackUseCase creates a new pack use case bounded by maxChars runes.
func NewPackUseCase(maxChars int) *PackUseCase {
	if maxChars < 0 {
		maxChars = 0
	}
	return &PackUseCase{maxChars: maxChars}
}

// Pack joins results in rank order, each under a "[n] source (page p)"
// header. Results that would overflow the budget are dropped; a first result
// larger than the whole budget is truncated instead. It returns the context
// and the results it kept.
func (u *PackUseCase) Pack(results []domain.SearchResult) (string, []domain.SearchResult) {
	var sb strings.Builder
	used := 0
	packed := make([]domain.SearchResult, 0, len(results))

	for _, r := range results {
		header := chunkHeader(len(packed)+1, r.Chunk)
		block := header + "\n" + r.Chunk.Text
		cost := utf8.RuneCountInString(block)
		if len(packed) > 0 {
			cost += utf8.RuneCountInString(ContextDelimiter)
		}

		if u.maxChars > 0 && used+cost > u.maxChars {
			if len(packed) > 0 {
				continue
			}
			block = truncateRunes(block, u.maxChars)
			cost = utf8.RuneCountInString(block)
		}

		if len(packed) > 0 {
			sb.WriteString(ContextDelimiter)
		}
		sb.WriteString(block)
		used += cost
		packed = append(packed, r)
	}

	return sb.String(), packed
}

func chunkHeader(n int, c domain.Chunk) string {
	if c.Page > 0 {
		return fmt.Sprintf("[%d] %s (page %d)", n, c.Source, c.Page)
	}
	return fmt.Sprintf("[%d] %s", n, c.Source)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Citations lists each distinct source among results once, in rank order,
// with the pages it contributed in ascending order.
func Citations(results []domain.SearchResult) []domain.Citation {
	var citations []domain.Citation
	index := make(map[string]int)

	for _, r := range results {
		pos, seen := index[r.Chunk.Source]
		if !seen {
			pos = len(citations)
			index[r.Chunk.Source] = pos
			citations = append(citations, domain.Citation{Source: r.Chunk.Source})
		}
		if r.Chunk.Page > 0 && !containsInt(citations[pos].Pages, r.Chunk.Page) {
			citations[pos].Pages = append(citations[pos].Pages, r.Chunk.Page)
		}
	}
	for _, c := range citations {
		sort.Ints(c.Pages)
	}
	return citations
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
