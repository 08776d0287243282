package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode"

	"pdfrag/internal/domain"
)

// separators are tried in order; earlier entries are stronger boundaries.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("! "),
	[]rune("? "),
	[]rune(" "),
}

// RecursiveChunker slides a window of maxSize runes over the text, cutting at
// the strongest natural boundary available in the back half of the window.
type RecursiveChunker struct {
	maxSize int
	overlap int
}

func NewRecursiveChunker(maxSize, overlap int) (*RecursiveChunker, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: chunk max size must be positive, got %d", domain.ErrInvalidConfig, maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", domain.ErrInvalidConfig, maxSize, overlap)
	}
	return &RecursiveChunker{
		maxSize: maxSize,
		overlap: overlap,
	}, nil
}

// Split chunks a bare text tagged with source.
func Split(text, source string, maxSize, overlap int) ([]domain.Chunk, error) {
	c, err := NewRecursiveChunker(maxSize, overlap)
	if err != nil {
		return nil, err
	}
	return c.Chunk(domain.Document{ID: source, Source: source, Text: text})
}

func (c *RecursiveChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	runes := []rune(doc.Text)
	n := len(runes)

	var chunks []domain.Chunk
	start := 0

	for start < n {
		end := start + c.maxSize
		if end >= n {
			end = n
		} else {
			end = c.boundary(runes, start, end)
		}

		chunks = append(chunks, domain.Chunk{
			ID:     generateChunkID(doc.ID, start, end),
			DocID:  doc.ID,
			Source: doc.Source,
			Page:   doc.Page,
			Index:  len(chunks),
			Start:  start,
			End:    end,
			Text:   string(runes[start:end]),
		})

		if end == n {
			break
		}
		start = c.nextStart(runes, start, end)
	}

	return chunks, nil
}

// boundary returns the cut position for the window [start, end). A cut must
// land after start+overlap so the next window still advances.
func (c *RecursiveChunker) boundary(runes []rune, start, end int) int {
	lo := start + c.maxSize/2
	if floor := start + c.overlap + 1; lo < floor {
		lo = floor
	}
	if lo >= end {
		return end
	}

	for _, sep := range separators {
		for i := end - len(sep); i+len(sep) >= lo && i >= start; i-- {
			if hasPrefixAt(runes, i, sep) {
				return i + len(sep)
			}
		}
	}
	return end
}

// nextStart backs up by overlap from end, then moves forward to the next word
// start inside the overlap so a chunk rarely begins mid-word.
func (c *RecursiveChunker) nextStart(runes []rune, start, end int) int {
	next := end - c.overlap
	if next <= start {
		next = start + 1
	}
	if next == end || unicode.IsSpace(runes[next-1]) {
		return next
	}
	for i := next; i < end; i++ {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return next
}

func hasPrefixAt(runes []rune, i int, sep []rune) bool {
	if i < 0 || i+len(sep) > len(runes) {
		return false
	}
	for j, r := range sep {
		if runes[i+j] != r {
			return false
		}
	}
	return true
}

func generateChunkID(docID string, start, end int) string {
	data := fmt.Sprintf("%s:%d-%d", docID, start, end)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
