package port

import "pdfrag/internal/domain"

// Packer assembles retrieved chunks into a bounded context string.
type Packer interface {
	Pack(results []domain.SearchResult) (string, []domain.SearchResult)
}
