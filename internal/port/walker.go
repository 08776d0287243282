package port

import "pdfrag/internal/domain"

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string // root joined with Rel
	Rel     string // slash-separated, relative to the walked root
	ModTime int64
	Size    int64
}

// DocumentLoader turns a source directory into documents.
type DocumentLoader interface {
	Load(root string) ([]domain.Document, error)
}
