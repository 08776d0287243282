package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// Loader reads PDFs page by page and text files whole.
type Loader struct {
	walker port.FileWalker
	logger *slog.Logger
}

func NewLoader(walker port.FileWalker, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{walker: walker, logger: logger}
}

func (l *Loader) Load(root string) ([]domain.Document, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: source directory %s does not exist", domain.ErrNoDocumentsFound, root)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrNoDocumentsFound, root)
	}

	files, err := l.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	var docs []domain.Document
	for _, f := range files {
		var fileDocs []domain.Document
		switch strings.ToLower(filepath.Ext(f.Path)) {
		case ".pdf":
			fileDocs, err = loadPDF(f.Path)
		case ".txt", ".md", ".markdown":
			fileDocs, err = loadText(f.Path)
		default:
			l.logger.Debug("skipping unsupported file", "path", f.Path)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f.Path, err)
		}
		if len(fileDocs) == 0 {
			l.logger.Warn("no extractable text", "path", f.Path)
			continue
		}
		l.logger.Debug("loaded file", "path", f.Path, "documents", len(fileDocs))
		docs = append(docs, fileDocs...)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no extractable text under %s", domain.ErrNoDocumentsFound, root)
	}
	return docs, nil
}

func loadPDF(path string) (docs []domain.Document, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		text = normalize(text)
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, domain.Document{
			ID:     generateDocID(path, i),
			Source: path,
			Page:   i,
			Text:   text,
		})
	}
	return docs, nil
}

func loadText(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := normalize(strings.TrimPrefix(string(data), "\ufeff"))
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []domain.Document{{
		ID:     generateDocID(path, 0),
		Source: path,
		Text:   text,
	}}, nil
}

func normalize(text string) string {
	text = strings.ToValidUTF8(text, "\uFFFD")
	return strings.ReplaceAll(text, "\r\n", "\n")
}

func generateDocID(path string, page int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", path, page)))
	return hex.EncodeToString(hash[:8])
}
