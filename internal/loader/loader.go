// Package loader extracts resume text from PDF files.
package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/logger"
)

// PageSeparator joins the text of consecutive pages.
const PageSeparator = "\n\n"

// PageReader returns the plain text of every page of the file at path, in page order.
type PageReader interface {
	ReadPages(ctx context.Context, path string) ([]string, error)
}

// PDFReader reads pages with github.com/ledongthuc/pdf.
type PDFReader struct{}

func (PDFReader) ReadPages(ctx context.Context, path string) (pages []string, err error) {
	// the parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("parse pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// Loader turns one PDF file into at most one document.
type Loader struct {
	reader PageReader
	logger *zap.Logger
}

// New creates a Loader. A nil reader selects PDFReader.
func New(reader PageReader, log *zap.Logger) *Loader {
	if reader == nil {
		reader = PDFReader{}
	}
	return &Loader{reader: reader, logger: logger.Named(log, "loader")}
}

// Load returns a single document holding the text of every page, tagged with the file's base
// name. It returns no documents when the file has no extractable text or cannot be read; read
// failures are logged, not returned.
func (l *Loader) Load(ctx context.Context, path string) []domain.Document {
	pages, err := l.reader.ReadPages(ctx, path)
	if err != nil {
		l.logger.Error("failed to load resume", zap.String("path", path), zap.Error(err))
		return nil
	}

	text := strings.Join(pages, PageSeparator)
	if strings.TrimSpace(text) == "" {
		l.logger.Info("resume has no extractable text", zap.String("path", path))
		return nil
	}

	return []domain.Document{domain.NewDocument(text, path)}
}
