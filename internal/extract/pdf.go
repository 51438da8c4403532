package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// PDFExtractor reads the text layer of a PDF, page-concatenated.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF text-layer extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractText extracts the text layer from every page. A PDF that cannot be
// opened or has no text layer yields an empty string.
func (e *PDFExtractor) ExtractText(_ context.Context, data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		slog.Warn("failed to open PDF, treating as empty", "error", err)
		return "", nil
	}
	defer func() { _ = doc.Close() }()

	var builder strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			slog.Warn("failed to extract PDF page text", "page", i+1, "error", err)
			continue
		}
		if pageText != "" {
			builder.WriteString(pageText)
			builder.WriteString("\n")
		}
	}

	return strings.TrimSpace(builder.String()), nil
}
