package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// OCRExtractor recognizes text in images via Tesseract.
type OCRExtractor struct {
	languages []string
}

// NewOCRExtractor creates an OCR adapter for the given languages. Receipts
// in this system are commonly English or Spanish, so those are the defaults.
func NewOCRExtractor(languages []string) *OCRExtractor {
	if len(languages) == 0 {
		languages = []string{"eng", "spa"}
	}
	return &OCRExtractor{languages: languages}
}

// ExtractText runs OCR over the image. Recognition failures of any kind
// yield an empty string rather than an error.
func (e *OCRExtractor) ExtractText(_ context.Context, data []byte) (string, error) {
	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if err := client.SetLanguage(e.languages...); err != nil {
		slog.Warn("failed to set OCR languages", "languages", e.languages, "error", err)
		return "", nil
	}
	if err := client.SetImageFromBytes(data); err != nil {
		slog.Warn("failed to load image for OCR, treating as empty", "error", err)
		return "", nil
	}

	text, err := client.Text()
	if err != nil {
		slog.Warn("OCR recognition failed, treating as empty", "error", err)
		return "", nil
	}

	return strings.TrimSpace(text), nil
}
