// Package extract converts document binaries into plain text. Adapters treat
// corrupted or unreadable input as "no text", never as an error: downstream
// tiers cannot distinguish a broken file from a file with nothing to find.
package extract

import (
	"context"
	"path/filepath"
	"strings"
)

// TextExtractor converts a single binary into text.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// Result is the outcome of routing a document through an adapter.
type Result struct {
	Text string
	OCR  bool
}

// Router picks the text extraction adapter matching a document's file type.
type Router struct {
	pdf   TextExtractor
	image TextExtractor
}

// NewRouter creates a router over the PDF and image adapters.
func NewRouter(pdf, image TextExtractor) *Router {
	return &Router{pdf: pdf, image: image}
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tiff": true,
	".bmp":  true,
}

// Extract routes the binary by filename extension. Unknown file types yield
// an empty result, which the cascade treats as insufficient text.
func (r *Router) Extract(ctx context.Context, data []byte, filename string) (Result, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case ext == ".pdf":
		text, err := r.pdf.ExtractText(ctx, data)
		if err != nil {
			return Result{}, err
		}
		return Result{Text: text}, nil
	case imageExtensions[ext]:
		text, err := r.image.ExtractText(ctx, data)
		if err != nil {
			return Result{}, err
		}
		return Result{Text: text, OCR: true}, nil
	default:
		return Result{}, nil
	}
}
