package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	text  string
	calls int
}

func (f *fakeExtractor) ExtractText(_ context.Context, _ []byte) (string, error) {
	f.calls++
	return f.text, nil
}

func TestRouterRoutesByExtension(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantText string
		wantOCR  bool
		wantPDF  int
		wantImg  int
	}{
		{name: "pdf", filename: "invoice.pdf", wantText: "pdf text", wantPDF: 1},
		{name: "pdf uppercase", filename: "INVOICE.PDF", wantText: "pdf text", wantPDF: 1},
		{name: "png", filename: "receipt.png", wantText: "image text", wantOCR: true, wantImg: 1},
		{name: "jpeg", filename: "receipt.JPEG", wantText: "image text", wantOCR: true, wantImg: 1},
		{name: "unknown type", filename: "notes.docx"},
		{name: "no extension", filename: "README"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdf := &fakeExtractor{text: "pdf text"}
			img := &fakeExtractor{text: "image text"}
			router := NewRouter(pdf, img)

			result, err := router.Extract(context.Background(), []byte("data"), tt.filename)
			require.NoError(t, err)

			assert.Equal(t, tt.wantText, result.Text)
			assert.Equal(t, tt.wantOCR, result.OCR)
			assert.Equal(t, tt.wantPDF, pdf.calls)
			assert.Equal(t, tt.wantImg, img.calls)
		})
	}
}
