package image

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/toricodesthings/document-relay-service/internal/extract"
	"github.com/toricodesthings/document-relay-service/internal/imaging"
	"github.com/toricodesthings/document-relay-service/internal/ocr"
)

// Extractor recognizes text in raster images: normalize to a bounded
// canonical PNG, then run the OCR engine. Engine failures propagate as
// *ocr.Error; the caller decides fallback behavior, not this layer.
type Extractor struct {
	engine   ocr.Engine
	maxWidth int
	maxBytes int64
	logger   *slog.Logger
}

func New(engine ocr.Engine, maxWidth int, maxBytes int64, logger *slog.Logger) *Extractor {
	if maxWidth <= 0 {
		maxWidth = imaging.DefaultMaxWidth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{engine: engine, maxWidth: maxWidth, maxBytes: maxBytes, logger: logger}
}

func (e *Extractor) Name() string       { return "image" }
func (e *Extractor) MaxFileSize() int64 { return e.maxBytes }

func (e *Extractor) Matches(f extract.Format, fileName string) bool {
	return f.Kind == extract.KindImage
}

func (e *Extractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	buf, err := os.ReadFile(job.LocalPath)
	if err != nil {
		return extract.Result{Kind: extract.KindImage, Text: ""}, fmt.Errorf("read image: %w", err)
	}

	text, err := e.Text(ctx, buf)
	if err != nil {
		return extract.Result{Kind: extract.KindImage, Text: ""}, err
	}
	return extract.Result{Kind: extract.KindImage, Text: text}, nil
}

// Text runs the full normalize-then-recognize pipeline over an image
// buffer. It is shared with the PDF fallback path, which feeds it
// rasterized pages.
func (e *Extractor) Text(ctx context.Context, buf []byte) (string, error) {
	png, err := imaging.Normalize(buf, e.maxWidth)
	if err != nil {
		return "", &ocr.Error{Err: fmt.Errorf("preprocess: %w", err)}
	}

	text, err := e.engine.Recognize(ctx, png)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
