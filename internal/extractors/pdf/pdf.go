package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/toricodesthings/document-relay-service/internal/extract"
	"github.com/toricodesthings/document-relay-service/internal/poppler"
)

// ParseError means the PDF structure itself could not be opened or
// read. It is fatal for the extraction attempt.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("pdf parse: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// OCRError means the scanned-page fallback failed mid-loop. A single
// page's render or OCR failure aborts the whole fallback; there is no
// per-page skip, so partial OCR output is never returned.
type OCRError struct {
	Page int
	Err  error
}

func (e *OCRError) Error() string { return fmt.Sprintf("pdf ocr page %d: %v", e.Page, e.Err) }
func (e *OCRError) Unwrap() error { return e.Err }

// PageOCR recognizes text in a rasterized page image. Implemented by
// the image extractor.
type PageOCR interface {
	Text(ctx context.Context, png []byte) (string, error)
}

// Extractor tries the text layer first and only pays the OCR cost for
// documents below the direct-extraction threshold, and then only for a
// bounded number of leading pages.
type Extractor struct {
	ocr          PageOCR
	popCfg       poppler.Config
	minTextChars int
	maxOCRPages  int
	maxBytes     int64
	logger       *slog.Logger

	// poppler entry points, swappable in tests
	info       func(ctx context.Context, path string, cfg poppler.Config) (poppler.Info, error)
	text       func(ctx context.Context, path string, cfg poppler.Config) (string, error)
	renderPage func(ctx context.Context, path string, page int, cfg poppler.Config) ([]byte, error)
}

func New(ocr PageOCR, popCfg poppler.Config, minTextChars, maxOCRPages int, maxBytes int64, logger *slog.Logger) *Extractor {
	if minTextChars <= 0 {
		minTextChars = 100
	}
	if maxOCRPages <= 0 {
		maxOCRPages = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		ocr:          ocr,
		popCfg:       popCfg,
		minTextChars: minTextChars,
		maxOCRPages:  maxOCRPages,
		maxBytes:     maxBytes,
		logger:       logger,
		info:         poppler.GetInfo,
		text:         poppler.ExtractText,
		renderPage:   poppler.RenderPage,
	}
}

func (e *Extractor) Name() string       { return "document/pdf" }
func (e *Extractor) MaxFileSize() int64 { return e.maxBytes }

// Matches accepts a confident content sniff or, only when the sniff is
// inconclusive, a lenient filename hint. PDFs are the one format
// where hint-based detection is retained as a secondary signal.
func (e *Extractor) Matches(f extract.Format, fileName string) bool {
	if f.Kind == extract.KindPDF {
		return true
	}
	if f.Kind != extract.KindUnknown {
		return false
	}
	return strings.Contains(strings.ToLower(fileName), ".pdf")
}

func (e *Extractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	info, err := e.info(ctx, job.LocalPath, e.popCfg)
	if err != nil {
		return extract.Result{Kind: extract.KindPDF, Text: ""}, &ParseError{Err: err}
	}

	direct, err := e.text(ctx, job.LocalPath, e.popCfg)
	if err != nil {
		return extract.Result{Kind: extract.KindPDF, Text: ""}, &ParseError{Err: err}
	}

	direct = strings.TrimSpace(direct)
	if extract.CountChars(direct) >= e.minTextChars {
		e.logger.Debug("pdf text layer sufficient",
			"chars", extract.CountChars(direct), "pages", info.Pages)
		return extract.Result{Kind: extract.KindPDF, Text: direct, PageCount: info.Pages}, nil
	}

	text, err := e.ocrFallback(ctx, job.LocalPath, info.Pages)
	if err != nil {
		return extract.Result{Kind: extract.KindPDF, Text: ""}, err
	}
	return extract.Result{Kind: extract.KindPDF, Text: text, PageCount: info.Pages}, nil
}

// ocrFallback rasterizes the first maxOCRPages pages and OCRs each in
// order. Pages yielding no text contribute nothing, not even a marker.
// An empty overall result is legitimate (a genuinely blank scan).
func (e *Extractor) ocrFallback(ctx context.Context, path string, totalPages int) (string, error) {
	pages := totalPages
	if pages > e.maxOCRPages {
		pages = e.maxOCRPages
	}

	e.logger.Debug("pdf text layer below threshold, running OCR fallback",
		"ocrPages", pages, "totalPages", totalPages)

	var parts []string
	for page := 1; page <= pages; page++ {
		png, err := e.renderPage(ctx, path, page, e.popCfg)
		if err != nil {
			return "", &OCRError{Page: page, Err: err}
		}

		pageText, err := e.ocr.Text(ctx, png)
		if err != nil {
			return "", &OCRError{Page: page, Err: err}
		}

		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[PAGE %d]\n%s", page, pageText))
	}

	return strings.TrimSpace(strings.Join(parts, "\n\n")), nil
}
