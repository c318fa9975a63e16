package plaintext

import (
	"context"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/toricodesthings/document-relay-service/internal/extract"
)

// Extractor is the terminal fallback: interpret the buffer as UTF-8
// plain text. It matches everything, never fails, and returns empty
// text for buffers that do not decode.
type Extractor struct {
	maxBytes int64
}

func New(maxBytes int64) *Extractor {
	return &Extractor{maxBytes: maxBytes}
}

func (e *Extractor) Name() string       { return "text" }
func (e *Extractor) MaxFileSize() int64 { return e.maxBytes }

func (e *Extractor) Matches(f extract.Format, fileName string) bool { return true }

func (e *Extractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	buf, err := os.ReadFile(job.LocalPath)
	if err != nil {
		return extract.Result{Kind: extract.KindUnknown, Text: ""}, nil
	}
	if !utf8.Valid(buf) {
		return extract.Result{Kind: extract.KindUnknown, Text: ""}, nil
	}
	return extract.Result{Kind: extract.KindUnknown, Text: strings.TrimSpace(string(buf))}, nil
}
