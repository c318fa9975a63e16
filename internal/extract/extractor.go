package extract

import "context"

// Extractor is implemented by every document-family handler.
type Extractor interface {
	Extract(ctx context.Context, job Job) (Result, error)
	// Matches reports whether this extractor handles the sniffed format.
	// The file name is an advisory hint only; extractors may consult it as
	// a tie-breaker but must never let it override a confident sniff.
	Matches(f Format, fileName string) bool
	Name() string
	MaxFileSize() int64
}
