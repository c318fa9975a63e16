package extract

import (
	"context"
	"fmt"
	"log/slog"
)

// Router composes the sniffer and the dispatch table: classify a staged
// attachment, pick the first matching extractor, and return one
// normalized Result. Structural extractor failures (OCR, PDF parse)
// propagate to the caller; the plain-text fallback never fails.
type Router struct {
	registry *Registry
	logger   *slog.Logger
}

func NewRouter(registry *Registry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{registry: registry, logger: logger}
}

func (r *Router) Extract(ctx context.Context, job Job) (Result, error) {
	job.Format = SniffFile(job.LocalPath)

	extractor, err := r.registry.Resolve(job.Format, job.FileName)
	if err != nil {
		// Only reachable without a catch-all registered.
		return Result{Kind: KindUnknown, Text: ""}, err
	}

	if max := extractor.MaxFileSize(); max > 0 && job.FileSize > max {
		return Result{Kind: job.Format.Kind, Text: ""},
			fmt.Errorf("file exceeds %s limit (%dMB)", extractor.Name(), max/(1<<20))
	}

	r.logger.Debug("dispatching attachment",
		"kind", job.Format.Kind,
		"mime", job.Format.MIME,
		"extractor", extractor.Name(),
		"file", job.FileName,
		"bytes", job.FileSize)

	res, err := extractor.Extract(ctx, job)
	if res.Kind == "" {
		res.Kind = job.Format.Kind
	}
	if res.Kind == "" {
		res.Kind = KindUnknown
	}
	return res, err
}
