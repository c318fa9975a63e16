package ocr

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds how many OCR subprocesses run at once across all
// in-flight chat requests.
type Limiter struct {
	sem *semaphore.Weighted
}

func NewLimiter(max int64) *Limiter {
	if max < 1 {
		max = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(max)}
}

// Acquire blocks until a slot is free or ctx is done. The returned
// release func must be called exactly once.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if l == nil || l.sem == nil {
		return func() {}, nil
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { l.sem.Release(1) }, nil
}
