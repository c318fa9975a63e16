package ocr

import (
	"context"
	"testing"
	"time"
)

func TestLimiterBoundsConcurrency(t *testing.T) {
	l := NewLimiter(1)

	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// Second slot must block until the first is released.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx); err == nil {
		t.Fatal("second acquire should block while the slot is held")
	}

	release()
	release2, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	release2()
}

func TestNilLimiterIsUnbounded(t *testing.T) {
	var l *Limiter
	for i := 0; i < 10; i++ {
		release, err := l.Acquire(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		release()
	}
}
