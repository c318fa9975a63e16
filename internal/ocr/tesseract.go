package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Engine recognizes text in a canonical PNG buffer. The production
// implementation shells out to tesseract; tests substitute stubs.
type Engine interface {
	Recognize(ctx context.Context, png []byte) (string, error)
}

// Error wraps any engine failure: crash, timeout or unusable
// invocation. It propagates to the caller unswallowed.
type Error struct {
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("ocr: %v: %s", e.Err, e.Stderr)
	}
	return fmt.Sprintf("ocr: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Tesseract runs the tesseract binary over stdin/stdout with a fixed
// language set. Concurrent invocations are capped by the shared limiter
// so a burst of attachments cannot fork unbounded OCR processes.
type Tesseract struct {
	Binary    string
	Languages string
	Timeout   time.Duration

	limiter *Limiter
	logger  *slog.Logger
}

func NewTesseract(binary, languages string, timeout time.Duration, limiter *Limiter, logger *slog.Logger) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if languages == "" {
		languages = "eng+rus"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tesseract{Binary: binary, Languages: languages, Timeout: timeout, limiter: limiter, logger: logger}
}

// Available reports whether the tesseract binary can be invoked.
func (t *Tesseract) Available() bool {
	return exec.Command(t.Binary, "--version").Run() == nil
}

func (t *Tesseract) Recognize(ctx context.Context, png []byte) (string, error) {
	release, err := t.limiter.Acquire(ctx)
	if err != nil {
		return "", &Error{Err: err}
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.Binary, "stdin", "stdout", "-l", t.Languages, "--psm", "3")
	cmd.Stdin = bytes.NewReader(png)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", &Error{Err: fmt.Errorf("tesseract timeout after %s", t.Timeout)}
		}
		return "", &Error{Stderr: firstLine(stderr.String()), Err: fmt.Errorf("tesseract: %w", err)}
	}

	text := strings.TrimSpace(stdout.String())
	t.logger.Debug("ocr page recognized", "chars", len([]rune(text)), "took", time.Since(start))
	return text, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
