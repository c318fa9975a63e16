// Package logstore keeps the append-only record of every processed
// turn: one file per calendar day, one delimited block per entry, never
// mutated after write.
package logstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Record struct {
	Time     time.Time
	UserID   string
	Kind     string
	FileName string
	Text     string
}

type Store struct {
	dir string

	mu sync.Mutex
}

func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logstore dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Append writes one record to the current day's file.
func (s *Store) Append(rec Record) error {
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}

	path := filepath.Join(s.dir, rec.Time.Format("2006-01-02")+".log")

	var b strings.Builder
	b.WriteString("=== ")
	b.WriteString(rec.Time.Format(time.RFC3339))
	b.WriteString(" ===\n")
	fmt.Fprintf(&b, "user: %s\n", rec.UserID)
	fmt.Fprintf(&b, "kind: %s\n", rec.Kind)
	if rec.FileName != "" {
		fmt.Fprintf(&b, "file: %s\n", sanitizeLine(rec.FileName))
	}
	fmt.Fprintf(&b, "chars: %d\n", len([]rune(rec.Text)))
	b.WriteString(rec.Text)
	b.WriteString("\n\n")

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logstore open: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("logstore write: %w", err)
	}
	return nil
}

// Preview returns a display-safe, single-line prefix of text.
func Preview(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return text
}

func sanitizeLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}
