package logstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAppendWritesDatedFile(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	when := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	err = store.Append(Record{
		Time:     when,
		UserID:   "42",
		Kind:     "document",
		FileName: "report.pdf",
		Text:     "quarterly numbers",
	})
	if err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "2026-03-14.log"))
	if err != nil {
		t.Fatalf("expected dated log file: %v", err)
	}
	got := string(raw)
	for _, want := range []string{
		"=== 2026-03-14T09:26:53Z ===",
		"user: 42",
		"kind: document",
		"file: report.pdf",
		"chars: 17",
		"quarterly numbers",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("log file missing %q:\n%s", want, got)
		}
	}
}

func TestAppendAccumulates(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	when := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	for _, text := range []string{"first", "second"} {
		if err := store.Append(Record{Time: when, UserID: "7", Kind: "text", Text: text}); err != nil {
			t.Fatal(err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, "2026-03-14.log"))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(raw), "=== "); n != 2 {
		t.Fatalf("expected 2 entries, found %d", n)
	}
}

func TestAppendOmitsEmptyFileName(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	when := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if err := store.Append(Record{Time: when, UserID: "1", Kind: "text", Text: "hi"}); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "2026-03-15.log"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "file:") {
		t.Fatalf("file line should be absent for text turns:\n%s", raw)
	}
}

func TestPreview(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 20, "short"},
		{"one\ntwo\tthree", 20, "one two three"},
		{"abcdefghij", 5, "abcde..."},
		{"привет мир", 6, "привет..."},
	}
	for _, tc := range cases {
		if got := Preview(tc.in, tc.max); got != tc.want {
			t.Errorf("Preview(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
