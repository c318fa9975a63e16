package plaintext

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/toricodesthings/document-relay-service/internal/extract"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPlaintextDecodesUTF8(t *testing.T) {
	e := New(0)
	path := writeTemp(t, "note.txt", []byte("  привет, мир  \n"))

	res, err := e.Extract(context.Background(), extract.Job{LocalPath: path})
	if err != nil {
		t.Fatalf("plain-text extraction never errors: %v", err)
	}
	if res.Text != "привет, мир" {
		t.Fatalf("unexpected text %q", res.Text)
	}
}

func TestPlaintextInvalidUTF8IsEmptyNotError(t *testing.T) {
	e := New(0)
	path := writeTemp(t, "blob.bin", []byte{0xFF, 0xFE, 0xC0, 0x01})

	res, err := e.Extract(context.Background(), extract.Job{LocalPath: path})
	if err != nil {
		t.Fatalf("decode failure must not error: %v", err)
	}
	if res.Text != "" {
		t.Fatalf("expected empty text, got %q", res.Text)
	}
}

func TestPlaintextUnreadableFileIsEmptyNotError(t *testing.T) {
	e := New(0)

	res, err := e.Extract(context.Background(), extract.Job{LocalPath: filepath.Join(t.TempDir(), "missing.txt")})
	if err != nil {
		t.Fatalf("read failure must not error: %v", err)
	}
	if res.Text != "" {
		t.Fatalf("expected empty text, got %q", res.Text)
	}
}

func TestPlaintextMatchesEverything(t *testing.T) {
	e := New(0)
	for _, k := range []extract.Kind{extract.KindUnknown, extract.KindPDF, extract.KindImage} {
		if !e.Matches(extract.Format{Kind: k}, "x") {
			t.Fatalf("catch-all must match kind %q", k)
		}
	}
}

func TestHTMLStripsMarkup(t *testing.T) {
	e := NewHTML(0)
	path := writeTemp(t, "page.html", []byte(`<html><head><style>b{color:red}</style></head>
<body><h1>Title</h1><p>Hello <b>world</b></p><script>alert(1)</script></body></html>`))

	res, err := e.Extract(context.Background(), extract.Job{LocalPath: path, Format: extract.Format{Kind: extract.KindHTML}})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Title", "Hello", "world"} {
		if !strings.Contains(res.Text, want) {
			t.Fatalf("missing %q in %q", want, res.Text)
		}
	}
	for _, banned := range []string{"alert(1)", "color:red", "<b>"} {
		if strings.Contains(res.Text, banned) {
			t.Fatalf("markup leaked into %q", res.Text)
		}
	}
}

func TestHTMLMatchesOnlyHTML(t *testing.T) {
	e := NewHTML(0)
	if !e.Matches(extract.Format{Kind: extract.KindHTML}, "page.html") {
		t.Fatal("expected match on HTML kind")
	}
	if e.Matches(extract.Format{Kind: extract.KindUnknown}, "page.bin") {
		t.Fatal("must not match unknown content")
	}
}
