package poppler

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const samplePdfinfoOutput = `Title:          Quarterly Report
Producer:       LibreOffice 7.4
CreationDate:   Mon Mar  2 10:00:00 2026 UTC
Custom Metadata: no
Metadata Stream: no
Tagged:         no
Form:           none
Pages:          12
Encrypted:      no
Page size:      595.276 x 841.89 pts (A4)
File size:      48231 bytes
Optimized:      no
PDF version:    1.7
`

func TestParsePages(t *testing.T) {
	n, err := parsePages(samplePdfinfoOutput)
	if err != nil {
		t.Fatal(err)
	}
	if n != 12 {
		t.Fatalf("pages = %d, want 12", n)
	}
}

func TestParsePagesScannerFallback(t *testing.T) {
	// Some poppler builds emit trailing annotations after the count.
	out := "pages:  7  (approx)\n"
	n, err := parsePages(out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 7 {
		t.Fatalf("pages = %d, want 7", n)
	}
}

func TestParsePagesRejectsMissingOrBogus(t *testing.T) {
	cases := []string{
		"Title: no pages here\n",
		"Pages:          0\n",
		"Pages:          999999\n",
	}
	for _, out := range cases {
		if _, err := parsePages(out); err == nil {
			t.Errorf("expected error for %q", out)
		}
	}
}

func TestEncryptedFlag(t *testing.T) {
	if encryptedRegex.MatchString(samplePdfinfoOutput) {
		t.Fatal("sample document is not encrypted")
	}
	if !encryptedRegex.MatchString("Encrypted:      yes\n") {
		t.Fatal("bare yes must match")
	}
}

func TestWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.InfoTimeout <= 0 || cfg.TextTimeout <= 0 || cfg.RenderTimeout <= 0 {
		t.Fatal("timeouts must default to positive values")
	}
	if cfg.RenderDPI != 200 {
		t.Fatalf("RenderDPI = %d, want 200", cfg.RenderDPI)
	}

	custom := Config{RenderDPI: 150}.withDefaults()
	if custom.RenderDPI != 150 {
		t.Fatalf("explicit DPI overridden: %d", custom.RenderDPI)
	}
}

func TestClassifyPasswordAndDamage(t *testing.T) {
	stderrPassword := "Command Line Error: Incorrect password"
	stderrDamaged := "Syntax Error (1234): Couldn't find trailer dictionary"

	errPw := classifyErr("pdfinfo", errors.New("exit status 1"), context.Background(), stderrPassword)
	if !strings.Contains(errPw.Error(), "password protected") {
		t.Fatalf("password stderr misclassified: %v", errPw)
	}

	errDmg := classifyErr("pdftotext", errors.New("exit status 1"), context.Background(), stderrDamaged)
	if !strings.Contains(errDmg.Error(), "damaged or invalid") {
		t.Fatalf("damage stderr misclassified: %v", errDmg)
	}
}
