package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != "polling" {
		t.Errorf("Mode = %q, want polling", cfg.Mode)
	}
	if cfg.MaxImageBytes != 10<<20 {
		t.Errorf("MaxImageBytes = %d, want %d", cfg.MaxImageBytes, 10<<20)
	}
	if cfg.MaxDocumentBytes != 20<<20 {
		t.Errorf("MaxDocumentBytes = %d, want %d", cfg.MaxDocumentBytes, 20<<20)
	}
	if cfg.OCRLanguages != "eng+rus" {
		t.Errorf("OCRLanguages = %q, want eng+rus", cfg.OCRLanguages)
	}
	if cfg.MinPDFTextChars != 100 {
		t.Errorf("MinPDFTextChars = %d, want 100", cfg.MinPDFTextChars)
	}
	if cfg.MaxOCRPages != 5 {
		t.Errorf("MaxOCRPages = %d, want 5", cfg.MaxOCRPages)
	}
	if cfg.BackendBaseURL != "https://general-runtime.voiceflow.com" {
		t.Errorf("BackendBaseURL = %q", cfg.BackendBaseURL)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")
	data := []byte("ocr_languages: deu\nmax_ocr_pages: 3\nbackend_timeout: 10s\nmode: webhook\nwebhook_url: https://bot.example.com/telegram\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OCRLanguages != "deu" {
		t.Errorf("OCRLanguages = %q, want deu", cfg.OCRLanguages)
	}
	if cfg.MaxOCRPages != 3 {
		t.Errorf("MaxOCRPages = %d, want 3", cfg.MaxOCRPages)
	}
	if cfg.BackendTimeout != 10*time.Second {
		t.Errorf("BackendTimeout = %v, want 10s", cfg.BackendTimeout)
	}
	// untouched keys keep their defaults
	if cfg.MinPDFTextChars != 100 {
		t.Errorf("MinPDFTextChars = %d, want default 100", cfg.MinPDFTextChars)
	}
	if cfg.Validate() == nil {
		t.Error("expected Validate to fail without secrets")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")
	if err := os.WriteFile(path, []byte("ocr_languages: deu\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OCR_LANGUAGES", "eng+fra")
	t.Setenv("MAX_OCR_PAGES", "2")
	t.Setenv("VERBOSE", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OCRLanguages != "eng+fra" {
		t.Errorf("OCRLanguages = %q, want env value eng+fra", cfg.OCRLanguages)
	}
	if cfg.MaxOCRPages != 2 {
		t.Errorf("MaxOCRPages = %d, want 2", cfg.MaxOCRPages)
	}
	if !cfg.Verbose {
		t.Error("Verbose should be set from env")
	}
}

func TestEnvRejectsGarbage(t *testing.T) {
	t.Setenv("MAX_OCR_PAGES", "not-a-number")
	t.Setenv("OCR_TIMEOUT", "-5s")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxOCRPages != 5 {
		t.Errorf("MaxOCRPages = %d, want default 5 on bad env", cfg.MaxOCRPages)
	}
	if cfg.OCRTimeout != 60*time.Second {
		t.Errorf("OCRTimeout = %v, want default on non-positive env", cfg.OCRTimeout)
	}
}

func TestValidate(t *testing.T) {
	base := defaults()
	base.TelegramToken = "123:abc"
	base.BackendAPIKey = "VF.key"
	base.BackendVersionID = "production"

	if err := base.Validate(); err != nil {
		t.Fatalf("complete config should validate: %v", err)
	}

	missingToken := base
	missingToken.TelegramToken = ""
	if missingToken.Validate() == nil {
		t.Error("expected error without bot token")
	}

	missingKey := base
	missingKey.BackendAPIKey = "  "
	if missingKey.Validate() == nil {
		t.Error("expected error without backend key")
	}

	badMode := base
	badMode.Mode = "serverless"
	if badMode.Validate() == nil {
		t.Error("expected error for unknown mode")
	}

	webhookNoURL := base
	webhookNoURL.Mode = "webhook"
	if webhookNoURL.Validate() == nil {
		t.Error("webhook mode requires a URL")
	}

	webhookOK := webhookNoURL
	webhookOK.WebhookURL = "https://bot.example.com/telegram"
	if err := webhookOK.Validate(); err != nil {
		t.Errorf("webhook mode with URL should validate: %v", err)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for an explicitly named missing file")
	}
}
