package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Secrets
	TelegramToken    string `yaml:"telegram_token"`
	BackendAPIKey    string `yaml:"backend_api_key"`
	BackendVersionID string `yaml:"backend_version_id"`

	// Backend
	BackendBaseURL string        `yaml:"backend_base_url"`
	BackendTimeout time.Duration `yaml:"backend_timeout"`
	MaxRelayChars  int           `yaml:"max_relay_chars"`

	// Transport
	Mode       string `yaml:"mode"` // "polling" or "webhook"
	WebhookURL string `yaml:"webhook_url"`
	ListenAddr string `yaml:"listen_addr"`

	// Limits
	MaxImageBytes    int64 `yaml:"max_image_bytes"`
	MaxDocumentBytes int64 `yaml:"max_document_bytes"`

	// OCR
	TesseractBinary  string        `yaml:"tesseract_binary"`
	OCRLanguages     string        `yaml:"ocr_languages"`
	OCRTimeout       time.Duration `yaml:"ocr_timeout"`
	MaxOCRConcurrent int64         `yaml:"max_ocr_concurrent"`
	MaxImageWidth    int           `yaml:"max_image_width"`

	// PDF pipeline
	MinPDFTextChars  int           `yaml:"min_pdf_text_chars"`
	MaxOCRPages      int           `yaml:"max_ocr_pages"`
	RenderDPI        int           `yaml:"render_dpi"`
	PDFInfoTimeout   time.Duration `yaml:"pdf_info_timeout"`
	PDFTextTimeout   time.Duration `yaml:"pdf_text_timeout"`
	PDFRenderTimeout time.Duration `yaml:"pdf_render_timeout"`

	// Download
	DownloadTimeout time.Duration `yaml:"download_timeout"`

	// Per-user rate limiting
	RateLimitEvery time.Duration `yaml:"rate_limit_every"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`

	// Operational
	LogDir  string `yaml:"log_dir"`
	Verbose bool   `yaml:"verbose"`
}

// Load builds the configuration from defaults, an optional YAML file,
// and environment variables, in that order, env winning.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func defaults() Config {
	return Config{
		BackendBaseURL: "https://general-runtime.voiceflow.com",
		BackendTimeout: 30 * time.Second,
		MaxRelayChars:  2000,

		Mode:       "polling",
		ListenAddr: ":8443",

		MaxImageBytes:    10 << 20,
		MaxDocumentBytes: 20 << 20,

		TesseractBinary:  "tesseract",
		OCRLanguages:     "eng+rus",
		OCRTimeout:       60 * time.Second,
		MaxOCRConcurrent: 2,
		MaxImageWidth:    1600,

		MinPDFTextChars:  100,
		MaxOCRPages:      5,
		RenderDPI:        200,
		PDFInfoTimeout:   5 * time.Second,
		PDFTextTimeout:   30 * time.Second,
		PDFRenderTimeout: 30 * time.Second,

		DownloadTimeout: 25 * time.Second,

		RateLimitEvery: 2 * time.Second,
		RateLimitBurst: 5,

		LogDir: "logs",
	}
}

func (c *Config) applyEnv() {
	c.TelegramToken = envStr("TELEGRAM_BOT_TOKEN", c.TelegramToken)
	c.BackendAPIKey = envStr("BACKEND_API_KEY", c.BackendAPIKey)
	c.BackendVersionID = envStr("BACKEND_VERSION_ID", c.BackendVersionID)

	c.BackendBaseURL = envStr("BACKEND_BASE_URL", c.BackendBaseURL)
	c.BackendTimeout = envDur("BACKEND_TIMEOUT", c.BackendTimeout)
	c.MaxRelayChars = envInt("MAX_RELAY_CHARS", c.MaxRelayChars)

	c.Mode = envStr("MODE", c.Mode)
	c.WebhookURL = envStr("WEBHOOK_URL", c.WebhookURL)
	c.ListenAddr = envStr("LISTEN_ADDR", c.ListenAddr)

	c.MaxImageBytes = int64(envInt("MAX_IMAGE_BYTES", int(c.MaxImageBytes)))
	c.MaxDocumentBytes = int64(envInt("MAX_DOCUMENT_BYTES", int(c.MaxDocumentBytes)))

	c.TesseractBinary = envStr("TESSERACT_BINARY", c.TesseractBinary)
	c.OCRLanguages = envStr("OCR_LANGUAGES", c.OCRLanguages)
	c.OCRTimeout = envDur("OCR_TIMEOUT", c.OCRTimeout)
	c.MaxOCRConcurrent = int64(envInt("MAX_OCR_CONCURRENT", int(c.MaxOCRConcurrent)))
	c.MaxImageWidth = envInt("MAX_IMAGE_WIDTH", c.MaxImageWidth)

	c.MinPDFTextChars = envInt("MIN_PDF_TEXT_CHARS", c.MinPDFTextChars)
	c.MaxOCRPages = envInt("MAX_OCR_PAGES", c.MaxOCRPages)
	c.RenderDPI = envInt("RENDER_DPI", c.RenderDPI)
	c.PDFInfoTimeout = envDur("PDF_INFO_TIMEOUT", c.PDFInfoTimeout)
	c.PDFTextTimeout = envDur("PDF_TEXT_TIMEOUT", c.PDFTextTimeout)
	c.PDFRenderTimeout = envDur("PDF_RENDER_TIMEOUT", c.PDFRenderTimeout)

	c.DownloadTimeout = envDur("DOWNLOAD_TIMEOUT", c.DownloadTimeout)

	c.RateLimitEvery = envDur("RATE_LIMIT_EVERY", c.RateLimitEvery)
	c.RateLimitBurst = envInt("RATE_LIMIT_BURST", c.RateLimitBurst)

	c.LogDir = envStr("LOG_DIR", c.LogDir)
	c.Verbose = envBool("VERBOSE", c.Verbose)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.TelegramToken) == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if strings.TrimSpace(c.BackendAPIKey) == "" {
		return fmt.Errorf("BACKEND_API_KEY is required")
	}
	if strings.TrimSpace(c.BackendVersionID) == "" {
		return fmt.Errorf("BACKEND_VERSION_ID is required")
	}
	switch c.Mode {
	case "polling":
	case "webhook":
		if strings.TrimSpace(c.WebhookURL) == "" {
			return fmt.Errorf("WEBHOOK_URL is required in webhook mode")
		}
	default:
		return fmt.Errorf("MODE must be polling or webhook, got %q", c.Mode)
	}
	return nil
}

func envStr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDur(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	return v == "1" || v == "true" || v == "yes"
}
