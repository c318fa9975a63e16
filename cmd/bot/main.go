package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/toricodesthings/document-relay-service/internal/bot"
	"github.com/toricodesthings/document-relay-service/internal/config"
	"github.com/toricodesthings/document-relay-service/internal/extract"
	imageextractor "github.com/toricodesthings/document-relay-service/internal/extractors/image"
	officeextractor "github.com/toricodesthings/document-relay-service/internal/extractors/office"
	pdfextractor "github.com/toricodesthings/document-relay-service/internal/extractors/pdf"
	plaintextextractor "github.com/toricodesthings/document-relay-service/internal/extractors/plaintext"
	"github.com/toricodesthings/document-relay-service/internal/logstore"
	"github.com/toricodesthings/document-relay-service/internal/ocr"
	"github.com/toricodesthings/document-relay-service/internal/poppler"
	"github.com/toricodesthings/document-relay-service/internal/relay"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	limiter := ocr.NewLimiter(cfg.MaxOCRConcurrent)
	engine := ocr.NewTesseract(cfg.TesseractBinary, cfg.OCRLanguages, cfg.OCRTimeout, limiter, logger)
	if !engine.Available() {
		logger.Warn("tesseract binary not found; image and scanned-PDF extraction will fail",
			"binary", cfg.TesseractBinary)
	}

	popCfg := poppler.Config{
		InfoTimeout:   cfg.PDFInfoTimeout,
		TextTimeout:   cfg.PDFTextTimeout,
		RenderTimeout: cfg.PDFRenderTimeout,
		RenderDPI:     cfg.RenderDPI,
	}

	imageX := imageextractor.New(engine, cfg.MaxImageWidth, cfg.MaxImageBytes, logger)

	// Registration order matters: first match wins, the plain text
	// catch-all goes last.
	registry := extract.NewRegistry()
	registry.Register(imageX)
	registry.Register(pdfextractor.New(imageX, popCfg, cfg.MinPDFTextChars, cfg.MaxOCRPages, cfg.MaxDocumentBytes, logger))
	registry.Register(officeextractor.NewDOCX(cfg.MaxDocumentBytes))
	registry.Register(officeextractor.NewXLSX(cfg.MaxDocumentBytes))
	registry.Register(plaintextextractor.NewHTML(cfg.MaxDocumentBytes))
	registry.Register(plaintextextractor.New(cfg.MaxDocumentBytes))

	router := extract.NewRouter(registry, logger)

	relayClient := relay.NewClient(cfg.BackendBaseURL, cfg.BackendAPIKey, cfg.BackendVersionID,
		cfg.MaxRelayChars, cfg.BackendTimeout, logger)

	store, err := logstore.New(cfg.LogDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		fmt.Fprintln(os.Stderr, "telegram:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("document relay starting",
		"bot", api.Self.UserName, "mode", cfg.Mode, "ocrLangs", cfg.OCRLanguages)

	b := bot.New(api, router, relayClient, store, cfg, logger)
	if err := b.Run(ctx); err != nil {
		logger.Error("bot stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("shut down cleanly")
}
