// Package bot wires the chat platform to the extraction pipeline and
// the conversation relay. Each inbound message is handled by its own
// goroutine; nothing is shared between requests except the rate-limiter
// map and the append-only log store.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/toricodesthings/document-relay-service/internal/config"
	"github.com/toricodesthings/document-relay-service/internal/extract"
	"github.com/toricodesthings/document-relay-service/internal/extractors/pdf"
	"github.com/toricodesthings/document-relay-service/internal/logstore"
	"github.com/toricodesthings/document-relay-service/internal/ocr"
	"github.com/toricodesthings/document-relay-service/internal/relay"
)

// User-facing replies. Failures are differentiated by attachment kind
// so the user can aim for a more OCR-friendly input; raw error detail
// goes to the operational log only.
const (
	msgWelcome = "Hi! Send me text, a photo, or a document (PDF/DOCX) and I'll read it and reply."

	msgRateLimited = "You're sending messages too quickly. Give me a moment."

	msgImageTooBig    = "That image is too large (limit %dMB). Please send a smaller one."
	msgDocumentTooBig = "That document is too large (limit %dMB). Please send a smaller one."

	msgDownloadFailed = "I couldn't download that file. Please try sending it again."
	msgImageFailed    = "I couldn't read any text in that image. A sharper, well-lit photo works best."
	msgDocumentFailed = "I couldn't read that document. If it's a scan, a clearer copy would help."
	msgBackendFailed  = "I'm having trouble reaching my brain right now. Please try again in a minute."
	msgNoText         = "I couldn't find any text in that file."
)

type eventKind string

const (
	eventText     eventKind = "text"
	eventPhoto    eventKind = "photo"
	eventDocument eventKind = "document"
)

// telegramAPI is the slice of the Bot API client this package uses.
// *tgbotapi.BotAPI satisfies it; tests substitute a recorder.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	ListenForWebhook(pattern string) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Bot struct {
	api    telegramAPI
	router *extract.Router
	relay  *relay.Client
	store  *logstore.Store
	cfg    config.Config
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
}

func New(api telegramAPI, router *extract.Router, relayClient *relay.Client, store *logstore.Store, cfg config.Config, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		api:      api,
		router:   router,
		relay:    relayClient,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		limiters: make(map[int64]*rate.Limiter),
	}
}

// Run consumes updates until ctx is done. Mode selects webhook (for
// production deployments behind a public HTTPS endpoint) or long-poll
// (development).
func (b *Bot) Run(ctx context.Context) error {
	var updates tgbotapi.UpdatesChannel
	var srv *http.Server

	if b.cfg.Mode == "webhook" {
		wh, err := tgbotapi.NewWebhook(b.cfg.WebhookURL)
		if err != nil {
			return fmt.Errorf("webhook config: %w", err)
		}
		if _, err := b.api.Request(wh); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		updates = b.api.ListenForWebhook("/telegram")
		srv = &http.Server{Addr: b.cfg.ListenAddr, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				b.logger.Error("webhook listener failed", "err", err)
			}
		}()
		b.logger.Info("listening for webhooks", "addr", b.cfg.ListenAddr)
	} else {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 30
		updates = b.api.GetUpdatesChan(u)
		b.logger.Info("long-polling for updates")
	}

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = srv.Shutdown(shutdownCtx)
				cancel()
			}
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in message handler", "err", r)
		}
	}()

	if msg.From == nil {
		return
	}
	userID := strconv.FormatInt(msg.From.ID, 10)

	if !b.userLimiter(msg.From.ID).Allow() {
		b.reply(msg.Chat.ID, msgRateLimited)
		return
	}

	switch {
	case msg.IsCommand():
		if msg.Command() == "start" {
			b.reply(msg.Chat.ID, msgWelcome)
		}
	case len(msg.Photo) > 0:
		b.handleAttachment(ctx, msg, userID, eventPhoto)
	case msg.Document != nil:
		b.handleAttachment(ctx, msg, userID, eventDocument)
	case msg.Text != "":
		b.handleText(ctx, msg, userID)
	}
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message, userID string) {
	b.typing(msg.Chat.ID)
	b.logTurn(userID, eventText, "", msg.Text)
	b.relayAndReply(ctx, msg.Chat.ID, userID, msg.Text)
}

func (b *Bot) handleAttachment(ctx context.Context, msg *tgbotapi.Message, userID string, kind eventKind) {
	fileID, fileName, fileSize, ceiling := b.attachmentInfo(msg, kind)

	// Size gate from event metadata, before any download happens.
	if fileSize > ceiling {
		b.reply(msg.Chat.ID, b.tooBigMessage(kind, ceiling))
		return
	}

	b.typing(msg.Chat.ID)

	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		b.logger.Error("resolve file URL failed", "user", userID, "err", err)
		b.reply(msg.Chat.ID, msgDownloadFailed)
		return
	}

	staged, err := extract.DownloadToTemp(ctx, fileURL, fileName, ceiling, b.cfg.DownloadTimeout)
	if err != nil {
		b.logger.Error("download failed", "user", userID, "file", fileName, "err", err)
		b.reply(msg.Chat.ID, msgDownloadFailed)
		return
	}
	defer staged.Cleanup()

	res, err := b.router.Extract(ctx, extract.Job{
		LocalPath: staged.Path,
		FileName:  fileName,
		MIMEHint:  staged.MIMEType,
		FileSize:  staged.Size,
	})
	if err != nil {
		b.logger.Error("extraction failed",
			"user", userID, "file", fileName, "kind", res.Kind, "err", err)
		b.reply(msg.Chat.ID, failureMessage(kind, err))
		return
	}

	b.logTurn(userID, kind, fileName, res.Text)
	b.logger.Info("extracted attachment",
		"user", userID, "kind", res.Kind, "file", fileName,
		"chars", extract.CountChars(res.Text), "pages", res.PageCount,
		"preview", logstore.Preview(res.Text, 80))

	if res.Text == "" {
		b.reply(msg.Chat.ID, msgNoText)
		return
	}
	b.relayAndReply(ctx, msg.Chat.ID, userID, res.Text)
}

func (b *Bot) relayAndReply(ctx context.Context, chatID int64, userID, text string) {
	reply, err := b.relay.Relay(ctx, userID, text)
	if err != nil {
		b.logger.Error("backend relay failed", "user", userID, "err", err)
		b.reply(chatID, msgBackendFailed)
		return
	}
	b.reply(chatID, reply)
}

// attachmentInfo picks the file reference and the applicable byte
// ceiling for an event. Photos use the largest rendition Telegram
// provides.
func (b *Bot) attachmentInfo(msg *tgbotapi.Message, kind eventKind) (fileID, fileName string, fileSize, ceiling int64) {
	if kind == eventPhoto {
		best := msg.Photo[len(msg.Photo)-1]
		return best.FileID, "photo.jpg", int64(best.FileSize), b.cfg.MaxImageBytes
	}
	doc := msg.Document
	name := doc.FileName
	if name == "" {
		name = "document.bin"
	}
	return doc.FileID, name, int64(doc.FileSize), b.cfg.MaxDocumentBytes
}

func (b *Bot) tooBigMessage(kind eventKind, ceiling int64) string {
	if kind == eventPhoto {
		return fmt.Sprintf(msgImageTooBig, ceiling/(1<<20))
	}
	return fmt.Sprintf(msgDocumentTooBig, ceiling/(1<<20))
}

// failureMessage maps pipeline errors to one fixed user-facing message
// per attachment kind. Stack traces never reach the chat.
func failureMessage(kind eventKind, err error) string {
	var ocrErr *ocr.Error
	var parseErr *pdf.ParseError
	var pdfOCRErr *pdf.OCRError
	var dlErr *extract.DownloadError

	switch {
	case errors.As(err, &dlErr):
		return msgDownloadFailed
	case errors.As(err, &parseErr), errors.As(err, &pdfOCRErr):
		return msgDocumentFailed
	case errors.As(err, &ocrErr):
		if kind == eventPhoto {
			return msgImageFailed
		}
		return msgDocumentFailed
	default:
		return msgDocumentFailed
	}
}

func (b *Bot) logTurn(userID string, kind eventKind, fileName, text string) {
	if b.store == nil {
		return
	}
	if err := b.store.Append(logstore.Record{
		Time:     time.Now(),
		UserID:   userID,
		Kind:     string(kind),
		FileName: fileName,
		Text:     text,
	}); err != nil {
		b.logger.Error("log append failed", "user", userID, "err", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("send reply failed", "chat", chatID, "err", err)
	}
}

func (b *Bot) typing(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.logger.Debug("typing indicator failed", "chat", chatID, "err", err)
	}
}

func (b *Bot) userLimiter(userID int64) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	if l, ok := b.limiters[userID]; ok {
		return l
	}

	every := b.cfg.RateLimitEvery
	if every <= 0 {
		every = 2 * time.Second
	}
	burst := b.cfg.RateLimitBurst
	if burst <= 0 {
		burst = 5
	}

	l := rate.NewLimiter(rate.Every(every), burst)
	b.limiters[userID] = l
	return l
}
