// Package relay forwards extracted text to the conversational backend
// and turns its trace stream into a single reply string.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// TruncationMarker is appended whenever outbound text is cut to fit
	// the backend's input limit.
	TruncationMarker = " [truncated]"

	// FallbackNotice is returned when no recognized trace carries text.
	FallbackNotice = "I didn't get a readable reply for that. Try rephrasing."

	maxResponseBytes = 8 << 20
)

// Error covers every way a backend turn can fail: HTTP-level failures
// and malformed responses both surface as this type. Never retried.
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("backend %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend: %s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Trace is one typed event in the backend's response stream. Payloads
// of unrecognized types are ignored rather than treated as errors.
type Trace struct {
	Type    string `json:"type"`
	Payload struct {
		Message string `json:"message"`
	} `json:"payload"`
}

// recognizedTraceTypes are the trace kinds whose payload text is
// collected, in arrival order, into the reply.
var recognizedTraceTypes = map[string]bool{
	"text":    true,
	"speak":   true,
	"message": true,
}

// Client talks to the conversational backend. One request per inbound
// turn, keyed by version identifier and user identifier, no retries.
type Client struct {
	baseURL   string
	apiKey    string
	versionID string
	maxChars  int
	http      *http.Client
	logger    *slog.Logger
}

func NewClient(baseURL, apiKey, versionID string, maxChars int, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://general-runtime.voiceflow.com"
	}
	if maxChars <= 0 {
		maxChars = 2000
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		versionID: versionID,
		maxChars:  maxChars,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

type interactRequest struct {
	Request struct {
		Type    string `json:"type"`
		Payload string `json:"payload"`
	} `json:"request"`
}

// Relay sends one turn of user text and returns the backend's reply.
func (c *Client) Relay(ctx context.Context, userID, text string) (string, error) {
	text = Truncate(text, c.maxChars)

	var body interactRequest
	body.Request.Type = "text"
	body.Request.Payload = text

	payload, err := json.Marshal(body)
	if err != nil {
		return "", &Error{Message: "marshal request", Err: err}
	}

	endpoint := fmt.Sprintf("%s/state/%s/user/%s/interact",
		c.baseURL, url.PathEscape(c.versionID), url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Message: "build request", Err: err}
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var traces []Trace
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	if err := dec.Decode(&traces); err != nil {
		return "", &Error{Message: "malformed response", Err: err}
	}

	reply := CombineTraces(traces)
	c.logger.Debug("backend turn complete",
		"user", userID, "traces", len(traces), "took", time.Since(start))
	return reply, nil
}

// CombineTraces joins the text of every recognized trace with newlines
// in arrival order, or returns the fallback notice when none carries
// text.
func CombineTraces(traces []Trace) string {
	var parts []string
	for _, tr := range traces {
		if !recognizedTraceTypes[tr.Type] {
			continue
		}
		if tr.Payload.Message == "" {
			continue
		}
		parts = append(parts, tr.Payload.Message)
	}
	if len(parts) == 0 {
		return FallbackNotice
	}
	return strings.Join(parts, "\n")
}

// Truncate cuts s to at most max runes, appending the truncation marker
// when a cut happens. The result of a cut is exactly max+len(marker)
// runes long.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + TruncationMarker
}
