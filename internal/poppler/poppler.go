// Package poppler wraps the poppler command-line tools: pdfinfo for
// structure checks, pdftotext for text-layer extraction and pdftoppm
// for page rasterization. Every call carries its own timeout and a hard
// output cap so one cursed PDF cannot wedge or OOM the process.
package poppler

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	InfoTimeout   time.Duration
	TextTimeout   time.Duration
	RenderTimeout time.Duration
	RenderDPI     int
}

func (c Config) withDefaults() Config {
	out := c
	if out.InfoTimeout <= 0 {
		out.InfoTimeout = 5 * time.Second
	}
	if out.TextTimeout <= 0 {
		out.TextTimeout = 30 * time.Second
	}
	if out.RenderTimeout <= 0 {
		out.RenderTimeout = 30 * time.Second
	}
	if out.RenderDPI <= 0 {
		out.RenderDPI = 200
	}
	return out
}

type Info struct {
	Pages     int
	Encrypted bool
}

var (
	pageCountRegex = regexp.MustCompile(`(?m)^Pages:\s+(\d+)\s*$`)
	encryptedRegex = regexp.MustCompile(`(?mi)^Encrypted:\s+yes\s*$`)
)

// GetInfo runs pdfinfo once and extracts page count plus encryption flag.
func GetInfo(ctx context.Context, pdfPath string, cfg Config) (Info, error) {
	cfg = cfg.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, cfg.InfoTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pdfinfo", pdfPath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Info{}, classifyErr("pdfinfo", err, ctx, stderr.String())
	}

	out := stdout.String()
	pages, err := parsePages(out)
	if err != nil {
		return Info{}, err
	}

	return Info{Pages: pages, Encrypted: encryptedRegex.MatchString(out)}, nil
}

// ExtractText extracts the whole document's text layer using pdftotext.
// Output is capped to avoid OOM on pathological documents.
func ExtractText(ctx context.Context, pdfPath string, cfg Config) (string, error) {
	cfg = cfg.withDefaults()

	const maxBytes = 50<<20 + 1

	ctx, cancel := context.WithTimeout(ctx, cfg.TextTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx,
		"pdftotext",
		"-layout",
		"-nopgbrk",
		"-enc", "UTF-8",
		pdfPath,
		"-",
	)

	text, stderrStr, err := runCaptureLimited(cmd, maxBytes)
	if err != nil {
		return "", classifyErr("pdftotext", err, ctx, stderrStr)
	}
	return text, nil
}

// RenderPage rasterizes one page (1-based) to PNG bytes via pdftoppm at
// the configured DPI.
func RenderPage(ctx context.Context, pdfPath string, page int, cfg Config) ([]byte, error) {
	cfg = cfg.withDefaults()

	if page < 1 {
		return nil, fmt.Errorf("invalid page number: %d (must be >= 1)", page)
	}

	// A rendered page at 200 DPI stays well under this.
	const maxBytes = 64<<20 + 1

	ctx, cancel := context.WithTimeout(ctx, cfg.RenderTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx,
		"pdftoppm",
		"-png",
		"-r", strconv.Itoa(cfg.RenderDPI),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		pdfPath,
		"-",
	)

	out, stderrStr, err := runCaptureLimitedBytes(cmd, maxBytes)
	if err != nil {
		return nil, classifyErr("pdftoppm", err, ctx, stderrStr)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no output for page %d", page)
	}
	return out, nil
}

// --- internals ---

func parsePages(pdfinfoOut string) (int, error) {
	matches := pageCountRegex.FindStringSubmatch(pdfinfoOut)
	if len(matches) == 2 {
		n, err := strconv.Atoi(matches[1])
		if err != nil {
			return 0, fmt.Errorf("pdfinfo: invalid page count: %w", err)
		}
		return validatePages(n)
	}

	// Fallback scan for formatting variations across poppler builds.
	sc := bufio.NewScanner(strings.NewReader(pdfinfoOut))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(strings.ToLower(line), "pages:") {
			fields := strings.Fields(strings.TrimSpace(line[len("Pages:"):]))
			if len(fields) == 0 {
				continue
			}
			n, err := strconv.Atoi(fields[0])
			if err != nil {
				return 0, fmt.Errorf("pdfinfo: invalid page count: %w", err)
			}
			return validatePages(n)
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("pdfinfo: scan failed: %w", err)
	}

	return 0, fmt.Errorf("pdfinfo: pages field not found in output")
}

func validatePages(count int) (int, error) {
	if count <= 0 || count > 50000 {
		return 0, fmt.Errorf("pdfinfo: unreasonable page count: %d", count)
	}
	return count, nil
}

func runCaptureLimited(cmd *exec.Cmd, maxBytes int64) (string, string, error) {
	out, stderrStr, err := runCaptureLimitedBytes(cmd, maxBytes)
	return string(out), stderrStr, err
}

func runCaptureLimitedBytes(cmd *exec.Cmd, maxBytes int64) ([]byte, string, error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, "", fmt.Errorf("stdout pipe: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, "", fmt.Errorf("start: %w", err)
	}

	lr := io.LimitReader(stdoutPipe, maxBytes)
	outBytes, readErr := io.ReadAll(lr)

	waitErr := cmd.Wait()
	stderrStr := strings.TrimSpace(stderr.String())

	if readErr != nil {
		_ = cmd.Process.Kill()
		return nil, stderrStr, fmt.Errorf("read stdout: %w", readErr)
	}
	if int64(len(outBytes)) >= maxBytes {
		return nil, stderrStr, fmt.Errorf("output exceeds limit")
	}
	if waitErr != nil {
		return nil, stderrStr, waitErr
	}
	return outBytes, stderrStr, nil
}

// isHelpOrUsageOutput guards against poppler's usage dump being matched
// on keywords that also appear in the help descriptions.
func isHelpOrUsageOutput(stderr string) bool {
	return strings.Contains(stderr, "version ") && strings.Contains(stderr, "Usage:")
}

func classifyErr(tool string, err error, ctx context.Context, stderr string) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%s timeout: %w", tool, ctx.Err())
	}

	stderr = strings.TrimSpace(stderr)
	if stderr != "" {
		if isHelpOrUsageOutput(stderr) {
			return fmt.Errorf("%s failed (bad invocation): %s", tool, truncate(stderr, 200))
		}
		if containsAny(stderr,
			"Incorrect password",
			"Command Line Error: Incorrect password",
		) {
			return fmt.Errorf("PDF is password protected")
		}
		if containsAny(stderr,
			"PDF file is damaged",
			"Syntax Error",
			"Couldn't find trailer dictionary",
			"May not be a PDF file",
		) {
			return fmt.Errorf("PDF appears to be damaged or invalid")
		}
		return fmt.Errorf("%s failed: %s", tool, truncate(stderr, 300))
	}
	return fmt.Errorf("%s failed: %w", tool, err)
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
