package extract

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DownloadError is the failure taxonomy for staging an attachment:
// network errors, non-200 responses, disk errors and ceiling breaches
// all surface as this type so the handler can map them to one
// user-facing message.
type DownloadError struct {
	Reason string
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download: %s: %v", e.Reason, e.Err)
	}
	return "download: " + e.Reason
}

func (e *DownloadError) Unwrap() error { return e.Err }

// StagedFile is a downloaded attachment in its own staging directory.
// The directory name is unique per download, so concurrent requests
// never contend; Cleanup must run once processing ends.
type StagedFile struct {
	TempDir  string
	Path     string
	MIMEType string
	Size     int64
}

func (s StagedFile) Cleanup() {
	if s.TempDir != "" {
		_ = os.RemoveAll(s.TempDir)
	}
}

// DownloadToTemp fetches a resolved chat-file URL into a fresh staging
// directory, enforcing a byte ceiling while streaming. The returned
// MIMEType is sniffed from content, never taken from headers alone.
func DownloadToTemp(ctx context.Context, fileURL, fileName string, maxBytes int64, timeout time.Duration) (StagedFile, error) {
	if err := validateFileURL(fileURL); err != nil {
		return StagedFile{}, &DownloadError{Reason: "invalid file URL", Err: err}
	}

	tmpDir, err := os.MkdirTemp("", "docrelay-*")
	if err != nil {
		return StagedFile{}, &DownloadError{Reason: "temp dir", Err: err}
	}

	safeName := strings.TrimSpace(fileName)
	if safeName == "" {
		safeName = "input.bin"
	}
	outPath := filepath.Join(tmpDir, filepath.Base(safeName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return StagedFile{}, &DownloadError{Reason: "build request", Err: err}
	}
	req.Header.Set("User-Agent", "docrelay/1.0")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return StagedFile{}, &DownloadError{Reason: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_ = os.RemoveAll(tmpDir)
		return StagedFile{}, &DownloadError{Reason: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	f, err := os.Create(outPath)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return StagedFile{}, &DownloadError{Reason: "create", Err: err}
	}
	defer f.Close()

	lr := &io.LimitedReader{R: resp.Body, N: maxBytes + 1}
	n, err := io.Copy(f, lr)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return StagedFile{}, &DownloadError{Reason: "write", Err: err}
	}
	if n > maxBytes {
		_ = os.RemoveAll(tmpDir)
		return StagedFile{}, &DownloadError{Reason: fmt.Sprintf("file exceeds %dMB limit", maxBytes/(1<<20))}
	}

	if err := f.Sync(); err != nil {
		_ = os.RemoveAll(tmpDir)
		return StagedFile{}, &DownloadError{Reason: "sync", Err: err}
	}

	mime := SniffFile(outPath).MIME
	if mime == "" {
		mime = strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Type")))
		if i := strings.Index(mime, ";"); i > 0 {
			mime = strings.TrimSpace(mime[:i])
		}
	}

	return StagedFile{TempDir: tmpDir, Path: outPath, MIMEType: mime, Size: n}, nil
}

func validateFileURL(rawURL string) error {
	allowPrivate := allowPrivateFileURLs()

	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed == nil {
		return fmt.Errorf("invalid file URL")
	}

	host := strings.ToLower(strings.TrimSpace(parsed.Hostname()))
	if host == "" {
		return fmt.Errorf("file URL host is required")
	}

	isLocalName := host == "localhost" || strings.HasSuffix(host, ".localhost")
	isPrivateIP := false
	if ip := net.ParseIP(host); ip != nil {
		isPrivateIP = isPrivateOrLocalIP(ip)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "https":
	case "http":
		if !(allowPrivate && (isLocalName || isPrivateIP)) {
			return fmt.Errorf("file URL must use https")
		}
	default:
		return fmt.Errorf("file URL must use https")
	}

	if (isLocalName || isPrivateIP) && !allowPrivate {
		return fmt.Errorf("file URL host is not allowed")
	}
	return nil
}

func allowPrivateFileURLs() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("ALLOW_PRIVATE_FILE_URLS")))
	return v == "1" || v == "true" || v == "yes"
}

func isPrivateOrLocalIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalMulticast() || ip.IsLinkLocalUnicast() || ip.IsMulticast() || ip.IsUnspecified() {
		return true
	}
	if ip.IsPrivate() {
		return true
	}
	// RFC6598 carrier-grade NAT range: 100.64.0.0/10
	if v4 := ip.To4(); v4 != nil && v4[0] == 100 && v4[1] >= 64 && v4[1] <= 127 {
		return true
	}
	return false
}
