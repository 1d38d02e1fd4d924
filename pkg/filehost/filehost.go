// Package filehost uploads rendered files to an external host and returns a share link.
//
// The host receives a multipart POST with the file in one form field. Its answer may be
// the bare link (0x0.st style) or JSON carrying the link under "url", "link" or "data.url".
package filehost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/harun/yordamchi/internal/observability"
	"github.com/harun/yordamchi/internal/tracing"
	"github.com/tidwall/gjson"
)

// ErrNoLink is returned when the host answers without a usable link.
var ErrNoLink = errors.New("filehost: response carried no link")

// Config configures the uploader.
type Config struct {
	URL       string
	FieldName string
	Timeout   time.Duration
	MaxBytes  int64
}

// Uploader posts files to the configured host.
type Uploader struct {
	http *http.Client
	cfg  Config
}

// New returns an uploader, or nil when no URL is configured.
func New(cfg Config) *Uploader {
	if cfg.URL == "" {
		return nil
	}
	if cfg.FieldName == "" {
		cfg.FieldName = "file"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 20 << 20
	}
	return &Uploader{
		http: tracing.HTTPClient(cfg.Timeout),
		cfg:  cfg,
	}
}

// Upload sends data as name and returns the share link.
func (u *Uploader) Upload(ctx context.Context, name string, data []byte) (link string, err error) {
	defer func(start time.Time) {
		observability.RecordAdapterCall("filehost", time.Since(start), err == nil)
	}(time.Now())

	if int64(len(data)) > u.cfg.MaxBytes {
		return "", fmt.Errorf("filehost: %d bytes exceeds limit of %d", len(data), u.cfg.MaxBytes)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile(u.cfg.FieldName, name)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.cfg.URL, &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("upload returned status %d", resp.StatusCode)
	}

	return extractLink(raw)
}

func extractLink(raw []byte) (string, error) {
	if gjson.ValidBytes(raw) {
		for _, path := range []string{"url", "link", "data.url"} {
			if v := gjson.GetBytes(raw, path); v.Type == gjson.String && isLink(v.Str) {
				return v.Str, nil
			}
		}
		return "", ErrNoLink
	}

	text := strings.TrimSpace(string(raw))
	if isLink(text) {
		return text, nil
	}
	return "", ErrNoLink
}

func isLink(s string) bool {
	return (strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")) && !strings.ContainsAny(s, " \n")
}
