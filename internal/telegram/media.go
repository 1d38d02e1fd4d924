package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/yordamchi/internal/observability"
	"github.com/harun/yordamchi/internal/tracing"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultMaxMediaSize matches the Bot API download limit.
const DefaultMaxMediaSize = 20 * 1024 * 1024

// Media downloads user-sent files.
type Media struct {
	api          API
	token        string
	fileEndpoint string
	client       *http.Client
	maxSize      int64
	logger       zerolog.Logger
}

// NewMedia returns a downloader. maxMB caps the accepted file size; zero means the
// Bot API limit.
func NewMedia(api API, token string, maxMB int) *Media {
	maxSize := int64(maxMB) * 1024 * 1024
	if maxSize <= 0 {
		maxSize = DefaultMaxMediaSize
	}
	return &Media{
		api:          api,
		token:        token,
		fileEndpoint: tgbotapi.FileEndpoint,
		client:       tracing.HTTPClient(0),
		maxSize:      maxSize,
		logger:       log.Logger.With().Str("component", "telegram").Str("module", "media").Logger(),
	}
}

// Download fetches the file behind fileID into memory.
func (m *Media) Download(ctx context.Context, fileID string) ([]byte, error) {
	start := time.Now()
	data, err := m.download(ctx, fileID)
	observability.RecordAdapterCall("telegram_download", time.Since(start), err == nil)
	return data, err
}

func (m *Media) download(ctx context.Context, fileID string) ([]byte, error) {
	file, err := m.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	if int64(file.FileSize) > m.maxSize {
		return nil, fmt.Errorf("file size %d exceeds maximum %d", file.FileSize, m.maxSize)
	}

	link := fmt.Sprintf(m.fileEndpoint, m.token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		// The URL embeds the token; drop it from the error.
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, unwrapURLError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, m.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > m.maxSize {
		return nil, fmt.Errorf("file exceeds maximum %d bytes", m.maxSize)
	}

	m.logger.Debug().
		Str("file_id", fileID).
		Int("size", len(data)).
		Msg("Media downloaded")

	return data, nil
}

func unwrapURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
