// Package render encodes workflow results into files: QR codes, PDF documents,
// spreadsheets and captioned images.
package render

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/harun/yordamchi/internal/observability"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrEmptyInput is returned when there is nothing to render.
var ErrEmptyInput = errors.New("render: empty input")

// File is an encoded artifact ready to send.
type File struct {
	Name string
	MIME string
	Data []byte
}

// Options tunes the renderers.
type Options struct {
	QRSize        int
	SheetFormat   string // "xlsx" or "csv"
	CaptionFontPt float64
	TitleMaxRunes int
}

// DefaultOptions returns the options used when config leaves them unset.
func DefaultOptions() Options {
	return Options{
		QRSize:        512,
		SheetFormat:   "xlsx",
		CaptionFontPt: 36,
		TitleMaxRunes: 80,
	}
}

// Renderer produces files for the workflows.
type Renderer struct {
	opts Options
}

// New returns a renderer; zero fields in opts take their defaults.
func New(opts Options) *Renderer {
	def := DefaultOptions()
	if opts.QRSize <= 0 {
		opts.QRSize = def.QRSize
	}
	if opts.SheetFormat == "" {
		opts.SheetFormat = def.SheetFormat
	}
	if opts.CaptionFontPt <= 0 {
		opts.CaptionFontPt = def.CaptionFontPt
	}
	if opts.TitleMaxRunes <= 0 {
		opts.TitleMaxRunes = def.TitleMaxRunes
	}
	return &Renderer{opts: opts}
}

// fileName builds a unique name like "qr-V1StGXR8.png".
func fileName(prefix, ext string) string {
	id, err := gonanoid.New(8)
	if err != nil {
		id = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return prefix + "-" + id + "." + ext
}

// Audio wraps MP3 bytes produced elsewhere as a sendable file.
func Audio(data []byte) File {
	return File{Name: fileName("speech", "mp3"), MIME: "audio/mpeg", Data: data}
}

// Truncate shortens s to max runes, adding "..." when something was cut.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

// Title returns the first non-empty line of body, truncated to max runes.
func Title(body string, max int) string {
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return Truncate(line, max)
		}
	}
	return ""
}

func record(adapter string, start time.Time, err error) {
	observability.RecordAdapterCall(adapter, time.Since(start), err == nil)
}
