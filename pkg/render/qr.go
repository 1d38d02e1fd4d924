package render

import (
	"fmt"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// QR encodes content as a PNG QR code.
func (r *Renderer) QR(content string) (file File, err error) {
	defer func(start time.Time) { record("render_qr", start, err) }(time.Now())

	if strings.TrimSpace(content) == "" {
		return File{}, ErrEmptyInput
	}

	png, err := qrcode.Encode(content, qrcode.Medium, r.opts.QRSize)
	if err != nil {
		return File{}, fmt.Errorf("encode qr: %w", err)
	}

	return File{Name: fileName("qr", "png"), MIME: "image/png", Data: png}, nil
}
