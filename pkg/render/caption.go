package render

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
)

// Caption draws text in a band along the bottom of the photo and returns a PNG.
func (r *Renderer) Caption(photo []byte, text string) (file File, err error) {
	defer func(start time.Time) { record("render_caption", start, err) }(time.Now())

	text = strings.TrimSpace(text)
	if len(photo) == 0 || text == "" {
		return File{}, ErrEmptyInput
	}

	img, _, err := image.Decode(bytes.NewReader(photo))
	if err != nil {
		return File{}, fmt.Errorf("decode photo: %w", err)
	}

	font, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return File{}, fmt.Errorf("parse font: %w", err)
	}

	dc := gg.NewContextForImage(img)
	w := float64(dc.Width())
	h := float64(dc.Height())

	// Scale the font with the image so small photos stay readable.
	points := r.opts.CaptionFontPt * w / 1024
	if points < 14 {
		points = 14
	}
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: points}))

	margin := w * 0.05
	lines := dc.WordWrap(text, w-2*margin)
	lineHeight := dc.FontHeight() * 1.4
	bandHeight := float64(len(lines))*lineHeight + margin

	dc.SetRGBA(0, 0, 0, 0.55)
	dc.DrawRectangle(0, h-bandHeight, w, bandHeight)
	dc.Fill()

	dc.SetRGB(1, 1, 1)
	y := h - bandHeight + margin/2
	for _, line := range lines {
		dc.DrawStringAnchored(line, w/2, y+lineHeight/2, 0.5, 0.35)
		y += lineHeight
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return File{}, fmt.Errorf("encode png: %w", err)
	}

	return File{Name: fileName("caption", "png"), MIME: "image/png", Data: buf.Bytes()}, nil
}
