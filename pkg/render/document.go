package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Document renders body as an A4 PDF. The first non-empty line becomes the title;
// every line of body is kept in order below it.
func (r *Renderer) Document(body string) (file File, err error) {
	defer func(start time.Time) { record("render_document", start, err) }(time.Now())

	if strings.TrimSpace(body) == "" {
		return File{}, ErrEmptyInput
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8FontFromBytes("go", "", goregular.TTF)
	pdf.AddUTF8FontFromBytes("go", "B", gobold.TTF)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(Title(body, r.opts.TitleMaxRunes), true)
	pdf.SetCreator("yordamchi", true)
	pdf.AddPage()

	pdf.SetFont("go", "B", 16)
	pdf.MultiCell(0, 9, Title(body, r.opts.TitleMaxRunes), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("go", "", 12)
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			pdf.Ln(6)
			continue
		}
		pdf.MultiCell(0, 6, line, "", "L", false)
	}

	if err := pdf.Error(); err != nil {
		return File{}, fmt.Errorf("build pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return File{}, fmt.Errorf("write pdf: %w", err)
	}

	return File{Name: fileName("document", "pdf"), MIME: "application/pdf", Data: buf.Bytes()}, nil
}
