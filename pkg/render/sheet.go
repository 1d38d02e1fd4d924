package render

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// ParseRows splits text into rows (one per non-empty line) and cells. The cell
// delimiter is the first of ";", tab or "," found anywhere in the text.
func ParseRows(text string) [][]string {
	delim := ""
	for _, d := range []string{";", "\t", ","} {
		if strings.Contains(text, d) {
			delim = d
			break
		}
	}

	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		var cells []string
		if delim == "" {
			cells = []string{line}
		} else {
			cells = strings.Split(line, delim)
		}
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, cells)
	}
	return rows
}

// Sheet renders rows in the configured format. The first row is treated as a header.
func (r *Renderer) Sheet(rows [][]string) (file File, err error) {
	defer func(start time.Time) { record("render_sheet", start, err) }(time.Now())

	if len(rows) == 0 {
		return File{}, ErrEmptyInput
	}

	if r.opts.SheetFormat == "csv" {
		return sheetCSV(rows)
	}
	return sheetXLSX(rows)
}

func sheetCSV(rows [][]string) (File, error) {
	var buf bytes.Buffer
	// Excel needs the BOM to detect UTF-8.
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return File{}, fmt.Errorf("write csv: %w", err)
	}
	return File{Name: fileName("table", "csv"), MIME: "text/csv", Data: buf.Bytes()}, nil
}

func sheetXLSX(rows [][]string) (File, error) {
	f := excelize.NewFile()
	defer f.Close()

	widths := map[int]int{}
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return File{}, fmt.Errorf("cell name: %w", err)
			}
			var setErr error
			if n, perr := strconv.ParseFloat(strings.ReplaceAll(value, " ", ""), 64); perr == nil && r > 0 {
				setErr = f.SetCellValue(sheetName, cell, n)
			} else {
				setErr = f.SetCellValue(sheetName, cell, value)
			}
			if setErr != nil {
				return File{}, fmt.Errorf("set cell %s: %w", cell, setErr)
			}
			if l := len([]rune(value)); l > widths[c] {
				widths[c] = l
			}
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return File{}, fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(sheetName, 1, 1, header); err != nil {
		return File{}, fmt.Errorf("apply header style: %w", err)
	}

	for c, w := range widths {
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return File{}, fmt.Errorf("column name: %w", err)
		}
		width := float64(w) + 2
		if width > 60 {
			width = 60
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return File{}, fmt.Errorf("column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return File{}, fmt.Errorf("write xlsx: %w", err)
	}

	return File{
		Name: fileName("table", "xlsx"),
		MIME: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data: buf.Bytes(),
	}, nil
}
