package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 190.0
	bodyFamily = "body"
)

// PDFExporter renders a Table into an A4 report.
// Without FontPath the core Helvetica font is used, which cannot draw
// Hangul; such runes are replaced with '?'.
type PDFExporter struct {
	FontPath string
	// Widths are relative column weights; equal widths when empty.
	Widths []float64
}

// NewPDFExporter constructs a PDF exporter using the TTF font at fontPath
// when non-empty.
func NewPDFExporter(fontPath string) *PDFExporter {
	return &PDFExporter{FontPath: fontPath}
}

// Render creates a PDF document with an optional title and a bordered table.
func (e *PDFExporter) Render(table Table, title string) ([]byte, error) {
	if len(table.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)

	family, text := "Helvetica", latinOnly
	if e.FontPath != "" {
		pdf.AddUTF8Font(bodyFamily, "", e.FontPath)
		pdf.AddUTF8Font(bodyFamily, "B", e.FontPath)
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("load pdf font %s: %w", e.FontPath, err)
		}
		family, text = bodyFamily, func(s string) string { return s }
	}
	pdf.AddPage()

	if title != "" {
		pdf.SetFont(family, "B", 14)
		pdf.CellFormat(0, 10, text(title), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	widths := e.columnWidths(len(table.Headers))
	pdf.SetFont(family, "B", 10)
	pdf.SetFillColor(230, 236, 245)
	for i, header := range table.Headers {
		pdf.CellFormat(widths[i], 8, text(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 9)
	for _, row := range table.Rows {
		for i, value := range fit(row, len(table.Headers)) {
			pdf.CellFormat(widths[i], 7, text(clip(value, 60)), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) columnWidths(n int) []float64 {
	widths := make([]float64, n)
	if len(e.Widths) != n {
		for i := range widths {
			widths[i] = pageWidth / float64(n)
		}
		return widths
	}
	total := 0.0
	for _, w := range e.Widths {
		total += w
	}
	for i, w := range e.Widths {
		widths[i] = pageWidth * w / total
	}
	return widths
}

func clip(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}

func latinOnly(value string) string {
	return strings.Map(func(r rune) rune {
		if r > 0x7E || (r < 0x20 && r != '\t') {
			return '?'
		}
		return r
	}, value)
}
