// Package pdfdoc renders the simple tabular A4 documents used for invoice
// statements and reports.
package pdfdoc

import (
	"bytes"
	"strings"

	"github.com/phpdave11/gofpdf"
)

// rows start a new page below this y (mm)
const pageBreakY = 270

type Column struct {
	Title string
	Width float64
	Align string // L, C or R
}

type Doc struct {
	pdf  *gofpdf.Fpdf
	tr   func(string) string
	cols []Column
}

// New starts a document with a title and a grey subtitle line per entry in
// subtitles.
func New(title string, subtitles ...string) *Doc {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	d := &Doc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, d.tr(title))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	for _, s := range subtitles {
		pdf.Cell(0, 6, d.tr(s))
		pdf.Ln(5)
	}
	pdf.Ln(5)
	return d
}

// Summary draws one row of labelled boxes spanning the page width.
func (d *Doc) Summary(labels, values []string) {
	if len(labels) == 0 {
		return
	}
	w := 186 / float64(len(labels))

	d.pdf.SetDrawColor(200, 200, 200)
	d.pdf.SetFillColor(248, 248, 248)
	d.pdf.SetTextColor(20, 20, 20)
	d.pdf.SetFont("Helvetica", "B", 11)
	for i, l := range labels {
		d.pdf.CellFormat(w, 10, d.tr(l), "1", lineEnd(i, len(labels)), "C", true, 0, "")
	}

	d.pdf.SetFont("Helvetica", "", 11)
	for i, v := range values {
		d.pdf.CellFormat(w, 10, d.tr(v), "1", lineEnd(i, len(values)), "C", false, 0, "")
	}
	d.pdf.Ln(6)
}

// Table starts a table; following Row calls fill it.
func (d *Doc) Table(cols []Column) {
	d.cols = cols
	d.header()
}

func (d *Doc) header() {
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.SetFillColor(245, 245, 245)
	d.pdf.SetTextColor(20, 20, 20)
	for i, c := range d.cols {
		d.pdf.CellFormat(c.Width, 8, d.tr(strings.ToUpper(c.Title)), "1", lineEnd(i, len(d.cols)), align(c.Align), true, 0, "")
	}
	d.pdf.SetFont("Helvetica", "", 9)
	d.pdf.SetTextColor(30, 30, 30)
}

func (d *Doc) Row(values ...string) {
	if d.pdf.GetY() > pageBreakY {
		d.pdf.AddPage()
		d.header()
	}
	for i, c := range d.cols {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		d.pdf.CellFormat(c.Width, 8, d.tr(Truncate(v, int(c.Width/1.8))), "1", lineEnd(i, len(d.cols)), align(c.Align), false, 0, "")
	}
}

func (d *Doc) Note(text string) {
	d.pdf.Ln(4)
	d.pdf.SetFont("Helvetica", "I", 9)
	d.pdf.SetTextColor(90, 90, 90)
	d.pdf.MultiCell(0, 5, d.tr(text), "", "L", false)
}

// Bytes writes the footer on the last page and returns the document.
func (d *Doc) Bytes(footer string) ([]byte, error) {
	d.pdf.SetY(-18)
	d.pdf.SetFont("Helvetica", "", 9)
	d.pdf.SetTextColor(120, 120, 120)
	d.pdf.CellFormat(0, 10, d.tr(footer), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Truncate shortens s to max runes with an ellipsis.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 1 || len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func lineEnd(i, n int) int {
	if i == n-1 {
		return 1
	}
	return 0
}

func align(a string) string {
	if a == "" {
		return "L"
	}
	return a
}
