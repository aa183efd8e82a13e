package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"timbercalc/internal/errors"
)

var billColumns = []struct {
	title string
	width float64
	align string
}{
	{"Sl. No.", 20, "C"},
	{"Length (ft)", 30, "R"},
	{"Girth (in)", 30, "R"},
	{"Volume (cft)", 32, "R"},
	{"Unit Price", 34, "R"},
	{"Total", 38, "R"},
}

const (
	rowHeight    = 7.0
	bottomMargin = 15.0
)

// RenderPDF draws the bill on A4 pages. The column header repeats on
// every page and zero unit prices are drawn in red.
func RenderPDF(w io.Writer, doc Document) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, bottomMargin)
	pdf.AddPage()
	_, pageHeight := pdf.GetPageSize()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Wood Bill - "+doc.clientName())
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, "Date: "+doc.GeneratedAt.Format("2006-01-02 15:04:05"))
	pdf.Ln(10)

	header := func() {
		pdf.SetFont("Arial", "B", 10)
		for _, c := range billColumns {
			pdf.CellFormat(c.width, rowHeight, c.title, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
	}
	header()

	for i, e := range doc.Entries {
		if pdf.GetY()+rowHeight > pageHeight-bottomMargin {
			pdf.AddPage()
			header()
		}
		cells := []string{
			strconv.Itoa(i + 1),
			e.Length.StringFixed(2),
			e.Girth.StringFixed(2),
			e.Volume.StringFixed(1),
			e.UnitPrice.StringFixed(2),
			e.LogTotal.StringFixed(2),
		}
		for j, c := range billColumns {
			if j == 4 && e.UnitPrice.IsZero() {
				pdf.SetTextColor(220, 0, 0)
			}
			pdf.CellFormat(c.width, rowHeight, cells[j], "1", 0, c.align, false, 0, "")
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Ln(-1)
	}

	if pdf.GetY()+3*rowHeight > pageHeight-bottomMargin {
		pdf.AddPage()
	}
	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, rowHeight, fmt.Sprintf("Total Volume: %s cft", doc.Totals.Volume.StringFixed(1)))
	pdf.Ln(rowHeight)
	pdf.Cell(0, rowHeight, fmt.Sprintf("Grand Total: %s %s", doc.label(), doc.Totals.GrandTotal.StringFixed(2)))
	pdf.Ln(rowHeight)

	if err := pdf.Output(w); err != nil {
		return errors.Internal("render pdf", err)
	}
	return nil
}
