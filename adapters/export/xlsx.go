package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"timbercalc/internal/errors"
)

const billSheet = "bill"

// RenderXLSX writes the bill as a single worksheet with a summary block
// under the entries.
func RenderXLSX(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", billSheet); err != nil {
		return errors.Internal("create sheet", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Internal("create style", err)
	}
	red, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "DC0000"}})
	if err != nil {
		return errors.Internal("create style", err)
	}

	_ = f.SetCellValue(billSheet, "A1", "Wood Bill - "+doc.clientName())
	_ = f.SetCellStyle(billSheet, "A1", "A1", bold)
	_ = f.SetCellValue(billSheet, "A2", "Date: "+doc.GeneratedAt.Format("2006-01-02 15:04:05"))

	const headerRow = 4
	for j, c := range billColumns {
		cell, _ := excelize.CoordinatesToCellName(j+1, headerRow)
		_ = f.SetCellValue(billSheet, cell, c.title)
	}
	_ = f.SetCellStyle(billSheet, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("F%d", headerRow), bold)

	row := headerRow
	for i, e := range doc.Entries {
		row = headerRow + 1 + i
		_ = f.SetCellValue(billSheet, fmt.Sprintf("A%d", row), i+1)
		_ = f.SetCellValue(billSheet, fmt.Sprintf("B%d", row), e.Length.InexactFloat64())
		_ = f.SetCellValue(billSheet, fmt.Sprintf("C%d", row), e.Girth.InexactFloat64())
		_ = f.SetCellValue(billSheet, fmt.Sprintf("D%d", row), e.Volume.InexactFloat64())
		_ = f.SetCellValue(billSheet, fmt.Sprintf("E%d", row), e.UnitPrice.InexactFloat64())
		_ = f.SetCellValue(billSheet, fmt.Sprintf("F%d", row), e.LogTotal.InexactFloat64())
		if e.UnitPrice.IsZero() {
			cell := fmt.Sprintf("E%d", row)
			_ = f.SetCellStyle(billSheet, cell, cell, red)
		}
	}

	summary := row + 2
	_ = f.SetCellValue(billSheet, fmt.Sprintf("A%d", summary), "Total Volume (cft)")
	_ = f.SetCellValue(billSheet, fmt.Sprintf("B%d", summary), doc.Totals.Volume.InexactFloat64())
	_ = f.SetCellValue(billSheet, fmt.Sprintf("A%d", summary+1), "Grand Total ("+doc.label()+")")
	_ = f.SetCellValue(billSheet, fmt.Sprintf("B%d", summary+1), doc.Totals.GrandTotal.InexactFloat64())
	_ = f.SetCellStyle(billSheet, fmt.Sprintf("A%d", summary), fmt.Sprintf("A%d", summary+1), bold)

	if err := f.Write(w); err != nil {
		return errors.Internal("write workbook", err)
	}
	return nil
}
