package pricelist

import (
	"io"

	"github.com/xuri/excelize/v2"

	"timbercalc/core/pricing"
	"timbercalc/core/types"
	"timbercalc/internal/errors"
)

const gridSheet = "prices"

// encodeXLSX writes the table as a grid: lengths across, bands down.
// Missing prices are left blank.
func encodeXLSX(w io.Writer, table *pricing.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", gridSheet); err != nil {
		return errors.Internal("create sheet", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Internal("create style", err)
	}

	_ = f.SetCellValue(gridSheet, "A1", `G\L`)
	lengths := table.Lengths()
	for j, l := range lengths {
		cell, _ := excelize.CoordinatesToCellName(j+2, 1)
		_ = f.SetCellValue(gridSheet, cell, l)
	}

	for i, r := range table.Ranges() {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(gridSheet, cell, r.String())
		for j, l := range lengths {
			price, ok := table.Price(types.NewPriceKey(r, l))
			if !ok {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(j+2, row)
			_ = f.SetCellValue(gridSheet, cell, price.InexactFloat64())
		}
	}

	last, _ := excelize.CoordinatesToCellName(len(lengths)+1, 1)
	_ = f.SetCellStyle(gridSheet, "A1", last, bold)
	lastRow, _ := excelize.CoordinatesToCellName(1, len(table.Ranges())+1)
	_ = f.SetCellStyle(gridSheet, "A2", lastRow, bold)

	if err := f.Write(w); err != nil {
		return errors.Internal("write workbook", err)
	}
	return nil
}
