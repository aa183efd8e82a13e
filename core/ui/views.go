package ui

import (
	"encoding/json"
	"fmt"
	"strconv"

	"timbercalc/core/pricing"
	"timbercalc/core/types"
)

// DefaultCurrencyLabel prefixes money amounts when none is configured
const DefaultCurrencyLabel = "₹"

// BillView prints bills, resolutions and price tables
type BillView struct {
	w     *Writer
	label string
}

// NewBillView creates a view; label prefixes money amounts
func NewBillView(w *Writer, label string) *BillView {
	if label == "" {
		label = DefaultCurrencyLabel
	}
	return &BillView{w: w, label: label}
}

// DisplayBill shows the entries followed by the totals. Zero unit prices
// are highlighted since they usually mean the table has a gap.
func (v *BillView) DisplayBill(entries []types.LogEntry, totals types.Totals) {
	if len(entries) == 0 {
		v.w.Info("The bill is empty.")
	} else {
		table := v.w.NewTable("Sl. No.", "Length (ft)", "Girth (in)", "Volume (cft)", "Unit Price", "Total").
			AlignRight(0, 1, 2, 3, 4, 5)
		for i, e := range entries {
			var colors map[int]string
			if e.UnitPrice.IsZero() {
				colors = map[int]string{4: Red}
			}
			table.AddColoredRow(colors,
				strconv.Itoa(i+1),
				e.Length.StringFixed(2),
				e.Girth.StringFixed(2),
				e.Volume.StringFixed(1),
				e.UnitPrice.StringFixed(2),
				e.LogTotal.StringFixed(2),
			)
		}
		table.Render()
	}
	v.DisplayTotals(totals)
}

// DisplayTotals prints the bill footer
func (v *BillView) DisplayTotals(totals types.Totals) {
	v.w.Println("")
	v.w.Println("%s", v.w.color(Bold, fmt.Sprintf("Total Volume: %s cft", totals.Volume.StringFixed(1))))
	v.w.Println("%s", v.w.color(Bold+Green, fmt.Sprintf("Grand Total: %s %s", v.label, totals.GrandTotal.StringFixed(2))))
}

// DisplayEntry shows one computed entry
func (v *BillView) DisplayEntry(slno int, e types.LogEntry) {
	price := e.UnitPrice.StringFixed(2)
	if e.UnitPrice.IsZero() {
		price = v.w.color(Red, price)
	}
	v.w.Println("#%d  girth %s in  length %s ft  volume %s cft  @ %s  = %s %s",
		slno, e.Girth.StringFixed(2), e.Length.StringFixed(2), e.Volume.StringFixed(1),
		price, v.label, e.LogTotal.StringFixed(2))
}

// DisplayResolution explains how a price was found
func (v *BillView) DisplayResolution(res pricing.Resolution) {
	if !res.RangeFound {
		v.w.Warning("No girth range covers this girth; price is 0.")
		return
	}
	v.w.Println("Range:  %s", res.Range.String())
	v.w.Println("Length: %s", types.FormatTenths(res.Length))
	v.w.Println("Key:    %s", res.Key.String())
	if res.Matched {
		v.w.Println("Price:  %s %s", v.label, res.Price.StringFixed(2))
		return
	}
	v.w.Warning("No price configured for %s; price is 0.", res.Key.String())
}

// DisplayPriceTable shows the grid: bands down, lengths across.
// Cells without a price show "-".
func (v *BillView) DisplayPriceTable(t *pricing.Table) {
	if t == nil || !t.IsConfigured() {
		v.w.Warning("Price table is not fully configured. Define girth ranges and lengths first.")
		return
	}

	lengths := t.Lengths()
	headers := make([]string, 0, len(lengths)+1)
	headers = append(headers, `G\L`)
	for _, l := range lengths {
		headers = append(headers, types.FormatTenths(l))
	}
	table := v.w.NewTable(headers...)
	for i := range lengths {
		table.AlignRight(i + 1)
	}

	for _, r := range t.Ranges() {
		cells := []string{r.String()}
		colors := map[int]string{}
		for j, l := range lengths {
			price, ok := t.Price(types.NewPriceKey(r, l))
			if !ok {
				cells = append(cells, "-")
				colors[j+1] = Dim
				continue
			}
			cells = append(cells, price.StringFixed(1))
		}
		table.AddColoredRow(colors, cells...)
	}
	table.Render()
	v.w.Println("")
	v.w.Println("%s", v.w.color(Dim, fmt.Sprintf("table %s (%s)", t.ID, t.Source)))
}

// JSONOutput writes v as indented JSON
func (v *BillView) JSONOutput(value interface{}) error {
	enc := json.NewEncoder(v.w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
