// Package types - Price key and bill entry types
package types

import (
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"

	"timbercalc/internal/errors"
)

// PriceKey uniquely identifies a price table cell: a girth band and a
// catalog length. Bounds are held in tenths so keys are comparable and
// hash the same way their string form does.
type PriceKey struct {
	// StartTenths is the band start multiplied by ten
	StartTenths int64

	// EndTenths is the band end multiplied by ten
	EndTenths int64

	// LengthTenths is the length multiplied by ten
	LengthTenths int64
}

// NewPriceKey builds the key for a band and a length
func NewPriceKey(r GirthRange, length float64) PriceKey {
	return PriceKey{
		StartTenths:  toTenths(r.Start),
		EndTenths:    toTenths(r.End),
		LengthTenths: toTenths(length),
	}
}

func toTenths(v float64) int64 {
	return decimal.NewFromFloat(v).Round(1).Shift(1).IntPart()
}

func fromTenths(t int64) decimal.Decimal {
	return decimal.New(t, -1)
}

// String returns the persisted form "G_<start>-<end>_L_<length>",
// e.g. "G_0.0-18.0_L_8.0"
func (k PriceKey) String() string {
	return "G_" + fromTenths(k.StartTenths).StringFixed(1) +
		"-" + fromTenths(k.EndTenths).StringFixed(1) +
		"_L_" + fromTenths(k.LengthTenths).StringFixed(1)
}

// Range returns the girth band the key addresses
func (k PriceKey) Range() GirthRange {
	return GirthRange{
		Start: fromTenths(k.StartTenths).InexactFloat64(),
		End:   fromTenths(k.EndTenths).InexactFloat64(),
	}
}

// Length returns the catalog length the key addresses
func (k PriceKey) Length() float64 {
	return fromTenths(k.LengthTenths).InexactFloat64()
}

var priceKeyPattern = regexp.MustCompile(`^G_(\d+(?:\.\d+)?)-(\d+(?:\.\d+)?)_L_(\d+(?:\.\d+)?)$`)

// ParsePriceKey parses the persisted key form
func ParsePriceKey(s string) (PriceKey, error) {
	m := priceKeyPattern.FindStringSubmatch(s)
	if m == nil {
		return PriceKey{}, errors.Parsing("invalid price key: '"+s+"'", nil)
	}
	vals := make([]float64, 3)
	for i := range vals {
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return PriceKey{}, errors.Parsing("invalid price key: '"+s+"'", err)
		}
		vals[i] = v
	}
	return NewPriceKey(GirthRange{Start: vals[0], End: vals[1]}, vals[2]), nil
}

// LogEntry is one measured log on a bill
type LogEntry struct {
	// Girth in inches, two decimals
	Girth decimal.Decimal `json:"girth"`

	// Length in feet, two decimals
	Length decimal.Decimal `json:"length"`

	// Volume in cubic feet, one decimal
	Volume decimal.Decimal `json:"volume"`

	// UnitPrice is the price per cubic foot, two decimals
	UnitPrice decimal.Decimal `json:"unitPrice"`

	// LogTotal is Volume x UnitPrice, two decimals
	LogTotal decimal.Decimal `json:"logTotal"`
}

// Totals aggregates a list of entries
type Totals struct {
	// Entries is the number of logs
	Entries int `json:"entries"`

	// Volume is the sum of per-entry rounded volumes
	Volume decimal.Decimal `json:"volume"`

	// GrandTotal is the sum of per-entry rounded totals
	GrandTotal decimal.Decimal `json:"grandTotal"`
}
