// Package volume computes billable log volume and totals.
// Volume in cubic feet is girth² x length / 2304 (girth in inches,
// length in feet). All arithmetic is fixed-point with half-up rounding.
package volume

import (
	"strings"

	"github.com/shopspring/decimal"

	"timbercalc/core/types"
	"timbercalc/internal/errors"
)

// Divisor converts girth² (sq in) x length (ft) to cubic feet
var Divisor = decimal.NewFromInt(2304)

const (
	// MeasurementPlaces is the scale girth and length are normalised to
	MeasurementPlaces = 2

	// IntermediatePlaces is the scale of the raw division
	IntermediatePlaces = 6

	// VolumePlaces is the scale of the billed volume
	VolumePlaces = 1

	// MoneyPlaces is the scale of prices and totals
	MoneyPlaces = 2
)

// Measurement is a validated, normalised girth and length
type Measurement struct {
	Girth  decimal.Decimal
	Length decimal.Decimal
}

// ParseMeasurement parses and validates operator input
func ParseMeasurement(girthText, lengthText string) (Measurement, error) {
	girthText = strings.TrimSpace(girthText)
	lengthText = strings.TrimSpace(lengthText)
	if girthText == "" || lengthText == "" {
		return Measurement{}, errors.Validation("Please enter both Girth and Length.")
	}

	girth, err := decimal.NewFromString(girthText)
	if err != nil {
		return Measurement{}, errors.Parsing("Please enter valid numbers for Girth and Length.", err)
	}
	length, err := decimal.NewFromString(lengthText)
	if err != nil {
		return Measurement{}, errors.Parsing("Please enter valid numbers for Girth and Length.", err)
	}
	return NewMeasurement(girth, length)
}

// NewMeasurement validates positivity and normalises to two places
func NewMeasurement(girth, length decimal.Decimal) (Measurement, error) {
	if !girth.IsPositive() || !length.IsPositive() {
		return Measurement{}, errors.Validation("Girth and Length must be positive values.")
	}
	return Measurement{
		Girth:  Normalize(girth),
		Length: Normalize(length),
	}, nil
}

// ParseUnitPrice parses an operator-supplied unit price. Zero is allowed.
func ParseUnitPrice(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, errors.Validation("Unit Price cannot be empty.")
	}
	p, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, errors.Parsing("Invalid number format. Please enter valid numbers.", err)
	}
	if p.IsNegative() {
		return decimal.Zero, errors.Validation("Values must be positive (Unit Price can be zero).")
	}
	return p.Round(MoneyPlaces), nil
}

// Normalize rounds a measurement half-up to two places
func Normalize(d decimal.Decimal) decimal.Decimal {
	return d.Round(MeasurementPlaces)
}

// Compute returns the billed volume of a measurement. The division is
// carried at six places, then rounded to one.
func Compute(m Measurement) decimal.Decimal {
	raw := m.Girth.Mul(m.Girth).Mul(m.Length).DivRound(Divisor, IntermediatePlaces)
	return raw.Round(VolumePlaces)
}

// ComputeVolumeAndTotal computes (volume, total) for a measurement and a
// non-negative unit price.
func ComputeVolumeAndTotal(girth, length, unitPrice decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	m, err := NewMeasurement(girth, length)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if unitPrice.IsNegative() {
		return decimal.Zero, decimal.Zero, errors.Validation("Values must be positive (Unit Price can be zero).")
	}
	v := Compute(m)
	return v, v.Mul(unitPrice).Round(MoneyPlaces), nil
}

// NewEntry builds a bill entry from a measurement and unit price
func NewEntry(m Measurement, unitPrice decimal.Decimal) (types.LogEntry, error) {
	unitPrice = unitPrice.Round(MoneyPlaces)
	v, total, err := ComputeVolumeAndTotal(m.Girth, m.Length, unitPrice)
	if err != nil {
		return types.LogEntry{}, err
	}
	return types.LogEntry{
		Girth:     m.Girth,
		Length:    m.Length,
		Volume:    v,
		UnitPrice: unitPrice,
		LogTotal:  total,
	}, nil
}

// Totals sums the per-entry rounded volumes and totals
func Totals(entries []types.LogEntry) types.Totals {
	t := types.Totals{
		Entries:    len(entries),
		Volume:     decimal.Zero,
		GrandTotal: decimal.Zero,
	}
	for _, e := range entries {
		t.Volume = t.Volume.Add(e.Volume)
		t.GrandTotal = t.GrandTotal.Add(e.LogTotal)
	}
	return t
}
