// Package types defines core domain types shared across all layers.
// This package contains NO business logic - only type definitions and
// the value semantics (equality, containment, key formatting) they carry.
package types

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Tolerance is the absolute tolerance used when comparing girth bounds and
// catalog lengths for equality, contiguity and duplicates.
const Tolerance = 0.001

// GirthRange is a half-open girth band (Start, End] in inches.
// The band starting at zero also accepts a girth of exactly zero.
type GirthRange struct {
	// Start is the exclusive lower bound
	Start float64 `json:"start" yaml:"start"`

	// End is the inclusive upper bound
	End float64 `json:"end" yaml:"end"`
}

// Equal compares both bounds within Tolerance
func (r GirthRange) Equal(other GirthRange) bool {
	return math.Abs(r.Start-other.Start) < Tolerance &&
		math.Abs(r.End-other.End) < Tolerance
}

// Contains reports whether girth falls inside the band
func (r GirthRange) Contains(girth float64) bool {
	if r.Start == 0 {
		return girth >= 0 && girth <= r.End
	}
	return girth > r.Start && girth <= r.End
}

// String formats the band as "start-end" with one decimal, e.g. "0.0-18.0"
func (r GirthRange) String() string {
	return FormatTenths(r.Start) + "-" + FormatTenths(r.End)
}

// GoString renders the raw bounds, used in debug logs
func (r GirthRange) GoString() string {
	return fmt.Sprintf("GirthRange{%g, %g}", r.Start, r.End)
}

// RangesEqual compares two sorted range lists element-wise within Tolerance
func RangesEqual(a, b []GirthRange) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// LengthsEqual compares two sorted length catalogs element-wise within Tolerance
func LengthsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) >= Tolerance {
			return false
		}
	}
	return true
}

// FormatTenths renders v with one decimal, rounding the shortest decimal
// representation of v half-up. 2.25 renders as "2.3" and 0.05 as "0.1".
func FormatTenths(v float64) string {
	return decimal.NewFromFloat(v).Round(1).StringFixed(1)
}
