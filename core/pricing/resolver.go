// Package pricing - Price resolution for (girth, length) measurements
package pricing

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"timbercalc/core/types"
)

// Store provides persistent price table storage
type Store interface {
	// LoadTable returns the stored table, or an empty one if none was saved
	LoadTable(ctx context.Context) (*Table, error)

	// SaveTable replaces the stored table
	SaveTable(ctx context.Context, table *Table) error
}

// Reason explains why a price could not be resolved
type Reason string

const (
	// ReasonNone means the price resolved
	ReasonNone Reason = ""

	// ReasonNoGirthRange means no band contains the girth
	ReasonNoGirthRange Reason = "no_girth_range"

	// ReasonNoPriceConfigured means the cell exists but holds no price
	ReasonNoPriceConfigured Reason = "no_price_configured"
)

// Resolution is the full outcome of a price lookup
type Resolution struct {
	// Price is the unit price rounded half-up to 2 places, zero when unresolved
	Price decimal.Decimal `json:"price"`

	// Matched is true only when a configured price was found.
	// An explicit zero price resolves with Matched true.
	Matched bool `json:"matched"`

	// Range is the band that contains the girth
	Range types.GirthRange `json:"range"`

	// RangeFound is false when no band contains the girth
	RangeFound bool `json:"rangeFound"`

	// Length is the catalog length chosen for the lookup
	Length float64 `json:"length"`

	// Key is the cell that was looked up
	Key types.PriceKey `json:"-"`

	// Reason is set when Matched is false
	Reason Reason `json:"reason,omitempty"`
}

// MatchRange returns the first band, in ascending start order, that
// contains girth.
func MatchRange(ranges []types.GirthRange, girth float64) (types.GirthRange, bool) {
	for _, r := range ranges {
		if r.Contains(girth) {
			return r, true
		}
	}
	return types.GirthRange{}, false
}

// ClosestLength returns the catalog entry nearest to target. lengths must
// be sorted ascending. An exact tie between two neighbours picks the upper
// one; targets outside the catalog clamp to its ends. An empty catalog
// returns target unchanged.
func ClosestLength(lengths []float64, target float64) float64 {
	n := len(lengths)
	if n == 0 {
		return target
	}

	i := sort.SearchFloat64s(lengths, target)
	if i < n && lengths[i] == target {
		return target
	}
	if i == 0 {
		return lengths[0]
	}
	if i == n {
		return lengths[n-1]
	}

	below, above := lengths[i-1], lengths[i]
	if target-below < above-target {
		return below
	}
	return above
}

// Resolve looks up the unit price for a measurement
func Resolve(t *Table, girth, length float64) Resolution {
	if t == nil {
		t = Empty()
	}

	r, ok := MatchRange(t.ranges, girth)
	if !ok {
		return Resolution{
			Price:  decimal.Zero,
			Length: length,
			Reason: ReasonNoGirthRange,
		}
	}

	closest := ClosestLength(t.lengths, length)
	key := types.NewPriceKey(r, closest)
	res := Resolution{
		Price:      decimal.Zero,
		Range:      r,
		RangeFound: true,
		Length:     closest,
		Key:        key,
	}

	price, ok := t.Price(key)
	if !ok {
		res.Reason = ReasonNoPriceConfigured
		return res
	}
	res.Price = price.Round(2)
	res.Matched = true
	return res
}

// ResolvePrice returns only the price and whether it was configured
func ResolvePrice(t *Table, girth, length float64) (decimal.Decimal, bool) {
	res := Resolve(t, girth, length)
	return res.Price, res.Matched
}
