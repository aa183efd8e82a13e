// Package pricing provides immutable price table snapshots with content hashing,
// range/length parsing, and price resolution for (girth, length) measurements.
package pricing

import (
	"crypto/sha256"
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"timbercalc/core/determinism"
	"timbercalc/core/types"
	"timbercalc/internal/errors"
)

// TableID uniquely identifies a price table snapshot
type TableID string

// Table is IMMUTABLE after creation.
// It holds the girth bands, the length catalog and the unit price grid.
type Table struct {
	// Identity
	ID          TableID                 // hash-based
	ContentHash determinism.ContentHash // SHA-256 of bands, lengths and prices
	CreatedAt   time.Time

	// Source information
	Source Source

	ranges  []types.GirthRange
	lengths []float64
	prices  map[types.PriceKey]decimal.Decimal

	sealed bool
}

// Source indicates where a table came from
type Source int

const (
	SourceStorage Source = iota // Loaded from the key-value store
	SourceManual                // Defined or edited by the operator
	SourceImport                // Imported from a price list file
	SourceEmpty                 // Nothing configured yet
)

// String returns the source name
func (s Source) String() string {
	switch s {
	case SourceStorage:
		return "storage"
	case SourceManual:
		return "manual"
	case SourceImport:
		return "import"
	case SourceEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Cell is one configured price
type Cell struct {
	Key   types.PriceKey
	Price decimal.Decimal
}

// Data is the serialised table shape shared by storage and price list files
type Data struct {
	UnitPrices   map[string]float64 `json:"unitPrices" yaml:"unitPrices"`
	GirthRanges  []types.GirthRange `json:"girthRanges" yaml:"girthRanges"`
	LengthValues []float64          `json:"lengthValues" yaml:"lengthValues"`
}

// Builder builds a price table
type Builder struct {
	source  Source
	ranges  []types.GirthRange
	lengths []float64
	prices  map[types.PriceKey]decimal.Decimal
}

// NewBuilder creates a new builder
func NewBuilder() *Builder {
	return &Builder{
		source: SourceManual,
		prices: make(map[types.PriceKey]decimal.Decimal),
	}
}

// WithSource sets the table source
func (b *Builder) WithSource(source Source) *Builder {
	b.source = source
	return b
}

// WithRanges sets the girth bands
func (b *Builder) WithRanges(ranges []types.GirthRange) *Builder {
	b.ranges = append([]types.GirthRange(nil), ranges...)
	return b
}

// WithLengths sets the length catalog
func (b *Builder) WithLengths(lengths []float64) *Builder {
	b.lengths = append([]float64(nil), lengths...)
	return b
}

// SetPrice sets the unit price of one cell
func (b *Builder) SetPrice(key types.PriceKey, price decimal.Decimal) *Builder {
	b.prices[key] = price
	return b
}

// WithPrices copies every configured price of an existing table
func (b *Builder) WithPrices(t *Table) *Builder {
	for k, v := range t.prices {
		b.prices[k] = v
	}
	return b
}

// Build creates an immutable table
func (b *Builder) Build() *Table {
	// Sort for deterministic ordering and binary search
	sort.SliceStable(b.ranges, func(i, j int) bool {
		return b.ranges[i].Start < b.ranges[j].Start
	})
	sort.Float64s(b.lengths)

	prices := make(map[types.PriceKey]decimal.Decimal, len(b.prices))
	for k, v := range b.prices {
		prices[k] = v
	}

	t := &Table{
		CreatedAt: time.Now().UTC(),
		Source:    b.source,
		ranges:    b.ranges,
		lengths:   b.lengths,
		prices:    prices,
	}
	if len(t.ranges) == 0 && len(t.lengths) == 0 && len(t.prices) == 0 {
		t.Source = SourceEmpty
	}

	t.ContentHash = t.computeHash()
	t.ID = TableID(t.ContentHash.Short())
	t.sealed = true

	return t
}

// Empty returns a table with nothing configured
func Empty() *Table {
	return NewBuilder().Build()
}

// FromData builds a table from its serialised form. Keys that do not
// parse are rejected; use Data.Validate first for structural checks.
func FromData(d Data, source Source) (*Table, error) {
	b := NewBuilder().
		WithSource(source).
		WithRanges(d.GirthRanges).
		WithLengths(d.LengthValues)

	for _, k := range determinism.SortedKeys(d.UnitPrices) {
		key, err := types.ParsePriceKey(k)
		if err != nil {
			return nil, err
		}
		b.SetPrice(key, decimal.NewFromFloat(d.UnitPrices[k]))
	}
	return b.Build(), nil
}

// computeHash creates a content hash of the whole grid
func (t *Table) computeHash() determinism.ContentHash {
	h := sha256.New()
	for _, r := range t.ranges {
		h.Write([]byte(r.String()))
		h.Write([]byte{0})
	}
	for _, l := range t.lengths {
		h.Write([]byte(types.FormatTenths(l)))
		h.Write([]byte{0})
	}
	for _, c := range t.Cells() {
		data, _ := json.Marshal([2]string{c.Key.String(), c.Price.String()})
		h.Write(data)
	}
	var hash determinism.ContentHash
	copy(hash[:], h.Sum(nil))
	return hash
}

// Verify checks content hash integrity
func (t *Table) Verify() bool {
	return t.sealed && t.computeHash() == t.ContentHash
}

// Ranges returns the girth bands in ascending start order
func (t *Table) Ranges() []types.GirthRange {
	return append([]types.GirthRange(nil), t.ranges...)
}

// Lengths returns the length catalog in ascending order
func (t *Table) Lengths() []float64 {
	return append([]float64(nil), t.lengths...)
}

// Price looks up a configured unit price
func (t *Table) Price(key types.PriceKey) (decimal.Decimal, bool) {
	p, ok := t.prices[key]
	return p, ok
}

// Cells returns every configured price sorted by key
func (t *Table) Cells() []Cell {
	cells := make([]Cell, 0, len(t.prices))
	for k, v := range t.prices {
		cells = append(cells, Cell{Key: k, Price: v})
	}
	sort.Slice(cells, func(i, j int) bool {
		return cells[i].Key.String() < cells[j].Key.String()
	})
	return cells
}

// HasCell reports whether key addresses a band and length of this table
func (t *Table) HasCell(key types.PriceKey) bool {
	for _, r := range t.ranges {
		for _, l := range t.lengths {
			if types.NewPriceKey(r, l) == key {
				return true
			}
		}
	}
	return false
}

// IsConfigured reports whether bands and lengths are both present
func (t *Table) IsConfigured() bool {
	return len(t.ranges) > 0 && len(t.lengths) > 0
}

// IsEmpty reports whether the table holds no data at all
func (t *Table) IsEmpty() bool {
	return len(t.ranges) == 0 && len(t.lengths) == 0 && len(t.prices) == 0
}

// SameDimensions reports whether bands and lengths match within Tolerance
func (t *Table) SameDimensions(ranges []types.GirthRange, lengths []float64) bool {
	return types.RangesEqual(t.ranges, ranges) && types.LengthsEqual(t.lengths, lengths)
}

// Data returns the serialised form of the table
func (t *Table) Data() Data {
	d := Data{
		UnitPrices:   make(map[string]float64, len(t.prices)),
		GirthRanges:  t.Ranges(),
		LengthValues: t.Lengths(),
	}
	for k, v := range t.prices {
		d.UnitPrices[k.String()] = v.InexactFloat64()
	}
	return d
}

// Validate checks an imported table: bands contiguous without duplicates,
// lengths positive and unique, limits honoured, prices non-negative and
// keyed in the persisted format.
func (d Data) Validate(limits Limits) error {
	if d.UnitPrices == nil || d.GirthRanges == nil || d.LengthValues == nil {
		return errors.Validation("Invalid or incomplete price list data in the file.")
	}

	ranges := append([]types.GirthRange(nil), d.GirthRanges...)
	for _, r := range ranges {
		if r.Start < 0 || r.End < 0 {
			return errors.Validationf("Girth range values cannot be negative. Found in '%s'.", r)
		}
		if r.Start >= r.End {
			return errors.Validationf("Girth range 'start' must be less than 'end'. Invalid range: '%s'.", r)
		}
	}
	if err := checkRanges(ranges); err != nil {
		return err
	}

	lengths := append([]float64(nil), d.LengthValues...)
	if err := checkLengths(lengths); err != nil {
		return err
	}
	if err := limits.Check(ranges, lengths); err != nil {
		return err
	}

	for _, k := range determinism.SortedKeys(d.UnitPrices) {
		if _, err := types.ParsePriceKey(k); err != nil {
			return err
		}
		if d.UnitPrices[k] < 0 {
			return errors.Validationf("Price cannot be negative: %s", k)
		}
	}
	return nil
}
