package pricing

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"timbercalc/core/types"
	"timbercalc/internal/errors"
)

type memStore struct {
	table          *Table
	ranges, length string
}

func (s *memStore) LoadTable(context.Context) (*Table, error) {
	if s.table == nil {
		return Empty(), nil
	}
	return s.table, nil
}

func (s *memStore) SaveTable(_ context.Context, t *Table) error {
	s.table = t
	return nil
}

func (s *memStore) SaveInputs(_ context.Context, ranges, lengths string) error {
	s.ranges, s.length = ranges, lengths
	return nil
}

func (s *memStore) LoadInputs(context.Context) (string, string, error) {
	return s.ranges, s.length, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e types.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestManagerDefineKeepsPricesWhenDimensionsUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	pub := &recordingPublisher{}
	m := NewManager(store, DefaultLimits(), pub, nil)

	if _, cleared, err := m.Define(ctx, "0-18, 18-20", "8, 12"); err != nil || !cleared {
		t.Fatalf("first define: cleared=%v err=%v", cleared, err)
	}
	if _, err := m.SetPriceFor(ctx, "0-18", 8, "120.04"); err != nil {
		t.Fatalf("set price: %v", err)
	}

	table, cleared, err := m.Define(ctx, "18-20,0-18", "12,8")
	if err != nil {
		t.Fatalf("redefine: %v", err)
	}
	if cleared {
		t.Error("same dimensions must keep prices")
	}
	price, ok := table.Price(types.NewPriceKey(types.GirthRange{Start: 0, End: 18}, 8))
	if !ok || !price.Equal(decimal.RequireFromString("120.0")) {
		t.Errorf("expected retained price 120.0, got %s (%v)", price, ok)
	}

	table, cleared, err = m.Define(ctx, "0-18, 18-25", "8, 12")
	if err != nil {
		t.Fatalf("change dimensions: %v", err)
	}
	if !cleared || len(table.Cells()) != 0 {
		t.Error("changed dimensions must clear prices")
	}

	if store.ranges != "0-18, 18-25" {
		t.Errorf("raw input not recorded: %q", store.ranges)
	}
	if len(pub.events) != 4 {
		t.Errorf("expected 4 events, got %d", len(pub.events))
	}
	for _, e := range pub.events {
		if e.Type != types.EventPriceTableUpdated {
			t.Errorf("unexpected event type %s", e.Type)
		}
	}
}

func TestManagerDefineRejectsOverLimit(t *testing.T) {
	m := NewManager(&memStore{}, DefaultLimits(), nil, nil)
	_, _, err := m.Define(context.Background(), "0-50, 50-120", "8")
	if !errors.IsType(err, errors.TypeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestManagerSetPrice(t *testing.T) {
	ctx := context.Background()
	m := NewManager(&memStore{}, DefaultLimits(), nil, nil)
	if _, _, err := m.Define(ctx, "0-18, 18-20", "8, 12"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		rng     string
		length  float64
		price   string
		want    string
		errType errors.Type
	}{
		{name: "rounds half-up to one place", rng: "0-18", length: 8, price: "99.95", want: "100"},
		{name: "zero allowed", rng: "18-20", length: 12, price: "0", want: "0"},
		{name: "empty", rng: "0-18", length: 8, price: " ", errType: errors.TypeValidation},
		{name: "negative", rng: "0-18", length: 8, price: "-1", errType: errors.TypeValidation},
		{name: "not a number", rng: "0-18", length: 8, price: "abc", errType: errors.TypeParsing},
		{name: "unknown cell", rng: "0-18", length: 10, price: "5", errType: errors.TypeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := m.SetPriceFor(ctx, tt.rng, tt.length, tt.price)
			if tt.errType != "" {
				if !errors.IsType(err, tt.errType) {
					t.Fatalf("expected %s, got %v", tt.errType, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			ranges, _ := ParseGirthRanges(tt.rng)
			got, ok := table.Price(types.NewPriceKey(ranges[0], tt.length))
			if !ok || !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestManagerImportValidatesBeforeReplacing(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	m := NewManager(store, DefaultLimits(), nil, nil)
	if _, _, err := m.Define(ctx, "0-18", "8"); err != nil {
		t.Fatal(err)
	}
	before := store.table.ID

	bad := Data{
		UnitPrices:   map[string]float64{},
		GirthRanges:  []types.GirthRange{{Start: 0, End: 18}, {Start: 20, End: 30}},
		LengthValues: []float64{8},
	}
	if _, err := m.Import(ctx, bad); err == nil {
		t.Fatal("expected import of gapped ranges to fail")
	}
	if store.table.ID != before {
		t.Error("failed import must leave the stored table untouched")
	}

	good := Data{
		UnitPrices:   map[string]float64{"G_0.0-18.0_L_8.0": 75.5},
		GirthRanges:  []types.GirthRange{{Start: 0, End: 18}},
		LengthValues: []float64{8, 10},
	}
	table, err := m.Import(ctx, good)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Source != SourceImport {
		t.Errorf("expected import source, got %s", table.Source)
	}
	if store.length != "8.0, 10.0" {
		t.Errorf("expected recorded lengths, got %q", store.length)
	}
}

func TestManagerInputsDefaults(t *testing.T) {
	m := NewManager(&memStore{}, DefaultLimits(), nil, nil)
	ranges, lengths, err := m.Inputs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ranges != DefaultRangesText || lengths != DefaultLengthsText {
		t.Errorf("expected defaults, got %q / %q", ranges, lengths)
	}
}
