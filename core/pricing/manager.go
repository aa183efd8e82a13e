// Package pricing - Price table administration
package pricing

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"timbercalc/core/types"
	"timbercalc/internal/errors"
)

// InputRecorder is implemented by stores that keep the raw text of the
// last table definition so it can be offered for editing again.
type InputRecorder interface {
	SaveInputs(ctx context.Context, rangesText, lengthsText string) error
	LoadInputs(ctx context.Context) (rangesText, lengthsText string, err error)
}

// Manager applies operator changes to the stored price table
type Manager struct {
	store     Store
	limits    Limits
	publisher types.Publisher
	log       *zap.Logger

	mu sync.Mutex
}

// NewManager creates a manager. A nil publisher or logger disables that concern.
func NewManager(store Store, limits Limits, publisher types.Publisher, log *zap.Logger) *Manager {
	if publisher == nil {
		publisher = types.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:     store,
		limits:    limits,
		publisher: publisher,
		log:       log,
	}
}

// Limits returns the dimension limits enforced by the manager
func (m *Manager) Limits() Limits {
	return m.limits
}

// Current returns the stored table
func (m *Manager) Current(ctx context.Context) (*Table, error) {
	return m.store.LoadTable(ctx)
}

// Inputs returns the raw text of the last definition, or the stock
// defaults when nothing was recorded.
func (m *Manager) Inputs(ctx context.Context) (string, string, error) {
	rec, ok := m.store.(InputRecorder)
	if !ok {
		return DefaultRangesText, DefaultLengthsText, nil
	}
	ranges, lengths, err := rec.LoadInputs(ctx)
	if err != nil {
		return "", "", err
	}
	if ranges == "" {
		ranges = DefaultRangesText
	}
	if lengths == "" {
		lengths = DefaultLengthsText
	}
	return ranges, lengths, nil
}

// Define replaces the table dimensions. Prices survive only when the new
// bands and lengths match the current ones within Tolerance. The returned
// flag reports whether prices were cleared.
func (m *Manager) Define(ctx context.Context, rangesText, lengthsText string) (*Table, bool, error) {
	ranges, err := ParseGirthRanges(rangesText)
	if err != nil {
		return nil, false, err
	}
	lengths, err := ParseLengths(lengthsText)
	if err != nil {
		return nil, false, err
	}
	if err := m.limits.Check(ranges, lengths); err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.store.LoadTable(ctx)
	if err != nil {
		return nil, false, err
	}

	b := NewBuilder().WithSource(SourceManual).WithRanges(ranges).WithLengths(lengths)
	cleared := !current.SameDimensions(ranges, lengths)
	if cleared {
		m.log.Info("table dimensions changed, unit prices cleared",
			zap.Int("ranges", len(ranges)),
			zap.Int("lengths", len(lengths)))
	} else {
		b.WithPrices(current)
		m.log.Debug("table dimensions unchanged, unit prices retained")
	}
	table := b.Build()

	if err := m.store.SaveTable(ctx, table); err != nil {
		return nil, false, err
	}
	if rec, ok := m.store.(InputRecorder); ok {
		if err := rec.SaveInputs(ctx, strings.TrimSpace(rangesText), strings.TrimSpace(lengthsText)); err != nil {
			return nil, false, err
		}
	}

	m.publish(ctx, table, "define", map[string]interface{}{"prices_cleared": cleared})
	return table, cleared, nil
}

// ParsePrice validates operator price text: required, numeric and
// non-negative. The result is rounded half-up to one decimal.
func ParsePrice(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, errors.Validation("Price cannot be empty.")
	}
	p, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, errors.Parsing("Please enter a valid number for price.", err)
	}
	if p.IsNegative() {
		return decimal.Zero, errors.Validation("Price cannot be negative.")
	}
	return p.Round(1), nil
}

// SetPrice sets the price of one existing cell
func (m *Manager) SetPrice(ctx context.Context, key types.PriceKey, priceText string) (*Table, error) {
	price, err := ParsePrice(priceText)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.store.LoadTable(ctx)
	if err != nil {
		return nil, err
	}
	if !current.HasCell(key) {
		return nil, errors.NotFound("price table cell", key.String())
	}

	table := NewBuilder().
		WithSource(SourceManual).
		WithRanges(current.Ranges()).
		WithLengths(current.Lengths()).
		WithPrices(current).
		SetPrice(key, price).
		Build()

	if err := m.store.SaveTable(ctx, table); err != nil {
		return nil, err
	}

	m.log.Debug("unit price updated", zap.String("key", key.String()), zap.String("price", price.StringFixed(1)))
	m.publish(ctx, table, "price", map[string]interface{}{"key": key.String(), "price": price.StringFixed(1)})
	return table, nil
}

// SetPriceFor sets a price addressed by band text ("0-18") and length
func (m *Manager) SetPriceFor(ctx context.Context, rangeText string, length float64, priceText string) (*Table, error) {
	ranges, err := ParseGirthRanges(rangeText)
	if err != nil {
		return nil, err
	}
	if len(ranges) != 1 {
		return nil, errors.Validationf("expected a single girth range, got %d", len(ranges))
	}
	return m.SetPrice(ctx, types.NewPriceKey(ranges[0], length), priceText)
}

// Import validates a whole table and replaces the stored one
func (m *Manager) Import(ctx context.Context, data Data) (*Table, error) {
	if err := data.Validate(m.limits); err != nil {
		return nil, err
	}
	table, err := FromData(data, SourceImport)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.SaveTable(ctx, table); err != nil {
		return nil, err
	}
	if rec, ok := m.store.(InputRecorder); ok {
		if err := rec.SaveInputs(ctx, FormatRanges(table.Ranges()), FormatLengths(table.Lengths())); err != nil {
			return nil, err
		}
	}

	m.log.Info("price list imported",
		zap.String("table", string(table.ID)),
		zap.Int("prices", len(table.Cells())))
	m.publish(ctx, table, "import", nil)
	return table, nil
}

func (m *Manager) publish(ctx context.Context, table *Table, action string, extra map[string]interface{}) {
	payload := map[string]interface{}{
		"action":  action,
		"table":   string(table.ID),
		"ranges":  len(table.Ranges()),
		"lengths": len(table.Lengths()),
		"prices":  len(table.Cells()),
	}
	for k, v := range extra {
		payload[k] = v
	}
	event := types.NewEvent(types.EventPriceTableUpdated, string(table.ID), payload)
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.log.Warn("failed to publish event", zap.String("type", event.Type.String()), zap.Error(err))
	}
}
