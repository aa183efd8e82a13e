package bill

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"timbercalc/core/pricing"
	"timbercalc/core/types"
	"timbercalc/core/volume"
	"timbercalc/internal/metrics"
)

// Store persists the current bill
type Store interface {
	// LoadEntries returns the saved entries in order, or none
	LoadEntries(ctx context.Context) ([]types.LogEntry, error)

	// SaveEntries replaces the saved entries
	SaveEntries(ctx context.Context, entries []types.LogEntry) error
}

// Service prices measurements against the stored table and keeps the
// current bill. Mutations are serialised and saved only after validation.
type Service struct {
	store     Store
	tables    pricing.Store
	publisher types.Publisher
	log       *zap.Logger

	mu sync.Mutex
}

// NewService creates a bill service. A nil publisher or logger disables that concern.
func NewService(store Store, tables pricing.Store, publisher types.Publisher, log *zap.Logger) *Service {
	if publisher == nil {
		publisher = types.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:     store,
		tables:    tables,
		publisher: publisher,
		log:       log,
	}
}

// Current returns the saved bill
func (s *Service) Current(ctx context.Context) (*Bill, error) {
	entries, err := s.store.LoadEntries(ctx)
	if err != nil {
		return nil, err
	}
	return New(entries), nil
}

// Quote resolves the price and computes an entry without saving it
func (s *Service) Quote(ctx context.Context, girthText, lengthText string) (types.LogEntry, pricing.Resolution, error) {
	m, err := volume.ParseMeasurement(girthText, lengthText)
	if err != nil {
		return types.LogEntry{}, pricing.Resolution{}, err
	}

	table, err := s.tables.LoadTable(ctx)
	if err != nil {
		return types.LogEntry{}, pricing.Resolution{}, err
	}
	if !table.IsConfigured() {
		s.log.Warn("price table is not fully configured")
	}

	res := pricing.Resolve(table, m.Girth.InexactFloat64(), m.Length.InexactFloat64())
	if res.Matched {
		s.log.Debug("price resolved",
			zap.String("girth", m.Girth.String()),
			zap.String("length", m.Length.String()),
			zap.String("key", res.Key.String()),
			zap.String("price", res.Price.StringFixed(2)))
	} else {
		s.log.Warn("no unit price for measurement",
			zap.String("girth", m.Girth.String()),
			zap.String("length", m.Length.String()),
			zap.String("key", keyField(res)),
			zap.String("reason", string(res.Reason)))
		metrics.IncPriceUnresolved(string(res.Reason))
	}

	entry, err := volume.NewEntry(m, res.Price)
	if err != nil {
		return types.LogEntry{}, pricing.Resolution{}, err
	}
	return entry, res, nil
}

// AddEntry prices a measurement, appends it and saves the bill. An
// unresolved price is recorded as zero and is not an error.
func (s *Service) AddEntry(ctx context.Context, girthText, lengthText string) (types.LogEntry, pricing.Resolution, error) {
	entry, res, err := s.Quote(ctx, girthText, lengthText)
	if err != nil {
		return types.LogEntry{}, pricing.Resolution{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.Current(ctx)
	if err != nil {
		return types.LogEntry{}, pricing.Resolution{}, err
	}
	b.Append(entry)
	if err := s.store.SaveEntries(ctx, b.Entries()); err != nil {
		return types.LogEntry{}, pricing.Resolution{}, err
	}

	metrics.IncEntryCalculated(res.Matched)
	return entry, res, nil
}

// EditEntry recomputes the entry at index from new values. Empty text keeps
// the current value. The given unit price overrides the table and may be zero.
func (s *Service) EditEntry(ctx context.Context, index int, girthText, lengthText, priceText string) (types.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.Current(ctx)
	if err != nil {
		return types.LogEntry{}, err
	}
	current, err := b.Get(index)
	if err != nil {
		return types.LogEntry{}, err
	}

	m, err := volume.ParseMeasurement(
		orDefault(girthText, current.Girth.String()),
		orDefault(lengthText, current.Length.String()))
	if err != nil {
		return types.LogEntry{}, err
	}
	price, err := volume.ParseUnitPrice(orDefault(priceText, current.UnitPrice.String()))
	if err != nil {
		return types.LogEntry{}, err
	}

	entry, err := volume.NewEntry(m, price)
	if err != nil {
		return types.LogEntry{}, err
	}
	if err := b.Update(index, entry); err != nil {
		return types.LogEntry{}, err
	}
	if err := s.store.SaveEntries(ctx, b.Entries()); err != nil {
		return types.LogEntry{}, err
	}

	s.log.Debug("entry updated", zap.Int("index", index))
	return entry, nil
}

// DeleteEntry removes the entry at index
func (s *Service) DeleteEntry(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.Current(ctx)
	if err != nil {
		return err
	}
	if err := b.Remove(index); err != nil {
		return err
	}
	return s.store.SaveEntries(ctx, b.Entries())
}

// Clear empties the bill and announces a new one
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.Current(ctx)
	if err != nil {
		return err
	}
	totals := b.Totals()
	if err := s.store.SaveEntries(ctx, nil); err != nil {
		return err
	}

	event := types.NewEvent(types.EventBillCleared, "bill", map[string]interface{}{
		"entries":     totals.Entries,
		"volume":      totals.Volume.StringFixed(1),
		"grand_total": totals.GrandTotal.StringFixed(2),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish event", zap.String("type", event.Type.String()), zap.Error(err))
	}
	return nil
}

func orDefault(text, fallback string) string {
	if strings.TrimSpace(text) == "" {
		return fallback
	}
	return text
}

func keyField(res pricing.Resolution) string {
	if !res.RangeFound {
		return ""
	}
	return res.Key.String()
}
