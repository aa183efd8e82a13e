package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"timbercalc/core/pricing"
	"timbercalc/core/types"
	"timbercalc/core/volume"
	"timbercalc/internal/errors"
)

// Storage keys. The names and JSON shapes match the preferences file
// written by earlier releases so existing data keeps loading.
const (
	KeyUnitPrices   = "unitPrices"
	KeyGirthRanges  = "girthRangesParsed"
	KeyLengthValues = "lengthValuesParsed"
	KeyLogEntries   = "logEntriesList"
	KeyRangesInput  = "girthRangesInput"
	KeyLengthsInput = "lengthValuesInput"
)

// entryRecord is the persisted shape of a log entry
type entryRecord struct {
	Girth     float64 `json:"girth"`
	Length    float64 `json:"length"`
	Volume    float64 `json:"volume"`
	UnitPrice float64 `json:"unitPrice"`
	LogTotal  float64 `json:"logTotal"`
}

// Repository maps the price table and the current bill onto a KV backend
type Repository struct {
	kv  KV
	log *zap.Logger
}

// NewRepository creates a repository over kv
func NewRepository(kv KV, log *zap.Logger) *Repository {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{kv: kv, log: log}
}

// KV returns the underlying backend
func (r *Repository) KV() KV {
	return r.kv
}

// LoadTable reads the stored table. Missing keys load as an empty table;
// unreadable data is logged and also treated as empty.
func (r *Repository) LoadTable(ctx context.Context) (*pricing.Table, error) {
	var d pricing.Data
	found, err := r.getJSON(ctx, KeyUnitPrices, &d.UnitPrices)
	if err != nil {
		return r.recoverTable(err)
	}
	if _, err := r.getJSON(ctx, KeyGirthRanges, &d.GirthRanges); err != nil {
		return r.recoverTable(err)
	}
	if _, err := r.getJSON(ctx, KeyLengthValues, &d.LengthValues); err != nil {
		return r.recoverTable(err)
	}

	if !found && len(d.GirthRanges) == 0 && len(d.LengthValues) == 0 {
		return pricing.Empty(), nil
	}
	table, err := pricing.FromData(d, pricing.SourceStorage)
	if err != nil {
		return r.recoverTable(err)
	}
	if !table.IsConfigured() {
		r.log.Warn("price table not fully configured",
			zap.Int("ranges", len(table.Ranges())),
			zap.Int("lengths", len(table.Lengths())))
	}
	return table, nil
}

func (r *Repository) recoverTable(err error) (*pricing.Table, error) {
	if errors.IsType(err, errors.TypeStorage) && !isDecodeError(err) {
		return nil, err
	}
	r.log.Warn("stored price table is unreadable, starting empty", zap.Error(err))
	return pricing.Empty(), nil
}

// SaveTable writes the three table keys
func (r *Repository) SaveTable(ctx context.Context, table *pricing.Table) error {
	d := table.Data()
	if err := r.putJSON(ctx, KeyUnitPrices, d.UnitPrices); err != nil {
		return err
	}
	if err := r.putJSON(ctx, KeyGirthRanges, d.GirthRanges); err != nil {
		return err
	}
	return r.putJSON(ctx, KeyLengthValues, d.LengthValues)
}

// SaveInputs records the raw configuration text last entered
func (r *Repository) SaveInputs(ctx context.Context, rangesText, lengthsText string) error {
	if err := r.kv.Put(ctx, KeyRangesInput, []byte(rangesText)); err != nil {
		return err
	}
	return r.kv.Put(ctx, KeyLengthsInput, []byte(lengthsText))
}

// LoadInputs returns the raw configuration text, empty when never saved
func (r *Repository) LoadInputs(ctx context.Context) (string, string, error) {
	ranges, _, err := r.kv.Get(ctx, KeyRangesInput)
	if err != nil {
		return "", "", err
	}
	lengths, _, err := r.kv.Get(ctx, KeyLengthsInput)
	if err != nil {
		return "", "", err
	}
	return string(ranges), string(lengths), nil
}

// LoadEntries reads the current bill. Unreadable data is logged and
// treated as an empty bill.
func (r *Repository) LoadEntries(ctx context.Context) ([]types.LogEntry, error) {
	var records []entryRecord
	if _, err := r.getJSON(ctx, KeyLogEntries, &records); err != nil {
		if !isDecodeError(err) {
			return nil, err
		}
		r.log.Warn("stored bill is unreadable, starting empty", zap.Error(err))
		return nil, nil
	}

	entries := make([]types.LogEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, types.LogEntry{
			Girth:     decimal.NewFromFloat(rec.Girth).Round(volume.MeasurementPlaces),
			Length:    decimal.NewFromFloat(rec.Length).Round(volume.MeasurementPlaces),
			Volume:    decimal.NewFromFloat(rec.Volume).Round(volume.VolumePlaces),
			UnitPrice: decimal.NewFromFloat(rec.UnitPrice).Round(volume.MoneyPlaces),
			LogTotal:  decimal.NewFromFloat(rec.LogTotal).Round(volume.MoneyPlaces),
		})
	}
	return entries, nil
}

// SaveEntries replaces the current bill
func (r *Repository) SaveEntries(ctx context.Context, entries []types.LogEntry) error {
	records := make([]entryRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, entryRecord{
			Girth:     e.Girth.InexactFloat64(),
			Length:    e.Length.InexactFloat64(),
			Volume:    e.Volume.InexactFloat64(),
			UnitPrice: e.UnitPrice.InexactFloat64(),
			LogTotal:  e.LogTotal.InexactFloat64(),
		})
	}
	return r.putJSON(ctx, KeyLogEntries, records)
}

// decodeError marks a value that exists but does not unmarshal
type decodeError struct {
	key string
	err error
}

func (e *decodeError) Error() string { return "decode " + e.key + ": " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func isDecodeError(err error) bool {
	var de *decodeError
	return stderrors.As(err, &de)
}

func (r *Repository) getJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, ok, err := r.kv.Get(ctx, key)
	if err != nil || !ok || len(data) == 0 {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return true, errors.Storage("stored value is invalid", &decodeError{key: key, err: err})
	}
	return true, nil
}

func (r *Repository) putJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Storage("encode "+key, err)
	}
	return r.kv.Put(ctx, key, data)
}
