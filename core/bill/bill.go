// Package bill holds the ordered list of measured logs and the service that
// prices and persists it.
package bill

import (
	"timbercalc/core/types"
	"timbercalc/core/volume"
	"timbercalc/internal/errors"
)

// Bill is an ordered list of entries. It is not safe for concurrent use;
// Service serialises access.
type Bill struct {
	entries []types.LogEntry
}

// New creates a bill holding a copy of entries
func New(entries []types.LogEntry) *Bill {
	return &Bill{entries: append([]types.LogEntry(nil), entries...)}
}

// Append adds an entry at the end
func (b *Bill) Append(e types.LogEntry) {
	b.entries = append(b.entries, e)
}

// Update replaces the entry at index i
func (b *Bill) Update(i int, e types.LogEntry) error {
	if err := b.check(i); err != nil {
		return err
	}
	b.entries[i] = e
	return nil
}

// Remove deletes the entry at index i, shifting later entries up
func (b *Bill) Remove(i int) error {
	if err := b.check(i); err != nil {
		return err
	}
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	return nil
}

// Get returns the entry at index i
func (b *Bill) Get(i int) (types.LogEntry, error) {
	if err := b.check(i); err != nil {
		return types.LogEntry{}, err
	}
	return b.entries[i], nil
}

// Clear removes every entry
func (b *Bill) Clear() {
	b.entries = nil
}

// Entries returns a copy of the entries in order
func (b *Bill) Entries() []types.LogEntry {
	return append([]types.LogEntry(nil), b.entries...)
}

// Len returns the number of entries
func (b *Bill) Len() int {
	return len(b.entries)
}

// Totals aggregates the bill
func (b *Bill) Totals() types.Totals {
	return volume.Totals(b.entries)
}

func (b *Bill) check(i int) error {
	if i < 0 || i >= len(b.entries) {
		return errors.Validationf("Invalid row selected: %d", i+1).
			WithContext("index", i).
			WithContext("entries", len(b.entries))
	}
	return nil
}
