// Package ccimap holds the in-memory CCI-to-control mapping table.
//
// The table is reference data loaded wholesale from the database and
// replaced atomically on refresh: concurrent readers always see either
// the previous table or the new one, never a partial load. It is owned
// and injected explicitly; there is no package-level table.
package ccimap

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/stigward/stigward/internal/database"
	"github.com/stigward/stigward/pkg/logger"
)

// Store is the persistence surface the table loads from.
type Store interface {
	AllCciMappings(ctx context.Context) ([]*database.CciControlMapping, error)
}

// Entry is one CCI's mapping to its NIST control.
type Entry struct {
	CCI          string
	Definition   string
	ControlID    string
	ControlTitle string
}

// Table maps control correlation identifiers to NIST controls.
type Table struct {
	store   Store
	logger  logger.Logger
	entries atomic.Pointer[map[string]Entry]
}

// New creates an unloaded table backed by store. Call Load before use;
// an unloaded table answers every lookup negatively and reports size 0.
func New(store Store, log logger.Logger) *Table {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	t := &Table{
		store:  store,
		logger: log.With("component", "ccimap"),
	}
	empty := map[string]Entry{}
	t.entries.Store(&empty)
	return t
}

// Load fetches all mapping rows into memory, replacing the current table
// in one atomic swap. An empty store yields an empty table, not an error.
// On a storage error the existing table stays in place.
func (t *Table) Load(ctx context.Context) error {
	rows, err := t.store.AllCciMappings(ctx)
	if err != nil {
		return fmt.Errorf("loading cci mappings: %w", err)
	}

	entries := make(map[string]Entry, len(rows))
	for _, row := range rows {
		entries[row.CCI] = Entry{
			CCI:          row.CCI,
			Definition:   row.Definition,
			ControlID:    row.ControlID,
			ControlTitle: row.ControlTitle,
		}
	}

	t.entries.Store(&entries)
	t.logger.Info("loaded CCI mapping table", "entries", len(entries))
	return nil
}

// Refresh reloads the table from the store.
func (t *Table) Refresh(ctx context.Context) error {
	return t.Load(ctx)
}

// Size returns the number of loaded mappings. Callers must check for a
// size of 0 before relying on lookups.
func (t *Table) Size() int {
	return len(*t.entries.Load())
}

// MapOne resolves a single CCI to its control ID.
func (t *Table) MapOne(cci string) (string, bool) {
	entry, ok := (*t.entries.Load())[cci]
	if !ok {
		return "", false
	}
	return entry.ControlID, true
}

// MapMany resolves a list of CCIs, silently omitting unknown ones. Every
// lookup within one call sees the same table snapshot.
func (t *Table) MapMany(ccis []string) map[string]string {
	entries := *t.entries.Load()

	resolved := make(map[string]string)
	for _, cci := range ccis {
		if entry, ok := entries[cci]; ok {
			resolved[cci] = entry.ControlID
		}
	}
	return resolved
}

// Definition returns the full mapping entry for a CCI, or nil when the
// CCI is unknown.
func (t *Table) Definition(cci string) *Entry {
	if entry, ok := (*t.entries.Load())[cci]; ok {
		return &entry
	}
	return nil
}
