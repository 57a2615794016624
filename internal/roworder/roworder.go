// Package roworder remembers the user's row and column order per property
// section. Stored order is advisory: it only ever reorders what the store
// returned.
package roworder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pis-platform/pis/internal/logging"
	"github.com/pis-platform/pis/internal/records"
)

// Store is durable key-value storage
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Scope is one property section
type Scope struct {
	Property string
	Kind     records.Kind
}

// RowKey is the storage key for the scope's row order
func (s Scope) RowKey() string {
	return fmt.Sprintf("%s-%s-rowOrder", s.Property, s.Kind.Label())
}

// ColumnKey is the storage key for the scope's column state
func (s Scope) ColumnKey() string {
	return fmt.Sprintf("%s-%s-columnState", s.Property, s.Kind.Label())
}

// ColumnState is the display state of one grid column
type ColumnState struct {
	ColID     string `json:"colId"`
	Width     int    `json:"width,omitempty"`
	Hide      bool   `json:"hide,omitempty"`
	Pinned    string `json:"pinned,omitempty"`
	Sort      string `json:"sort,omitempty"`
	SortIndex *int   `json:"sortIndex,omitempty"`
}

// Orders reads and writes row and column order in a Store
type Orders struct {
	store Store
}

// New wraps store
func New(store Store) *Orders {
	return &Orders{store: store}
}

// SaveOrder overwrites the stored row order of scope
func (o *Orders) SaveOrder(ctx context.Context, scope Scope, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return o.store.Put(ctx, scope.RowKey(), data)
}

// StoredOrder returns the stored ids of scope, or nil when none are
// stored or the stored value cannot be read.
func (o *Orders) StoredOrder(ctx context.Context, scope Scope) []string {
	var ids []string
	if !o.load(ctx, scope.RowKey(), &ids) {
		return nil
	}
	return ids
}

// SaveColumns overwrites the stored column state of scope
func (o *Orders) SaveColumns(ctx context.Context, scope Scope, cols []ColumnState) error {
	data, err := json.Marshal(cols)
	if err != nil {
		return err
	}
	return o.store.Put(ctx, scope.ColumnKey(), data)
}

// LoadColumns returns the stored column state of scope, or nil
func (o *Orders) LoadColumns(ctx context.Context, scope Scope) []ColumnState {
	var cols []ColumnState
	if !o.load(ctx, scope.ColumnKey(), &cols) {
		return nil
	}
	return cols
}

func (o *Orders) load(ctx context.Context, key string, out any) bool {
	data, ok, err := o.store.Get(ctx, key)
	if err != nil {
		logging.Logger.Warnf("Failed to read %s: %v", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logging.Logger.Warnf("Ignoring unreadable %s: %v", key, err)
		return false
	}
	return true
}

// LoadOrder puts items in the stored order of scope. Stored ids come
// first in stored order, then every other item in incoming order. Stored
// ids with no matching item are dropped.
func LoadOrder[T any](ctx context.Context, o *Orders, scope Scope, items []T, getID func(T) string) []T {
	return Apply(o.StoredOrder(ctx, scope), items, getID)
}

// Apply orders items by ids with leftovers appended
func Apply[T any](ids []string, items []T, getID func(T) string) []T {
	if len(ids) == 0 {
		return items
	}

	byID := make(map[string][]int, len(items))
	for i, item := range items {
		id := getID(item)
		byID[id] = append(byID[id], i)
	}

	out := make([]T, 0, len(items))
	used := make([]bool, len(items))
	for _, id := range ids {
		for _, i := range byID[id] {
			if !used[i] {
				used[i] = true
				out = append(out, items[i])
			}
		}
	}
	for i, item := range items {
		if !used[i] {
			out = append(out, item)
		}
	}
	return out
}
