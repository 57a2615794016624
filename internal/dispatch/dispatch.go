// Package dispatch saves and deletes draft rows against the record store
// with optimistic local patches, rolling back to the pre-call snapshot when
// the store call fails.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/pis-platform/pis/internal/draft"
	"github.com/pis-platform/pis/internal/logging"
	"github.com/pis-platform/pis/internal/querycache"
	"github.com/pis-platform/pis/internal/records"
)

var (
	// ErrMutationFailed wraps every failed save or delete
	ErrMutationFailed = errors.New("mutation failed")
	// ErrClosed is returned when the dispatcher closed while a call was in
	// flight; its result was discarded.
	ErrClosed = errors.New("dispatcher closed")
)

// API is the subset of the record store client the dispatcher calls
type API interface {
	Create(ctx context.Context, kind records.Kind, payload map[string]any) (records.Row, error)
	Update(ctx context.Context, kind records.Kind, id string, payload map[string]any) (records.Row, error)
	Delete(ctx context.Context, kind records.Kind, id string) error
	UpdateProperty(ctx context.Context, yardi string, fields map[string]any) (records.Row, error)
}

// Op names a mutation in notices
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Notice is a blocking failure message for the user
type Notice struct {
	Op      Op
	Kind    records.Kind
	ID      string
	Message string
	Err     error
}

// Notifier shows notices
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notice)

// Notify implements Notifier
func (f NotifierFunc) Notify(n Notice) { f(n) }

// PropertyKey is the cache and draft key of a single property
func PropertyKey(yardi string) querycache.Key {
	return querycache.Key{Kind: records.KindProperty, Parent: yardi}
}

// Dispatcher maps (section, id) to the matching store call and reconciles
// draft and cache with the outcome.
type Dispatcher struct {
	api      API
	cache    *querycache.Cache
	draft    *draft.State
	notifier Notifier
	closed   atomic.Bool
}

// New wires a dispatcher. notifier may be nil.
func New(api API, cache *querycache.Cache, state *draft.State, notifier Notifier) *Dispatcher {
	return &Dispatcher{api: api, cache: cache, draft: state, notifier: notifier}
}

// Close makes results that arrive afterwards no-ops
func (d *Dispatcher) Close() {
	d.closed.Store(true)
}

// Upsert saves draft row id of key: a temporary row is created, any other
// row is updated with its full payload.
func (d *Dispatcher) Upsert(ctx context.Context, key querycache.Key, id string) error {
	if d.closed.Load() {
		return ErrClosed
	}
	op := OpUpdate
	if records.IsTemp(id) {
		op = OpCreate
	}

	row, ok := d.draft.Row(key, id)
	if !ok {
		return d.fail(op, key, id, fmt.Errorf("%w: %s %s", draft.ErrNoRow, key.Kind, id))
	}
	if key.Kind == records.KindContact {
		if err := ValidateContact(row); err != nil {
			return d.fail(op, key, id, err)
		}
	}

	if op == OpCreate {
		return d.create(ctx, key, row)
	}
	return d.update(ctx, key, row)
}

// Remove deletes draft row id of key. A temporary row is only dropped from
// the draft.
func (d *Dispatcher) Remove(ctx context.Context, key querycache.Key, id string) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if records.IsTemp(id) {
		if !d.draft.Discard(key, id) {
			return d.fail(OpDelete, key, id, fmt.Errorf("%w: %s %s", draft.ErrNoRow, key.Kind, id))
		}
		return nil
	}

	snap := d.cache.Snapshot(key)
	m, err := d.draft.BeginMutation(key, id, serverRow(snap, id))
	if err != nil {
		return d.fail(OpDelete, key, id, err)
	}
	m.Remove()
	d.cache.Update(key, func(rows []records.Row) []records.Row {
		if i := records.IndexOf(rows, id); i >= 0 {
			return append(rows[:i], rows[i+1:]...)
		}
		return rows
	})

	err = d.api.Delete(ctx, key.Kind, id)
	if d.closed.Load() {
		return ErrClosed
	}
	if err != nil {
		d.rollback(m, key, snap)
		return d.fail(OpDelete, key, id, err)
	}

	m.CommitRemove()
	d.refetch(ctx, key)
	return nil
}

// SaveProperty saves the drafted property fields
func (d *Dispatcher) SaveProperty(ctx context.Context, yardi string) error {
	return d.Upsert(ctx, PropertyKey(yardi), yardi)
}

// SetActive marks a property sold (inactive) or unsold and saves it
func (d *Dispatcher) SetActive(ctx context.Context, yardi string, active bool) error {
	key := PropertyKey(yardi)
	if err := d.draft.Set(key, yardi, "active", active); err != nil {
		return d.fail(OpUpdate, key, yardi, err)
	}
	return d.Upsert(ctx, key, yardi)
}

func (d *Dispatcher) create(ctx context.Context, key querycache.Key, row records.Row) error {
	id := row.ID()
	m, err := d.draft.BeginMutation(key, id, nil)
	if err != nil {
		return d.fail(OpCreate, key, id, err)
	}

	payload := row.Payload()
	if key.Kind != records.KindContact {
		if _, ok := payload["property_yardi"]; !ok || payload["property_yardi"] == "" {
			payload["property_yardi"] = key.Parent
		}
	}

	created, err := d.api.Create(ctx, key.Kind, payload)
	if d.closed.Load() {
		return ErrClosed
	}
	if err != nil {
		m.Rollback()
		return d.fail(OpCreate, key, id, err)
	}

	m.Commit(created)
	d.refetch(ctx, key)
	return nil
}

func (d *Dispatcher) update(ctx context.Context, key querycache.Key, row records.Row) error {
	id := row.ID()
	snap := d.cache.Snapshot(key)
	m, err := d.draft.BeginMutation(key, id, serverRow(snap, id))
	if err != nil {
		return d.fail(OpUpdate, key, id, err)
	}
	d.cache.Update(key, replace(row))

	var updated records.Row
	if key.Kind == records.KindProperty {
		updated, err = d.api.UpdateProperty(ctx, id, row.Payload())
	} else {
		updated, err = d.api.Update(ctx, key.Kind, id, row.Payload())
	}
	if d.closed.Load() {
		return ErrClosed
	}
	if err != nil {
		d.rollback(m, key, snap)
		return d.fail(OpUpdate, key, id, err)
	}

	m.Commit(updated)
	d.cache.Update(key, replace(updated))
	d.refetch(ctx, key)
	return nil
}

// rollback undoes a failed mutation. The cache always gets the row's
// pre-call state back; when newer input has superseded the mutation the
// draft keeps it and the other cached rows are left as they are now.
func (d *Dispatcher) rollback(m *draft.Mutation, key querycache.Key, snap querycache.Snapshot) {
	if m.Rollback() {
		d.cache.Restore(snap)
		return
	}
	id := m.Row().ID()
	prior := snap.Rows()
	at := records.IndexOf(prior, id)
	d.cache.Update(key, func(rows []records.Row) []records.Row {
		i := records.IndexOf(rows, id)
		switch {
		case at < 0 && i >= 0:
			return append(rows[:i], rows[i+1:]...)
		case at < 0:
			return rows
		case i >= 0:
			rows[i] = prior[at]
			return rows
		}
		pos := min(at, len(rows))
		return append(rows[:pos], append([]records.Row{prior[at]}, rows[pos:]...)...)
	})
}

// refetch invalidates key so every subscriber reloads it. A failed refetch
// leaves the committed state in place.
func (d *Dispatcher) refetch(ctx context.Context, key querycache.Key) {
	if err := d.cache.Invalidate(ctx, key); err != nil {
		logging.Logger.Warnf("Saved %s but could not refresh it: %v", key, err)
	}
}

func (d *Dispatcher) fail(op Op, key querycache.Key, id string, err error) error {
	wrapped := fmt.Errorf("%w: %s %s %s: %w", ErrMutationFailed, op, key.Kind, id, err)
	logging.Logger.Warnf("%v", wrapped)
	if d.notifier != nil {
		d.notifier.Notify(Notice{Op: op, Kind: key.Kind, ID: id, Message: message(op, key.Kind, err), Err: wrapped})
	}
	return wrapped
}

func message(op Op, kind records.Kind, err error) string {
	var invalid *ContactError
	if errors.As(err, &invalid) {
		return invalid.Message
	}
	verb := map[Op]string{OpCreate: "adding", OpUpdate: "updating", OpDelete: "deleting"}[op]
	return fmt.Sprintf("Error %s %s", verb, kind)
}

func serverRow(snap querycache.Snapshot, id string) *records.Row {
	rows := snap.Rows()
	if i := records.IndexOf(rows, id); i >= 0 {
		return &rows[i]
	}
	return nil
}

func replace(row records.Row) func([]records.Row) []records.Row {
	return func(rows []records.Row) []records.Row {
		if i := records.IndexOf(rows, row.ID()); i >= 0 {
			rows[i] = row
			return rows
		}
		return append(rows, row)
	}
}
