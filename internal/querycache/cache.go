// Package querycache holds the last-known server snapshot of each record
// collection, keyed by kind and parent property.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pis-platform/pis/internal/logging"
	"github.com/pis-platform/pis/internal/records"
)

// Key names one cached collection: the rows of Kind under Parent
type Key struct {
	Kind   records.Kind
	Parent string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Kind.Section(), k.Parent)
}

// Fetcher loads the current server state for a key
type Fetcher func(ctx context.Context, key Key) ([]records.Row, error)

// Listener receives every successfully fetched or primed value for a key
type Listener func(key Key, rows []records.Row)

// ErrSuperseded is returned by a fetch that a newer fetch of the same key
// cancelled.
var ErrSuperseded = errors.New("fetch superseded")

type entry struct {
	rows      []records.Row
	present   bool
	stale     bool
	gen       uint64
	cancel    context.CancelFunc
	listeners map[uint64]Listener
}

// Cache is safe for concurrent use. Listeners run outside the lock, in the
// goroutine that completed the fetch.
type Cache struct {
	mu      sync.Mutex
	fetch   Fetcher
	entries map[Key]*entry
	nextID  uint64
}

// New builds an empty cache backed by fetch
func New(fetch Fetcher) *Cache {
	return &Cache{fetch: fetch, entries: make(map[Key]*entry)}
}

func (c *Cache) entry(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{listeners: make(map[uint64]Listener)}
		c.entries[key] = e
	}
	return e
}

// Get returns a copy of the cached rows
func (c *Cache) Get(key Key) ([]records.Row, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.present {
		return nil, false
	}
	return records.CloneRows(e.rows), true
}

// Stale reports whether the key was invalidated and not yet refetched
func (c *Cache) Stale(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return !ok || !e.present || e.stale
}

// Set overwrites the cached rows without notifying listeners. Used for
// optimistic patches.
func (c *Cache) Set(key Key, rows []records.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(key)
	e.rows = records.CloneRows(rows)
	e.present = true
}

// Update applies fn to a copy of the cached rows and stores the result
// without notifying listeners.
func (c *Cache) Update(key Key, fn func([]records.Row) []records.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(key)
	e.rows = records.CloneRows(fn(records.CloneRows(e.rows)))
	e.present = true
}

// Prime stores rows fetched by other means, such as the collections
// nested in a property, and notifies listeners.
func (c *Cache) Prime(key Key, rows []records.Row) {
	c.mu.Lock()
	e := c.entry(key)
	e.rows = records.CloneRows(rows)
	e.present = true
	e.stale = false
	listeners := e.snapshotListeners()
	c.mu.Unlock()

	notify(listeners, key, rows)
}

// Snapshot captures a key's state so it can be restored exactly
type Snapshot struct {
	key     Key
	rows    []records.Row
	present bool
}

// Rows returns the captured rows
func (s Snapshot) Rows() []records.Row {
	return records.CloneRows(s.rows)
}

// Snapshot captures the cached state of key
func (c *Cache) Snapshot(key Key) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Snapshot{key: key}
	}
	return Snapshot{key: key, rows: records.CloneRows(e.rows), present: e.present}
}

// Restore puts a snapshot back without notifying listeners
func (c *Cache) Restore(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(s.key)
	e.rows = records.CloneRows(s.rows)
	e.present = s.present
}

// Fetch loads key from the server, stores it and notifies listeners. A
// newer Fetch of the same key cancels this one, which then returns
// ErrSuperseded and stores nothing.
func (c *Cache) Fetch(ctx context.Context, key Key) ([]records.Row, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	e := c.entry(key)
	if e.cancel != nil {
		e.cancel()
	}
	e.gen++
	gen := e.gen
	e.cancel = cancel
	c.mu.Unlock()

	rows, err := c.fetch(ctx, key)

	c.mu.Lock()
	if e.gen != gen {
		c.mu.Unlock()
		return nil, ErrSuperseded
	}
	e.cancel = nil
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	e.rows = records.CloneRows(rows)
	e.present = true
	e.stale = false
	listeners := e.snapshotListeners()
	c.mu.Unlock()

	notify(listeners, key, rows)
	return records.CloneRows(rows), nil
}

// Invalidate marks key stale and refetches it. Listeners of the key see
// the refetched rows.
func (c *Cache) Invalidate(ctx context.Context, key Key) error {
	c.mu.Lock()
	c.entry(key).stale = true
	c.mu.Unlock()

	if _, err := c.Fetch(ctx, key); err != nil {
		if errors.Is(err, ErrSuperseded) {
			return nil
		}
		logging.Logger.Warnf("Refetch of %s failed: %v", key, err)
		return err
	}
	return nil
}

// Subscribe registers fn for key and returns the function that removes it
func (c *Cache) Subscribe(key Key, fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.entry(key).listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if e, ok := c.entries[key]; ok {
			delete(e.listeners, id)
		}
	}
}

func (e *entry) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(e.listeners))
	for _, fn := range e.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []Listener, key Key, rows []records.Row) {
	for _, fn := range listeners {
		fn(key, records.CloneRows(rows))
	}
}
