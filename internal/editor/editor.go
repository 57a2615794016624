// Package editor is the editing session of one property: it keeps the
// property and its sections in the shared query cache, mirrors them into a
// draft, and routes saves and deletes through the mutation dispatcher.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pis-platform/pis/internal/dispatch"
	"github.com/pis-platform/pis/internal/draft"
	"github.com/pis-platform/pis/internal/export"
	"github.com/pis-platform/pis/internal/logging"
	"github.com/pis-platform/pis/internal/querycache"
	"github.com/pis-platform/pis/internal/records"
	"github.com/pis-platform/pis/internal/roworder"
	"github.com/pis-platform/pis/internal/views"
)

// ErrNotLoaded is returned when the property has not been fetched
var ErrNotLoaded = errors.New("property not loaded")

// API is what the editor needs from the record store client
type API interface {
	dispatch.API
	GetProperty(ctx context.Context, yardi string) (records.Row, error)
	List(ctx context.Context, kind records.Kind, yardi string) ([]records.Row, error)
}

// Fetcher loads cache keys from the record store: the property key by
// yardi, every section key by its property_yardi filter.
func Fetcher(api API) querycache.Fetcher {
	return func(ctx context.Context, key querycache.Key) ([]records.Row, error) {
		if key.Kind == records.KindProperty {
			row, err := api.GetProperty(ctx, key.Parent)
			if err != nil {
				return nil, err
			}
			return []records.Row{row}, nil
		}
		return api.List(ctx, key.Kind, key.Parent)
	}
}

// NewCache returns a query cache backed by api
func NewCache(api API) *querycache.Cache {
	return querycache.New(Fetcher(api))
}

// Options configures an editor. Cache may be shared between editors and
// must have been built with NewCache over the same API. Orders and
// Notifier are optional.
type Options struct {
	API      API
	Cache    *querycache.Cache
	Orders   *roworder.Orders
	Notifier dispatch.Notifier
}

// Editor edits one property
type Editor struct {
	yardi  string
	cache  *querycache.Cache
	draft  *draft.State
	disp   *dispatch.Dispatcher
	orders *roworder.Orders

	mu          sync.Mutex
	unsubscribe []func()
}

// Open fetches property yardi and starts editing it
func Open(ctx context.Context, yardi string, opts Options) (*Editor, error) {
	if opts.API == nil {
		return nil, errors.New("editor: API is required")
	}
	cache := opts.Cache
	if cache == nil {
		cache = NewCache(opts.API)
	}
	state := draft.New()
	e := &Editor{
		yardi:  yardi,
		cache:  cache,
		draft:  state,
		disp:   dispatch.New(opts.API, cache, state, opts.Notifier),
		orders: opts.Orders,
	}

	e.subscribe(dispatch.PropertyKey(yardi), e.onProperty)
	for _, kind := range records.SectionKinds {
		e.subscribe(e.key(kind), func(key querycache.Key, rows []records.Row) {
			e.draft.Load(key, rows)
		})
	}

	if _, err := cache.Fetch(ctx, dispatch.PropertyKey(yardi)); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to load property %s: %w", yardi, err)
	}
	return e, nil
}

func (e *Editor) subscribe(key querycache.Key, fn querycache.Listener) {
	unsub := e.cache.Subscribe(key, fn)
	e.mu.Lock()
	e.unsubscribe = append(e.unsubscribe, unsub)
	e.mu.Unlock()
}

// onProperty loads the property draft and primes each section from the
// collections nested in the fetched property.
func (e *Editor) onProperty(key querycache.Key, rows []records.Row) {
	e.draft.Load(key, rows)
	if len(rows) == 0 {
		return
	}
	property := rows[0]

	var contacts []records.Row
	for _, kind := range records.SectionKinds {
		if kind == records.KindContact {
			continue
		}
		children := property.Children(kind.Section(), kind)
		for _, child := range children {
			contacts = append(contacts, child.Children(records.KindContact.Section(), records.KindContact)...)
		}
		e.cache.Prime(e.key(kind), children)
	}
	e.cache.Prime(e.key(records.KindContact), contacts)
}

func (e *Editor) key(kind records.Kind) querycache.Key {
	if kind == records.KindProperty {
		return dispatch.PropertyKey(e.yardi)
	}
	return querycache.Key{Kind: kind, Parent: e.yardi}
}

// Yardi is the property being edited
func (e *Editor) Yardi() string {
	return e.yardi
}

// Property returns the drafted property row
func (e *Editor) Property() (records.Row, bool) {
	return e.draft.Row(e.key(records.KindProperty), e.yardi)
}

// Rows returns the draft rows of a section in draft order
func (e *Editor) Rows(kind records.Kind) []records.Row {
	return e.draft.Rows(e.key(kind))
}

// Drafting reports whether a section has an unsaved new row
func (e *Editor) Drafting(kind records.Kind) bool {
	return e.draft.Drafting(e.key(kind))
}

// Editing reports whether a row has unsaved edits
func (e *Editor) Editing(kind records.Kind, id string) bool {
	return e.draft.Editing(e.key(kind), id)
}

// View projects the sections for display: sorted, in stored row order and
// filtered by search.
func (e *Editor) View(ctx context.Context, search string) views.Projection {
	return views.Project(ctx, e.orders, e.yardi, e.collections(), search)
}

func (e *Editor) collections() map[records.Kind][]records.Row {
	out := make(map[records.Kind][]records.Row, len(records.SectionKinds))
	for _, kind := range records.SectionKinds {
		out[kind] = e.Rows(kind)
	}
	return out
}

// Add inserts an unsaved row into a section. Rows other than contacts are
// attached to the property being edited.
func (e *Editor) Add(kind records.Kind, fields map[string]any) records.Row {
	if kind != records.KindContact {
		if fields == nil {
			fields = map[string]any{}
		}
		if _, ok := fields["property_yardi"]; !ok {
			fields["property_yardi"] = e.yardi
		}
	}
	return e.draft.Add(e.key(kind), fields)
}

// Set edits one field of a draft row
func (e *Editor) Set(kind records.Kind, id, field string, value any) error {
	return e.draft.Set(e.key(kind), id, field, value)
}

// Save creates or updates a draft row
func (e *Editor) Save(ctx context.Context, kind records.Kind, id string) error {
	return e.disp.Upsert(ctx, e.key(kind), id)
}

// Delete removes a row
func (e *Editor) Delete(ctx context.Context, kind records.Kind, id string) error {
	return e.disp.Remove(ctx, e.key(kind), id)
}

// Cancel drops an unsaved row, or reverts a saved row to its cached
// server state.
func (e *Editor) Cancel(kind records.Kind, id string) bool {
	key := e.key(kind)
	if records.IsTemp(id) {
		return e.draft.Discard(key, id)
	}
	rows, ok := e.cache.Get(key)
	if !ok {
		return false
	}
	i := records.IndexOf(rows, id)
	if i < 0 {
		return false
	}
	return e.draft.Reset(key, rows[i])
}

// SaveProperty saves the drafted property fields
func (e *Editor) SaveProperty(ctx context.Context) error {
	return e.disp.SaveProperty(ctx, e.yardi)
}

// SetActive marks the property sold (false) or unsold (true)
func (e *Editor) SetActive(ctx context.Context, active bool) error {
	return e.disp.SetActive(ctx, e.yardi, active)
}

// Reorder stores a user-chosen row order for a section
func (e *Editor) Reorder(ctx context.Context, kind records.Kind, ids []string) error {
	if e.orders == nil {
		return nil
	}
	return e.orders.SaveOrder(ctx, roworder.Scope{Property: e.yardi, Kind: kind}, ids)
}

// SaveColumns stores the column state of a section
func (e *Editor) SaveColumns(ctx context.Context, kind records.Kind, cols []roworder.ColumnState) error {
	if e.orders == nil {
		return nil
	}
	return e.orders.SaveColumns(ctx, roworder.Scope{Property: e.yardi, Kind: kind}, cols)
}

// Columns returns the stored column state of a section, or nil
func (e *Editor) Columns(ctx context.Context, kind records.Kind) []roworder.ColumnState {
	if e.orders == nil {
		return nil
	}
	return e.orders.LoadColumns(ctx, roworder.Scope{Property: e.yardi, Kind: kind})
}

// Refresh refetches the property and every section nested in it
func (e *Editor) Refresh(ctx context.Context) error {
	return e.cache.Invalidate(ctx, dispatch.PropertyKey(e.yardi))
}

// Export writes the property and its sections, in display order, as an
// Excel workbook.
func (e *Editor) Export(ctx context.Context, w io.Writer) error {
	property, ok := e.Property()
	if !ok {
		return ErrNotLoaded
	}
	view := e.View(ctx, "")
	sections := make(map[records.Kind][]records.Row, len(view.Sections))
	for _, s := range view.Sections {
		sections[s.Kind] = s.Rows
	}
	return export.Write(w, property, sections)
}

// Close stops listening to the cache. Results of calls still in flight
// are ignored.
func (e *Editor) Close() {
	e.disp.Close()
	e.mu.Lock()
	unsub := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()
	for _, fn := range unsub {
		fn()
	}
	logging.Logger.Debugf("Closed editor for property %s", e.yardi)
}
