// Package draft holds the editable, possibly unsaved copy of each cached
// collection and the reducer that reconciles it with mutation outcomes.
package draft

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pis-platform/pis/internal/querycache"
	"github.com/pis-platform/pis/internal/records"
)

// ErrNoRow is returned when an id is not in the draft
var ErrNoRow = errors.New("row not in draft")

type rowKey struct {
	key querycache.Key
	id  string
}

type section struct {
	rows    []records.Row
	editing map[string]bool
}

// State is the draft of every collection being edited. It is safe for
// concurrent use.
type State struct {
	mu       sync.Mutex
	sections map[querycache.Key]*section
	seq      map[rowKey]uint64
	nextSeq  uint64
}

// New returns an empty draft
func New() *State {
	return &State{
		sections: make(map[querycache.Key]*section),
		seq:      make(map[rowKey]uint64),
	}
}

func (s *State) section(key querycache.Key) *section {
	sec, ok := s.sections[key]
	if !ok {
		sec = &section{editing: make(map[string]bool)}
		s.sections[key] = sec
	}
	return sec
}

// Load replaces the draft of key with fetched rows unless an unsaved
// temporary row is present. It reports whether the replace happened. A
// fetched row whose draft copy still holds unsaved input keeps that input
// and its editing flag.
func (s *State) Load(key querycache.Key, rows []records.Row) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec := s.section(key)
	if drafting(sec) {
		return false
	}

	next := records.CloneRows(rows)
	editing := make(map[string]bool)
	for i, r := range next {
		id := r.ID()
		if !sec.editing[id] {
			continue
		}
		if j := records.IndexOf(sec.rows, id); j >= 0 {
			next[i] = sec.rows[j].Clone()
			editing[id] = true
		}
	}
	sec.rows = next
	sec.editing = editing

	for rk := range s.seq {
		if rk.key == key && records.IndexOf(next, rk.id) < 0 {
			delete(s.seq, rk)
		}
	}
	return true
}

// Rows returns a copy of the draft rows of key
func (s *State) Rows(key querycache.Key) []records.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return records.CloneRows(s.section(key).rows)
}

// Row returns a copy of one draft row
func (s *State) Row(key querycache.Key, id string) (records.Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec := s.section(key)
	if i := records.IndexOf(sec.rows, id); i >= 0 {
		return sec.rows[i].Clone(), true
	}
	return records.Row{}, false
}

// Drafting reports whether key holds an unsaved temporary row
func (s *State) Drafting(key querycache.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return drafting(s.section(key))
}

// Editing reports whether a row has local edits not yet saved
func (s *State) Editing(key querycache.Key, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.section(key).editing[id]
}

// Add appends a new row with a temporary id and returns it
func (s *State) Add(key querycache.Key, fields map[string]any) records.Row {
	row := records.NewTempRow(key.Kind, fields)
	s.mu.Lock()
	defer s.mu.Unlock()
	sec := s.section(key)
	sec.rows = append(sec.rows, row.Clone())
	sec.editing[row.ID()] = true
	return row
}

// Set changes one field of a draft row and marks the row as editing. The
// edit supersedes any mutation of the row already in flight.
func (s *State) Set(key querycache.Key, id, field string, value any) error {
	if field == key.Kind.IDField() {
		return fmt.Errorf("%s is not editable", field)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sec := s.section(key)
	i := records.IndexOf(sec.rows, id)
	if i < 0 {
		return fmt.Errorf("%w: %s %s", ErrNoRow, key.Kind, id)
	}
	sec.rows[i] = sec.rows[i].With(field, value)
	sec.editing[id] = true
	s.bump(rowKey{key: key, id: id})
	return nil
}

// Discard drops a row from the draft. Cancelling an unsaved temporary row
// uses this.
func (s *State) Discard(key querycache.Key, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec := s.section(key)
	i := records.IndexOf(sec.rows, id)
	if i < 0 {
		return false
	}
	sec.rows = append(sec.rows[:i], sec.rows[i+1:]...)
	delete(sec.editing, id)
	delete(s.seq, rowKey{key: key, id: id})
	return true
}

// Reset replaces a draft row with its server state and clears its editing
// flag. Any save of the row still in flight becomes stale.
func (s *State) Reset(key querycache.Key, row records.Row) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec := s.section(key)
	id := row.ID()
	i := records.IndexOf(sec.rows, id)
	if i < 0 {
		return false
	}
	sec.rows[i] = row.Clone()
	delete(sec.editing, id)
	s.bump(rowKey{key: key, id: id})
	return true
}

// bump gives a row the next sequence number. Numbers are unique across the
// whole draft, so a pruned row never reuses one.
func (s *State) bump(rk rowKey) uint64 {
	s.nextSeq++
	s.seq[rk] = s.nextSeq
	return s.nextSeq
}

func drafting(sec *section) bool {
	for _, r := range sec.rows {
		if r.IsTemp() {
			return true
		}
	}
	return false
}
