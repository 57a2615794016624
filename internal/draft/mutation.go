package draft

import (
	"fmt"

	"github.com/pis-platform/pis/internal/querycache"
	"github.com/pis-platform/pis/internal/records"
)

// Mutation is one in-flight save or delete of a draft row. Each mutation
// and each local edit of a row takes a new sequence number for that row.
// Commit and Rollback of a mutation that is no longer the row's
// latest are ignored so a stale response never overwrites newer input.
type Mutation struct {
	state *State
	key   querycache.Key
	id    string
	seq   uint64

	prior    records.Row
	index    int
	snapshot *records.Row
}

// BeginMutation starts a mutation of row id. snapshot is the row's last
// server state, or nil when the server has never seen it; Rollback puts
// it back into the draft.
func (s *State) BeginMutation(key querycache.Key, id string, snapshot *records.Row) (*Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec := s.section(key)
	i := records.IndexOf(sec.rows, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNoRow, key.Kind, id)
	}

	m := &Mutation{
		state: s,
		key:   key,
		id:    id,
		seq:   s.bump(rowKey{key: key, id: id}),
		prior: sec.rows[i].Clone(),
		index: i,
	}
	if snapshot != nil {
		snap := snapshot.Clone()
		m.snapshot = &snap
	}
	return m, nil
}

// Seq is the mutation's per-row sequence number
func (m *Mutation) Seq() uint64 { return m.seq }

// Row is the draft row as it was when the mutation began
func (m *Mutation) Row() records.Row { return m.prior.Clone() }

// Current reports whether no newer mutation or edit of the row has begun
func (m *Mutation) Current() bool {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	return m.current()
}

func (m *Mutation) current() bool {
	return m.state.seq[rowKey{key: m.key, id: m.id}] == m.seq
}

// Remove takes the row out of the draft ahead of a delete call
func (m *Mutation) Remove() bool {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	if !m.current() {
		return false
	}
	sec := m.state.section(m.key)
	i := records.IndexOf(sec.rows, m.id)
	if i < 0 {
		return false
	}
	sec.rows = append(sec.rows[:i], sec.rows[i+1:]...)
	return true
}

// Commit replaces the draft row with the server entity. The entity may
// carry a new id, as when a temporary row is created. A stale create still
// moves the newer local input onto the real id so it is saved as an update.
func (m *Mutation) Commit(entity records.Row) bool {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	sec := m.state.section(m.key)
	if !m.current() {
		if records.IsTemp(m.id) {
			m.state.promote(sec, m.key, m.id, entity.ID())
		}
		return false
	}
	delete(sec.editing, m.id)
	if entity.ID() != m.id {
		delete(m.state.seq, rowKey{key: m.key, id: m.id})
	}
	if i := records.IndexOf(sec.rows, m.id); i >= 0 {
		sec.rows[i] = entity.Clone()
	} else {
		sec.rows = append(sec.rows, entity.Clone())
	}
	return true
}

// CommitRemove finishes a delete: the row stays out of the draft
func (m *Mutation) CommitRemove() bool {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	if !m.current() {
		return false
	}
	sec := m.state.section(m.key)
	delete(sec.editing, m.id)
	delete(m.state.seq, rowKey{key: m.key, id: m.id})
	if i := records.IndexOf(sec.rows, m.id); i >= 0 {
		sec.rows = append(sec.rows[:i], sec.rows[i+1:]...)
	}
	return true
}

// Rollback restores the row's last server state into the draft, at its
// original position if it was removed. A row the server never saw is left
// as it is.
func (m *Mutation) Rollback() bool {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	if !m.current() {
		return false
	}
	sec := m.state.section(m.key)
	restored := m.prior
	if m.snapshot != nil {
		restored = *m.snapshot
		delete(sec.editing, m.id)
	}

	if i := records.IndexOf(sec.rows, m.id); i >= 0 {
		sec.rows[i] = restored.Clone()
		return true
	}
	at := min(m.index, len(sec.rows))
	sec.rows = append(sec.rows[:at], append([]records.Row{restored.Clone()}, sec.rows[at:]...)...)
	return true
}

func (s *State) promote(sec *section, key querycache.Key, tempID, realID string) {
	i := records.IndexOf(sec.rows, tempID)
	if i < 0 || realID == "" {
		return
	}
	sec.rows[i] = sec.rows[i].With(key.Kind.IDField(), realID)
	if sec.editing[tempID] {
		sec.editing[realID] = true
	}
	delete(sec.editing, tempID)
	s.seq[rowKey{key: key, id: realID}] = s.seq[rowKey{key: key, id: tempID}]
	delete(s.seq, rowKey{key: key, id: tempID})
}
