package records

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// TempPrefix marks ids generated client side for rows the store has not
// seen yet.
const TempPrefix = "temp-"

// NewTempID returns a fresh temporary id
func NewTempID() string {
	return TempPrefix + uuid.NewString()
}

// IsTemp reports whether id is a temporary id
func IsTemp(id string) bool {
	return strings.HasPrefix(id, TempPrefix)
}

// Row is one record of a known kind. Fields hold the decoded JSON entity.
type Row struct {
	Kind   Kind
	Fields map[string]any
}

// NewRow copies fields into a row of the given kind
func NewRow(kind Kind, fields map[string]any) Row {
	return Row{Kind: kind, Fields: cloneMap(fields)}
}

// NewTempRow builds an unsaved row with a fresh temporary id
func NewTempRow(kind Kind, fields map[string]any) Row {
	r := NewRow(kind, fields)
	r.Fields[kind.IDField()] = NewTempID()
	return r
}

// ID returns the row's identity as a string, or "" when unset
func (r Row) ID() string {
	return FormatID(r.Fields[r.Kind.IDField()])
}

// IsTemp reports whether the row has never been persisted
func (r Row) IsTemp() bool {
	return IsTemp(r.ID())
}

// String returns a field as display text
func (r Row) String(field string) string {
	v, ok := r.Fields[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return FormatID(v)
}

// With returns a copy of the row with field set to value
func (r Row) With(field string, value any) Row {
	c := r.Clone()
	c.Fields[field] = cloneValue(value)
	return c
}

// Clone deep-copies the row
func (r Row) Clone() Row {
	return Row{Kind: r.Kind, Fields: cloneMap(r.Fields)}
}

// Equal compares kind and field values
func (r Row) Equal(other Row) bool {
	return r.Kind == other.Kind && reflect.DeepEqual(r.Fields, other.Fields)
}

// Payload is the outgoing request body for the row. Temporary ids and
// nested collections are never sent.
func (r Row) Payload() map[string]any {
	p := cloneMap(r.Fields)
	if IsTemp(FormatID(p[r.Kind.IDField()])) {
		delete(p, r.Kind.IDField())
	}
	for _, rel := range r.Kind.Relations() {
		delete(p, rel)
	}
	return p
}

// Children extracts a nested collection of the given kind
func (r Row) Children(relation string, kind Kind) []Row {
	items, _ := r.Fields[relation].([]any)
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			rows = append(rows, NewRow(kind, m))
		}
	}
	return rows
}

// FromMaps tags decoded entities with a kind
func FromMaps(kind Kind, items []map[string]any) []Row {
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, NewRow(kind, item))
	}
	return rows
}

// CloneRows deep-copies a slice of rows
func CloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// IndexOf returns the position of the row with id, or -1
func IndexOf(rows []Row, id string) int {
	for i, r := range rows {
		if r.ID() == id {
			return i
		}
	}
	return -1
}

// FormatID renders an id value of any decoded JSON type
func FormatID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	default:
		return fmt.Sprint(id)
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
