package services

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

var schemaCache sync.Map

// columnSet is the set of columns a client may write for a model, keyed by
// column name. Primary keys, timestamps and relations are excluded.
type columnSet struct {
	schema  *schema.Schema
	columns map[string]*schema.Field
}

func parseColumns(db *gorm.DB, model any, exclude ...string) (*columnSet, error) {
	sch, err := schema.Parse(model, &schemaCache, db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	skip := map[string]bool{"created_at": true, "updated_at": true}
	for _, e := range exclude {
		skip[e] = true
	}

	cs := &columnSet{schema: sch, columns: make(map[string]*schema.Field)}
	for _, f := range sch.Fields {
		if f.DBName == "" || f.PrimaryKey || skip[f.DBName] {
			continue
		}
		cs.columns[f.DBName] = f
	}
	return cs, nil
}

// hasRelation reports whether the model declares the named association.
func (cs *columnSet) hasRelation(name string) bool {
	_, ok := cs.schema.Relationships.Relations[name]
	return ok
}

// overlay returns a copy of base with the writable payload keys applied, and
// the sorted list of columns the payload touched. Unknown keys are ignored.
func overlay[T any](cs *columnSet, base T, payload map[string]any) (T, []string, error) {
	var out T

	raw, err := json.Marshal(base)
	if err != nil {
		return out, nil, err
	}
	merged := make(map[string]any)
	if err := json.Unmarshal(raw, &merged); err != nil {
		return out, nil, err
	}

	touched := make([]string, 0, len(payload))
	for key, value := range payload {
		if _, ok := cs.columns[key]; !ok {
			continue
		}
		merged[key] = value
		touched = append(touched, key)
	}
	sort.Strings(touched)

	raw, err = json.Marshal(merged)
	if err != nil {
		return out, nil, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return out, touched, nil
}

type fieldChange struct {
	Column string
	Old    string
	New    string
}

// diff compares the given columns of two records and returns those whose
// values differ.
func (cs *columnSet) diff(before, after any, columns []string) []fieldChange {
	bv := reflect.Indirect(reflect.ValueOf(before))
	av := reflect.Indirect(reflect.ValueOf(after))
	ctx := context.Background()

	var changes []fieldChange
	for _, col := range columns {
		f, ok := cs.columns[col]
		if !ok {
			continue
		}
		ov, _ := f.ValueOf(ctx, bv)
		nv, _ := f.ValueOf(ctx, av)
		if reflect.DeepEqual(ov, nv) {
			continue
		}
		changes = append(changes, fieldChange{
			Column: col,
			Old:    formatValue(ov),
			New:    formatValue(nv),
		})
	}
	return changes
}

func formatValue(v any) string {
	rv := reflect.ValueOf(v)
	if v == nil || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return ""
	}
	return fmt.Sprint(reflect.Indirect(rv).Interface())
}
