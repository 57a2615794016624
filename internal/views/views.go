// Package views computes display projections of draft rows: sorting,
// stored row order, search filtering and pagination. Nothing here writes
// back into draft or cache state.
package views

import (
	"context"
	"sort"
	"strings"

	"github.com/pis-platform/pis/internal/records"
	"github.com/pis-platform/pis/internal/roworder"
)

// Sort orders rows case-insensitively by their kind's sort key. The input
// is not modified.
func Sort(rows []records.Row) []records.Row {
	out := append([]records.Row(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		a := strings.ToLower(out[i].String(out[i].Kind.SortKey()))
		b := strings.ToLower(out[j].String(out[j].Kind.SortKey()))
		return a < b
	})
	return out
}

// Filter keeps rows where any search field contains search,
// case-insensitively. An empty search keeps everything.
func Filter(rows []records.Row, search string) []records.Row {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return rows
	}
	out := make([]records.Row, 0, len(rows))
	for _, r := range rows {
		for _, field := range r.Kind.SearchFields() {
			if strings.Contains(strings.ToLower(r.String(field)), search) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Section is the display projection of one collection
type Section struct {
	Kind records.Kind
	Rows []records.Row
}

// Projection is the display state of a property's sections
type Projection struct {
	Sections []Section
	// FirstMatch is the first of suites, services, utilities and codes
	// with a row matching the search, or "" when nothing matches or
	// there is no search.
	FirstMatch records.Kind
}

// Rows returns the projected rows of kind
func (p Projection) Rows(kind records.Kind) []records.Row {
	for _, s := range p.Sections {
		if s.Kind == kind {
			return s.Rows
		}
	}
	return nil
}

// Project sorts each collection, applies the stored row order for the
// property and filters by search.
func Project(ctx context.Context, orders *roworder.Orders, property string, collections map[records.Kind][]records.Row, search string) Projection {
	var p Projection
	for _, kind := range records.SectionKinds {
		rows, ok := collections[kind]
		if !ok {
			continue
		}
		ordered := Sort(rows)
		if orders != nil {
			ordered = roworder.LoadOrder(ctx, orders, roworder.Scope{Property: property, Kind: kind}, ordered, records.Row.ID)
		}
		filtered := Filter(ordered, search)
		p.Sections = append(p.Sections, Section{Kind: kind, Rows: filtered})

		if strings.TrimSpace(search) != "" && p.FirstMatch == "" && kind != records.KindContact && len(filtered) > 0 {
			p.FirstMatch = kind
		}
	}
	return p
}

// Paginate returns page (1-based) of items
func Paginate[T any](items []T, page, perPage int) []T {
	if perPage <= 0 || page <= 0 {
		return nil
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return nil
	}
	end := min(start+perPage, len(items))
	return items[start:end]
}

// TotalPages is the number of pages needed for n items
func TotalPages(n, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (n + perPage - 1) / perPage
}
