package views_test

import (
	"context"
	"testing"

	"github.com/pis-platform/pis/internal/records"
	"github.com/pis-platform/pis/internal/roworder"
	"github.com/pis-platform/pis/internal/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore map[string][]byte

func (m mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapStore) Put(_ context.Context, key string, value []byte) error {
	m[key] = value
	return nil
}

func row(kind records.Kind, id string, fields map[string]any) records.Row {
	fields[kind.IDField()] = id
	return records.NewRow(kind, fields)
}

func ids(rows []records.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID()
	}
	return out
}

func TestSortCaseInsensitiveBySectionKey(t *testing.T) {
	services := []records.Row{
		row(records.KindService, "1", map[string]any{"service_type": "landscaping"}),
		row(records.KindService, "2", map[string]any{"service_type": "Elevator"}),
		row(records.KindService, "3", map[string]any{"service_type": "HVAC"}),
		row(records.KindService, "4", map[string]any{}),
	}
	sorted := views.Sort(services)
	assert.Equal(t, []string{"4", "2", "3", "1"}, ids(sorted))
	assert.Equal(t, "1", services[0].ID(), "input untouched")
}

func TestFilterBySearchFields(t *testing.T) {
	suites := []records.Row{
		row(records.KindSuite, "1", map[string]any{"suite": "101", "name": "Acme Dental"}),
		row(records.KindSuite, "2", map[string]any{"suite": "102", "hvac_info": "Carrier"}),
		row(records.KindSuite, "3", map[string]any{"suite": "103", "misc": "acme"}),
	}
	assert.Equal(t, []string{"1"}, ids(views.Filter(suites, "ACME")))
	assert.Equal(t, []string{"2"}, ids(views.Filter(suites, "carrier")))
	assert.Len(t, views.Filter(suites, "  "), 3)
}

func TestProjectAppliesStoredOrderAndFirstMatch(t *testing.T) {
	ctx := context.Background()
	orders := roworder.New(mapStore{})
	require.NoError(t, orders.SaveOrder(ctx, roworder.Scope{Property: "P100", Kind: records.KindSuite}, []string{"3", "1"}))

	collections := map[records.Kind][]records.Row{
		records.KindSuite: {
			row(records.KindSuite, "1", map[string]any{"suite": "101"}),
			row(records.KindSuite, "2", map[string]any{"suite": "100"}),
			row(records.KindSuite, "3", map[string]any{"suite": "103"}),
		},
		records.KindUtility: {
			row(records.KindUtility, "7", map[string]any{"service": "Water", "vendor": "City"}),
		},
		records.KindCode: {
			row(records.KindCode, "8", map[string]any{"description": "Gate", "code": "city gate"}),
		},
	}

	p := views.Project(ctx, orders, "P100", collections, "")
	assert.Equal(t, []string{"3", "1", "2"}, ids(p.Rows(records.KindSuite)))
	assert.Empty(t, p.FirstMatch)

	p = views.Project(ctx, orders, "P100", collections, "city")
	assert.Empty(t, p.Rows(records.KindSuite))
	assert.Equal(t, records.KindUtility, p.FirstMatch)
	assert.Len(t, p.Rows(records.KindCode), 1)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2}, views.Paginate(items, 1, 2))
	assert.Equal(t, []int{5}, views.Paginate(items, 3, 2))
	assert.Nil(t, views.Paginate(items, 4, 2))
	assert.Equal(t, 3, views.TotalPages(len(items), 2))
	assert.Equal(t, 0, views.TotalPages(0, 2))
}
