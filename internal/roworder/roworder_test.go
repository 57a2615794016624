package roworder_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/pis-platform/pis/internal/logging"
	"github.com/pis-platform/pis/internal/records"
	"github.com/pis-platform/pis/internal/roworder"
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

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk gone")
}

func (brokenStore) Put(context.Context, string, []byte) error { return errors.New("disk gone") }

var scope = roworder.Scope{Property: "P100", Kind: records.KindSuite}

func identity(s string) string { return s }

func TestLoadOrderStoredThenLeftovers(t *testing.T) {
	o := roworder.New(mapStore{})
	ctx := context.Background()

	items := []string{"a", "b", "c", "d"}
	assert.Equal(t, items, roworder.LoadOrder(ctx, o, scope, items, identity), "nothing stored")

	require.NoError(t, o.SaveOrder(ctx, scope, []string{"c", "gone", "a"}))
	got := roworder.LoadOrder(ctx, o, scope, items, identity)
	assert.Equal(t, []string{"c", "a", "b", "d"}, got)

	other := roworder.Scope{Property: "P100", Kind: records.KindCode}
	assert.Equal(t, items, roworder.LoadOrder(ctx, o, other, items, identity))
}

func TestLoadOrderIdempotent(t *testing.T) {
	o := roworder.New(mapStore{})
	ctx := context.Background()
	require.NoError(t, o.SaveOrder(ctx, scope, []string{"3", "1"}))

	items := []string{"1", "2", "3", "4"}
	once := roworder.LoadOrder(ctx, o, scope, items, identity)
	twice := roworder.LoadOrder(ctx, o, scope, once, identity)
	assert.Equal(t, once, twice)
}

func TestLoadOrderKeepsEveryItemOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		var items, stored []string
		for i := 0; i < rng.Intn(12); i++ {
			items = append(items, fmt.Sprint(i))
		}
		for i := 0; i < rng.Intn(12); i++ {
			stored = append(stored, fmt.Sprint(rng.Intn(16)))
		}

		got := roworder.Apply(stored, items, identity)
		require.Len(t, got, len(items))
		assert.ElementsMatch(t, items, got)
	}
}

func TestCorruptStoredValueFallsBack(t *testing.T) {
	logging.Discard()
	store := mapStore{scope.RowKey(): []byte("{not json")}
	o := roworder.New(store)
	items := []string{"b", "a"}
	assert.Equal(t, items, roworder.LoadOrder(context.Background(), o, scope, items, identity))

	assert.Equal(t, items, roworder.LoadOrder(context.Background(), roworder.New(brokenStore{}), scope, items, identity))
}

func TestColumnState(t *testing.T) {
	logging.Discard()
	o := roworder.New(mapStore{})
	ctx := context.Background()
	assert.Nil(t, o.LoadColumns(ctx, scope))

	idx := 0
	cols := []roworder.ColumnState{{ColID: "suite", Width: 120, Sort: "asc", SortIndex: &idx}, {ColID: "notes", Hide: true}}
	require.NoError(t, o.SaveColumns(ctx, scope, cols))
	assert.Equal(t, cols, o.LoadColumns(ctx, scope))
	assert.Equal(t, "P100-Suites-columnState", scope.ColumnKey())
	assert.Equal(t, "P100-Suites-rowOrder", scope.RowKey())
}
