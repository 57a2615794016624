package prefs_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pis-platform/pis/internal/logging"
	"github.com/pis-platform/pis/internal/prefs"
	"github.com/pis-platform/pis/internal/records"
	"github.com/pis-platform/pis/internal/roworder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) (*prefs.Store, string) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	store, err := prefs.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestPutOverwrites(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "k", []byte(`["1","2"]`)))
	require.NoError(t, store.Put(ctx, "k", []byte(`["2","1"]`)))
	v, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `["2","1"]`, string(v))
}

func TestTheme(t *testing.T) {
	logging.Discard()
	store, path := openStore(t)
	ctx := context.Background()

	assert.Equal(t, prefs.ThemeLight, store.Theme(ctx))
	require.NoError(t, store.SetTheme(ctx, prefs.ThemeDark))
	assert.Error(t, store.SetTheme(ctx, "neon"))
	require.NoError(t, store.Close())

	reopened, err := prefs.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	assert.Equal(t, prefs.ThemeDark, reopened.Theme(ctx))

	require.NoError(t, reopened.Put(ctx, "theme", []byte(`"neon"`)))
	assert.Equal(t, prefs.ThemeLight, reopened.Theme(ctx))
}

func TestRowOrderSurvivesReopen(t *testing.T) {
	store, path := openStore(t)
	ctx := context.Background()
	scope := roworder.Scope{Property: "P100", Kind: records.KindService}

	require.NoError(t, roworder.New(store).SaveOrder(ctx, scope, []string{"9", "4"}))
	require.NoError(t, store.Close())

	reopened, err := prefs.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got := roworder.LoadOrder(ctx, roworder.New(reopened), scope, []string{"4", "5", "9"}, func(s string) string { return s })
	assert.Equal(t, []string{"9", "4", "5"}, got)
}
