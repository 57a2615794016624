package editor_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/pis-platform/pis/internal/client"
	"github.com/pis-platform/pis/internal/dispatch"
	"github.com/pis-platform/pis/internal/editor"
	"github.com/pis-platform/pis/internal/logging"
	"github.com/pis-platform/pis/internal/models"
	"github.com/pis-platform/pis/internal/prefs"
	"github.com/pis-platform/pis/internal/records"
	"github.com/pis-platform/pis/internal/roworder"
	"github.com/pis-platform/pis/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type notices struct {
	mu   sync.Mutex
	list []dispatch.Notice
}

func (n *notices) Notify(notice dispatch.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, notice)
}

func (n *notices) All() []dispatch.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]dispatch.Notice(nil), n.list...)
}

type fixture struct {
	api     *testutil.API
	client  *client.Client
	seed    models.Property
	orders  *roworder.Orders
	notices *notices
	ed      *editor.Editor
}

func open(t *testing.T) *fixture {
	t.Helper()
	logging.Discard()
	api := testutil.StartAPI(t)
	f := &fixture{
		api:     api,
		client:  client.New(api.URL, client.StaticToken(api.Token)),
		seed:    testutil.SeedProperty(t, api.DB, "P100"),
		notices: &notices{},
	}

	store, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	f.orders = roworder.New(store)

	f.ed, err = editor.Open(context.Background(), "P100", editor.Options{
		API:      f.client,
		Orders:   f.orders,
		Notifier: f.notices,
	})
	require.NoError(t, err)
	t.Cleanup(f.ed.Close)
	return f
}

func id(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func TestOpenLoadsNestedSections(t *testing.T) {
	f := open(t)

	property, ok := f.ed.Property()
	require.True(t, ok)
	assert.Equal(t, "100 Main St", property.String("address"))

	suites := f.ed.Rows(records.KindSuite)
	require.Len(t, suites, 1)
	assert.Equal(t, "101", suites[0].String("suite"))
	assert.Len(t, f.ed.Rows(records.KindService), 1)
	assert.Len(t, f.ed.Rows(records.KindUtility), 1)
	assert.Len(t, f.ed.Rows(records.KindCode), 1)

	contacts := f.ed.Rows(records.KindContact)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Pat Smith", contacts[0].String("name"))
	assert.Equal(t, id(f.seed.Suites[0].SuiteID), contacts[0].String("suite_id"))
}

func TestOpenUnknownProperty(t *testing.T) {
	logging.Discard()
	api := testutil.StartAPI(t)
	c := client.New(api.URL, client.StaticToken(api.Token))

	_, err := editor.Open(context.Background(), "NOPE", editor.Options{API: c})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
}

func TestAddSaveAndEditSuite(t *testing.T) {
	f := open(t)
	ctx := context.Background()

	temp := f.ed.Add(records.KindSuite, nil)
	assert.True(t, f.ed.Drafting(records.KindSuite))
	require.NoError(t, f.ed.Set(records.KindSuite, temp.ID(), "suite", "102"))
	require.NoError(t, f.ed.Save(ctx, records.KindSuite, temp.ID()))

	assert.False(t, f.ed.Drafting(records.KindSuite))
	suites := f.ed.Rows(records.KindSuite)
	require.Len(t, suites, 2)
	for _, s := range suites {
		assert.False(t, s.IsTemp())
	}
	assert.Equal(t, "102", suites[1].String("suite"))

	var stored models.Suite
	require.NoError(t, f.api.DB.Where("suite = ?", "102").First(&stored).Error)
	assert.Equal(t, id(stored.SuiteID), suites[1].ID())

	first := id(f.seed.Suites[0].SuiteID)
	require.NoError(t, f.ed.Set(records.KindSuite, first, "suite", "101A"))
	assert.True(t, f.ed.Editing(records.KindSuite, first))
	require.NoError(t, f.ed.Save(ctx, records.KindSuite, first))
	assert.False(t, f.ed.Editing(records.KindSuite, first))

	require.NoError(t, f.api.DB.First(&stored, f.seed.Suites[0].SuiteID).Error)
	assert.Equal(t, "101A", stored.Suite)
	assert.Empty(t, f.notices.All())

	history, err := f.client.EditHistory(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, "edit", history[0].Action)
}

func TestFailedUpdateRollsBack(t *testing.T) {
	f := open(t)
	ctx := context.Background()
	suiteID := id(f.seed.Suites[0].SuiteID)

	// the row disappears on the server behind the editor's back
	require.NoError(t, f.api.DB.Where("suite_id = ?", f.seed.Suites[0].SuiteID).Delete(&models.Contact{}).Error)
	require.NoError(t, f.api.DB.Delete(&models.Suite{}, f.seed.Suites[0].SuiteID).Error)

	require.NoError(t, f.ed.Set(records.KindSuite, suiteID, "suite", "101A"))
	err := f.ed.Save(ctx, records.KindSuite, suiteID)
	require.ErrorIs(t, err, dispatch.ErrMutationFailed)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)

	rows := f.ed.Rows(records.KindSuite)
	require.Len(t, rows, 1)
	assert.Equal(t, "101", rows[0].String("suite"))
	require.Len(t, f.notices.All(), 1)
	assert.Equal(t, "Error updating suite", f.notices.All()[0].Message)

	require.NoError(t, f.ed.Refresh(ctx))
	assert.Empty(t, f.ed.Rows(records.KindSuite))
}

func TestCancel(t *testing.T) {
	f := open(t)
	suiteID := id(f.seed.Suites[0].SuiteID)

	temp := f.ed.Add(records.KindCode, map[string]any{"description": "Gate"})
	assert.True(t, f.ed.Cancel(records.KindCode, temp.ID()))
	assert.Len(t, f.ed.Rows(records.KindCode), 1)

	require.NoError(t, f.ed.Set(records.KindSuite, suiteID, "suite", "999"))
	assert.True(t, f.ed.Cancel(records.KindSuite, suiteID))
	assert.Equal(t, "101", f.ed.Rows(records.KindSuite)[0].String("suite"))
	assert.False(t, f.ed.Editing(records.KindSuite, suiteID))
}

func TestContacts(t *testing.T) {
	f := open(t)
	ctx := context.Background()
	suiteID := id(f.seed.Suites[0].SuiteID)

	c := f.ed.Add(records.KindContact, map[string]any{"name": "Lee Park", "email": "lee@example.com", "suite_id": suiteID})
	require.NoError(t, f.ed.Save(ctx, records.KindContact, c.ID()))
	assert.Len(t, f.ed.Rows(records.KindContact), 2)

	newSuite := f.ed.Add(records.KindSuite, map[string]any{"suite": "103"})
	orphan := f.ed.Add(records.KindContact, map[string]any{"name": "Sam", "suite_id": newSuite.ID()})
	err := f.ed.Save(ctx, records.KindContact, orphan.ID())
	var contactErr *dispatch.ContactError
	require.ErrorAs(t, err, &contactErr)
	assert.Equal(t, "Save the suite before adding contacts to it", contactErr.Message)

	require.True(t, f.ed.Cancel(records.KindContact, orphan.ID()))
	require.True(t, f.ed.Cancel(records.KindSuite, newSuite.ID()))

	var count int64
	require.NoError(t, f.api.DB.Model(&models.Contact{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestDelete(t *testing.T) {
	f := open(t)
	ctx := context.Background()
	codeID := id(f.seed.Codes[0].CodeID)

	require.NoError(t, f.ed.Delete(ctx, records.KindCode, codeID))
	assert.Empty(t, f.ed.Rows(records.KindCode))

	var count int64
	require.NoError(t, f.api.DB.Model(&models.Code{}).Count(&count).Error)
	assert.Zero(t, count)

	err := f.ed.Delete(ctx, records.KindCode, codeID)
	assert.ErrorIs(t, err, dispatch.ErrMutationFailed)
	assert.Empty(t, f.ed.Rows(records.KindCode), "a failed delete of a row no longer in the draft restores nothing")
}

func TestPropertyEdits(t *testing.T) {
	f := open(t)
	ctx := context.Background()

	require.NoError(t, f.ed.Set(records.KindProperty, "P100", "city", "Tempe"))
	require.NoError(t, f.ed.SaveProperty(ctx))
	require.NoError(t, f.ed.SetActive(ctx, false))

	var stored models.Property
	require.NoError(t, f.api.DB.First(&stored, "yardi = ?", "P100").Error)
	assert.Equal(t, "Tempe", stored.City)
	assert.False(t, stored.Active)

	property, _ := f.ed.Property()
	assert.Equal(t, false, property.Fields["active"])
	assert.Len(t, f.ed.Rows(records.KindSuite), 1, "sections survive a property refetch")
}

func TestViewOrderAndSearch(t *testing.T) {
	f := open(t)
	ctx := context.Background()

	for _, name := range []string{"099", "200"} {
		temp := f.ed.Add(records.KindSuite, map[string]any{"suite": name})
		require.NoError(t, f.ed.Save(ctx, records.KindSuite, temp.ID()))
	}

	view := f.ed.View(ctx, "")
	suites := view.Rows(records.KindSuite)
	require.Len(t, suites, 3)
	assert.Equal(t, []string{"099", "101", "200"}, []string{suites[0].String("suite"), suites[1].String("suite"), suites[2].String("suite")})
	assert.Empty(t, view.FirstMatch)

	require.NoError(t, f.ed.Reorder(ctx, records.KindSuite, []string{suites[2].ID(), suites[0].ID()}))
	reordered := f.ed.View(ctx, "").Rows(records.KindSuite)
	assert.Equal(t, []string{suites[2].ID(), suites[0].ID(), suites[1].ID()}, []string{reordered[0].ID(), reordered[1].ID(), reordered[2].ID()})

	search := f.ed.View(ctx, "green")
	assert.Equal(t, records.KindService, search.FirstMatch)
	assert.Empty(t, search.Rows(records.KindSuite))
	assert.Len(t, search.Rows(records.KindService), 1)

	cols := []roworder.ColumnState{{ColID: "suite", Width: 120}, {ColID: "notes", Hide: true}}
	require.NoError(t, f.ed.SaveColumns(ctx, records.KindSuite, cols))
	assert.Equal(t, cols, f.ed.Columns(ctx, records.KindSuite))
}

func TestExport(t *testing.T) {
	f := open(t)

	var buf bytes.Buffer
	require.NoError(t, f.ed.Export(context.Background(), &buf))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{"Property", "Suites", "Services", "Utilities", "Codes", "Contacts"}, wb.GetSheetList())

	v, err := wb.GetCellValue("Suites", "A2")
	require.NoError(t, err)
	assert.Equal(t, "101", v)
}

func TestClosedEditorIgnoresRefetches(t *testing.T) {
	f := open(t)
	ctx := context.Background()
	cache := editor.NewCache(f.client)
	ed, err := editor.Open(ctx, "P100", editor.Options{API: f.client, Cache: cache})
	require.NoError(t, err)
	ed.Close()

	require.NoError(t, f.api.DB.Model(&models.Code{}).Where("code_id = ?", f.seed.Codes[0].CodeID).Update("description", "Back door").Error)
	_, err = cache.Fetch(ctx, dispatch.PropertyKey("P100"))
	require.NoError(t, err)

	assert.Equal(t, "Front door", ed.Rows(records.KindCode)[0].String("description"))
	assert.ErrorIs(t, ed.Save(ctx, records.KindCode, id(f.seed.Codes[0].CodeID)), dispatch.ErrClosed)
}

func TestSharedCacheNotifiesEveryEditor(t *testing.T) {
	f := open(t)
	ctx := context.Background()
	cache := editor.NewCache(f.client)

	a, err := editor.Open(ctx, "P100", editor.Options{API: f.client, Cache: cache})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	b, err := editor.Open(ctx, "P100", editor.Options{API: f.client, Cache: cache})
	require.NoError(t, err)
	t.Cleanup(b.Close)

	temp := a.Add(records.KindCode, map[string]any{"description": "Gate"})
	require.NoError(t, a.Save(ctx, records.KindCode, temp.ID()))

	assert.Len(t, a.Rows(records.KindCode), 2)
	assert.Len(t, b.Rows(records.KindCode), 2)
}

func TestUnauthorizedSaveFails(t *testing.T) {
	f := open(t)
	f.client.Tokens = client.StaticToken("not-a-token")
	suiteID := id(f.seed.Suites[0].SuiteID)

	require.NoError(t, f.ed.Set(records.KindSuite, suiteID, "suite", "101A"))
	err := f.ed.Save(context.Background(), records.KindSuite, suiteID)
	assert.True(t, errors.Is(err, client.ErrUnauthorized))
	assert.Equal(t, "101", f.ed.Rows(records.KindSuite)[0].String("suite"))
}
