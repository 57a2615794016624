package draft_test

import (
	"testing"

	"github.com/pis-platform/pis/internal/draft"
	"github.com/pis-platform/pis/internal/querycache"
	"github.com/pis-platform/pis/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var key = querycache.Key{Kind: records.KindSuite, Parent: "P100"}

func suite(id, name string) records.Row {
	return records.NewRow(records.KindSuite, map[string]any{"suite_id": id, "suite": name})
}

func ids(rows []records.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID()
	}
	return out
}

func TestLoadSuppressedWhileDrafting(t *testing.T) {
	s := draft.New()
	assert.True(t, s.Load(key, []records.Row{suite("S1", "101")}))

	temp := s.Add(key, map[string]any{"suite": ""})
	assert.True(t, s.Drafting(key))
	assert.True(t, s.Editing(key, temp.ID()))

	assert.False(t, s.Load(key, []records.Row{suite("S1", "101"), suite("S2", "102")}))
	assert.Equal(t, []string{"S1", temp.ID()}, ids(s.Rows(key)))

	require.True(t, s.Discard(key, temp.ID()))
	assert.False(t, s.Drafting(key))
	assert.True(t, s.Load(key, []records.Row{suite("S1", "101"), suite("S2", "102")}))
	assert.Equal(t, []string{"S1", "S2"}, ids(s.Rows(key)))
}

func TestCommitReplacesTempRow(t *testing.T) {
	s := draft.New()
	s.Load(key, []records.Row{suite("S1", "101")})
	temp := s.Add(key, nil)
	require.NoError(t, s.Set(key, temp.ID(), "suite", "102"))

	m, err := s.BeginMutation(key, temp.ID(), nil)
	require.NoError(t, err)
	require.True(t, m.Commit(records.NewRow(records.KindSuite, map[string]any{
		"suite_id": "S9", "suite": "102", "property_yardi": "P100",
	})))

	rows := s.Rows(key)
	assert.Equal(t, []string{"S1", "S9"}, ids(rows))
	assert.Equal(t, "P100", rows[1].String("property_yardi"))
	_, ok := s.Row(key, temp.ID())
	assert.False(t, ok)
	assert.False(t, s.Drafting(key))
}

func TestRollbackRestoresServerState(t *testing.T) {
	s := draft.New()
	s.Load(key, []records.Row{suite("S1", "101"), suite("S2", "102")})
	require.NoError(t, s.Set(key, "S1", "suite", "101A"))
	assert.True(t, s.Editing(key, "S1"))

	server := suite("S1", "101")
	m, err := s.BeginMutation(key, "S1", &server)
	require.NoError(t, err)
	assert.Equal(t, "101A", m.Row().String("suite"))

	require.True(t, m.Rollback())
	row, _ := s.Row(key, "S1")
	assert.True(t, row.Equal(server))
	assert.False(t, s.Editing(key, "S1"))
}

func TestRollbackReinsertsRemovedRow(t *testing.T) {
	s := draft.New()
	s.Load(key, []records.Row{suite("S1", "101"), suite("S2", "102"), suite("S3", "103")})

	server := suite("S2", "102")
	m, err := s.BeginMutation(key, "S2", &server)
	require.NoError(t, err)
	require.True(t, m.Remove())
	assert.Equal(t, []string{"S1", "S3"}, ids(s.Rows(key)))

	require.True(t, m.Rollback())
	assert.Equal(t, []string{"S1", "S2", "S3"}, ids(s.Rows(key)))
}

func TestStaleMutationIgnored(t *testing.T) {
	s := draft.New()
	s.Load(key, []records.Row{suite("S1", "101")})
	server := suite("S1", "101")

	require.NoError(t, s.Set(key, "S1", "suite", "A"))
	first, err := s.BeginMutation(key, "S1", &server)
	require.NoError(t, err)
	require.NoError(t, s.Set(key, "S1", "suite", "B"))
	second, err := s.BeginMutation(key, "S1", &server)
	require.NoError(t, err)
	assert.Greater(t, second.Seq(), first.Seq())

	require.True(t, second.Commit(suite("S1", "B")))
	assert.False(t, first.Current())
	assert.False(t, first.Commit(suite("S1", "A")))
	assert.False(t, first.Rollback())

	row, _ := s.Row(key, "S1")
	assert.Equal(t, "B", row.String("suite"))
}

func TestEditSupersedesInFlightSave(t *testing.T) {
	s := draft.New()
	s.Load(key, []records.Row{suite("S1", "101")})
	require.NoError(t, s.Set(key, "S1", "suite", "A"))
	m, err := s.BeginMutation(key, "S1", nil)
	require.NoError(t, err)

	require.NoError(t, s.Set(key, "S1", "suite", "AB"))
	assert.False(t, m.Commit(suite("S1", "A")))

	row, _ := s.Row(key, "S1")
	assert.Equal(t, "AB", row.String("suite"))
	assert.True(t, s.Editing(key, "S1"))
}

func TestSetRejectsUnknownRowAndIDField(t *testing.T) {
	s := draft.New()
	assert.ErrorIs(t, s.Set(key, "S404", "suite", "x"), draft.ErrNoRow)
	s.Load(key, []records.Row{suite("S1", "101")})
	assert.Error(t, s.Set(key, "S1", "suite_id", "S2"))
	_, err := s.BeginMutation(key, "S404", nil)
	assert.ErrorIs(t, err, draft.ErrNoRow)
}

func TestStaleCreateStillPromotesID(t *testing.T) {
	s := draft.New()
	temp := s.Add(key, map[string]any{"suite": "102"})
	m, err := s.BeginMutation(key, temp.ID(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Set(key, temp.ID(), "suite", "102B"))

	assert.False(t, m.Commit(suite("S9", "102")))

	rows := s.Rows(key)
	require.Len(t, rows, 1)
	assert.Equal(t, "S9", rows[0].ID())
	assert.Equal(t, "102B", rows[0].String("suite"))
	assert.True(t, s.Editing(key, "S9"))
	assert.False(t, s.Drafting(key))
}

func TestResetDropsEditsAndStalesInFlightSave(t *testing.T) {
	s := draft.New()
	s.Load(key, []records.Row{suite("S1", "101")})
	require.NoError(t, s.Set(key, "S1", "suite", "101A"))

	m, err := s.BeginMutation(key, "S1", nil)
	require.NoError(t, err)
	assert.True(t, s.Reset(key, suite("S1", "101")))
	assert.False(t, s.Editing(key, "S1"))

	assert.False(t, m.Commit(suite("S1", "101A")))
	row, _ := s.Row(key, "S1")
	assert.Equal(t, "101", row.String("suite"))

	assert.False(t, s.Reset(key, suite("S2", "102")))
}

func TestLoadKeepsUnsavedInput(t *testing.T) {
	s := draft.New()
	s.Load(key, []records.Row{suite("S1", "101"), suite("S2", "102")})
	require.NoError(t, s.Set(key, "S1", "suite", "A"))
	m, err := s.BeginMutation(key, "S1", nil)
	require.NoError(t, err)
	require.NoError(t, s.Set(key, "S1", "suite", "B"))

	assert.False(t, m.Commit(suite("S1", "A")))
	assert.True(t, s.Load(key, []records.Row{suite("S1", "A"), suite("S2", "102B")}))

	row, _ := s.Row(key, "S1")
	assert.Equal(t, "B", row.String("suite"))
	assert.True(t, s.Editing(key, "S1"))
	row, _ = s.Row(key, "S2")
	assert.Equal(t, "102B", row.String("suite"))
	assert.False(t, s.Editing(key, "S2"))
}

func TestLoadAfterStaleCreateKeepsPromotedInput(t *testing.T) {
	s := draft.New()
	temp := s.Add(key, map[string]any{"suite": "102"})
	m, err := s.BeginMutation(key, temp.ID(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Set(key, temp.ID(), "suite", "102B"))
	assert.False(t, m.Commit(suite("S9", "102")))

	assert.True(t, s.Load(key, []records.Row{suite("S9", "102")}))
	row, _ := s.Row(key, "S9")
	assert.Equal(t, "102B", row.String("suite"))
	assert.True(t, s.Editing(key, "S9"))
}

func TestSequencesPrunedWithRows(t *testing.T) {
	s := draft.New()
	s.Load(key, []records.Row{suite("S1", "101"), suite("S2", "102")})
	require.NoError(t, s.Set(key, "S1", "suite", "A"))
	require.NoError(t, s.Set(key, "S2", "suite", "B"))
	old, err := s.BeginMutation(key, "S2", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.SeqLen())

	temp := s.Add(key, nil)
	require.NoError(t, s.Set(key, temp.ID(), "suite", "103"))
	require.True(t, s.Discard(key, temp.ID()))
	assert.Equal(t, 2, s.SeqLen())

	assert.True(t, s.Load(key, []records.Row{suite("S1", "101")}))
	assert.Equal(t, 1, s.SeqLen())

	m, err := s.BeginMutation(key, "S1", nil)
	require.NoError(t, err)
	require.True(t, m.CommitRemove())
	assert.Zero(t, s.SeqLen())

	// a row that comes back never matches a mutation begun before it was pruned
	assert.True(t, s.Load(key, []records.Row{suite("S2", "102")}))
	require.NoError(t, s.Set(key, "S2", "suite", "C"))
	assert.False(t, old.Current())
}
