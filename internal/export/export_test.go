package export_test

import (
	"bytes"
	"testing"

	"github.com/pis-platform/pis/internal/export"
	"github.com/pis-platform/pis/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbookSheets(t *testing.T) {
	property := records.NewRow(records.KindProperty, map[string]any{
		"yardi": "P100", "address": "100 Main St", "city": "Phoenix", "active": true,
	})
	sections := map[records.Kind][]records.Row{
		records.KindSuite: {
			records.NewRow(records.KindSuite, map[string]any{"suite_id": "1", "suite": "101", "name": "Acme Dental"}),
			records.NewRow(records.KindSuite, map[string]any{"suite_id": "2", "suite": "102"}),
		},
		records.KindCode: {},
	}

	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, property, sections))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Property", "Suites", "Codes"}, f.GetSheetList())

	v, err := f.GetCellValue("Property", "B2")
	require.NoError(t, err)
	assert.Equal(t, "100 Main St", v)
	v, err = f.GetCellValue("Property", "A7")
	require.NoError(t, err)
	assert.Equal(t, "Total Sq Ft", v)

	rows, err := f.GetRows("Suites")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Suite", rows[0][0])
	assert.Equal(t, "HVAC", rows[0][4])
	assert.Equal(t, "101", rows[1][0])
	assert.Equal(t, "Acme Dental", rows[1][2])
	assert.Equal(t, "102", rows[2][0])
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "100 Main St_ Unit 2.xlsx", export.Filename(records.NewRow(records.KindProperty, map[string]any{"yardi": "P1", "address": "100 Main St/ Unit 2"})))
	assert.Equal(t, "P1.xlsx", export.Filename(records.NewRow(records.KindProperty, map[string]any{"yardi": "P1"})))
}
