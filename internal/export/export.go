// Package export writes a property and its sections to an Excel workbook.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/pis-platform/pis/internal/records"
	"github.com/xuri/excelize/v2"
)

const propertySheet = "Property"

// Workbook builds the workbook: a field/value sheet for the property, then
// one sheet per section with a header row. Rows are written in the order
// given.
func Workbook(property records.Row, sections map[records.Kind][]records.Row) (*excelize.File, error) {
	return build(records.SectionKinds, property, sections)
}

// build writes the sheets of kinds present in sections. The file is closed
// when any write fails.
func build(kinds []records.Kind, property records.Row, sections map[records.Kind][]records.Row) (_ *excelize.File, err error) {
	f := excelize.NewFile()
	defer func() {
		if err != nil {
			_ = f.Close()
		}
	}()

	if err := f.SetSheetName("Sheet1", propertySheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	for i, field := range records.KindProperty.Columns() {
		r := i + 1
		if err := f.SetCellValue(propertySheet, cell(1, r), heading(field)); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(propertySheet, cell(2, r), property.String(field)); err != nil {
			return nil, err
		}
	}
	if err := f.SetColStyle(propertySheet, "A", bold); err != nil {
		return nil, err
	}

	for _, kind := range kinds {
		rows, ok := sections[kind]
		if !ok {
			continue
		}
		if err := writeSection(f, kind, rows, bold); err != nil {
			return nil, fmt.Errorf("failed to write %s sheet: %w", kind, err)
		}
	}
	return f, nil
}

// Write streams the workbook to w
func Write(w io.Writer, property records.Row, sections map[records.Kind][]records.Row) error {
	f, err := Workbook(property, sections)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// Filename is the suggested workbook name for a property
func Filename(property records.Row) string {
	name := property.String("address")
	if name == "" {
		name = property.ID()
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	return name + ".xlsx"
}

func writeSection(f *excelize.File, kind records.Kind, rows []records.Row, header int) error {
	sheet := kind.Label()
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	columns := kind.Columns()
	headings := make([]any, len(columns))
	for i, col := range columns {
		headings[i] = heading(col)
	}
	if err := f.SetSheetRow(sheet, "A1", &headings); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, header); err != nil {
		return err
	}

	for i, row := range rows {
		values := make([]any, len(columns))
		for j, col := range columns {
			values[j] = row.String(col)
		}
		if err := f.SetSheetRow(sheet, cell(1, i+2), &values); err != nil {
			return err
		}
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func heading(field string) string {
	words := strings.Split(field, "_")
	for i, w := range words {
		switch w {
		case "id", "apn", "hvac", "coe":
			words[i] = strings.ToUpper(w)
		default:
			if w != "" {
				words[i] = strings.ToUpper(w[:1]) + w[1:]
			}
		}
	}
	return strings.Join(words, " ")
}
