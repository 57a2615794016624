package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pis-platform/pis/internal/client"
	"github.com/pis-platform/pis/internal/editor"
	"github.com/pis-platform/pis/internal/export"
	"github.com/pis-platform/pis/internal/prefs"
	"github.com/pis-platform/pis/internal/records"
	"github.com/pis-platform/pis/internal/roworder"
	"github.com/pis-platform/pis/internal/views"
)

var out io.Writer = os.Stdout

func (a *app) open(ctx context.Context, yardi string) (*editor.Editor, error) {
	return editor.Open(ctx, yardi, editor.Options{API: a.client, Orders: a.orders, Notifier: a})
}

func (a *app) properties(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("properties", flag.ContinueOnError)
	search := fs.String("search", "", "filter by address, city, yardi or manager")
	active := fs.String("active", "", "true for unsold, false for sold")
	page := fs.Int("page", 1, "page number")
	perPage := fs.Int("per-page", 25, "properties per page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	q := client.PropertyQuery{Page: *page, PerPage: *perPage, Search: *search}
	if *active != "" {
		v, err := strconv.ParseBool(*active)
		if err != nil {
			return fmt.Errorf("invalid -active %q", *active)
		}
		q.Active = &v
	}
	result, err := a.client.ListProperties(ctx, q)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "YARDI\tADDRESS\tCITY\tMANAGER\tACTIVE")
	for _, p := range result.Properties {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID(), p.String("address"), p.String("city"), p.String("prop_manager"), p.String("active"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "page %d of %d (%d properties)\n", result.Page, views.TotalPages(int(result.Total), result.PerPage), result.Total)
	return nil
}

func (a *app) property(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("property", flag.ContinueOnError)
	search := fs.String("search", "", "only show matching rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: property [-search TEXT] YARDI")
	}

	ed, err := a.open(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	defer ed.Close()

	property, _ := ed.Property()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, col := range records.KindProperty.Columns() {
		fmt.Fprintf(tw, "%s\t%s\n", col, property.String(col))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	view := ed.View(ctx, *search)
	for _, section := range view.Sections {
		marker := ""
		if section.Kind == view.FirstMatch {
			marker = " *"
		}
		fmt.Fprintf(out, "\n%s (%d)%s\n", section.Kind.Label(), len(section.Rows), marker)
		if err := printRows(section.Kind, section.Rows); err != nil {
			return err
		}
	}
	return nil
}

func printRows(kind records.Kind, rows []records.Row) error {
	if len(rows) == 0 {
		return nil
	}
	cols := append([]string{kind.IDField()}, kind.Columns()...)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(cols, "\t")))
	for _, r := range rows {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = r.String(col)
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}
	return tw.Flush()
}

func (a *app) add(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: add YARDI SECTION FIELD=VALUE...")
	}
	kind, err := sectionKind(args[1])
	if err != nil {
		return err
	}
	fields, err := parseAssignments(args[2:])
	if err != nil {
		return err
	}

	ed, err := a.open(ctx, args[0])
	if err != nil {
		return err
	}
	defer ed.Close()

	temp := ed.Add(kind, fields)
	if err := ed.Save(ctx, kind, temp.ID()); err != nil {
		return err
	}
	rows := ed.Rows(kind)
	return printRows(kind, rows[len(rows)-1:])
}

func (a *app) set(ctx context.Context, args []string) error {
	if len(args) < 4 {
		return errors.New("usage: set YARDI SECTION ID FIELD=VALUE...")
	}
	kind, err := records.ParseKind(args[1])
	if err != nil {
		return err
	}
	fields, err := parseAssignments(args[3:])
	if err != nil {
		return err
	}

	ed, err := a.open(ctx, args[0])
	if err != nil {
		return err
	}
	defer ed.Close()

	id := args[2]
	if kind == records.KindProperty {
		id = ed.Yardi()
	}
	for field, value := range fields {
		if err := ed.Set(kind, id, field, value); err != nil {
			return err
		}
	}
	if kind == records.KindProperty {
		return ed.SaveProperty(ctx)
	}
	return ed.Save(ctx, kind, id)
}

func (a *app) remove(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: delete YARDI SECTION ID")
	}
	kind, err := sectionKind(args[1])
	if err != nil {
		return err
	}

	ed, err := a.open(ctx, args[0])
	if err != nil {
		return err
	}
	defer ed.Close()
	return ed.Delete(ctx, kind, args[2])
}

func (a *app) setActive(ctx context.Context, args []string, active bool) error {
	if len(args) != 1 {
		return errors.New("usage: sold YARDI | unsold YARDI")
	}
	ed, err := a.open(ctx, args[0])
	if err != nil {
		return err
	}
	defer ed.Close()
	return ed.SetActive(ctx, active)
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	output := fs.String("o", "", "output file, defaults to the property address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: export [-o FILE] YARDI")
	}

	ed, err := a.open(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	defer ed.Close()

	var buf bytes.Buffer
	if err := ed.Export(ctx, &buf); err != nil {
		return err
	}
	path := *output
	if path == "" {
		property, _ := ed.Property()
		path = export.Filename(property)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", path)
	return nil
}

func (a *app) history(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	perPage := fs.Int("per-page", 20, "entries per page")
	limit := fs.Int("limit", 0, "entries to fetch, 0 for the server default")
	if err := fs.Parse(args); err != nil {
		return err
	}

	entries, err := a.client.EditHistory(ctx, *limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tWHO\tACTION\tENTITY\tFIELD\tOLD\tNEW")
	for _, e := range views.Paginate(entries, *page, *perPage) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\t%s\t%s\n",
			e.EditedAt.Local().Format("2006-01-02 15:04"), e.EditedBy, e.Action,
			e.EntityType, e.EntityID, e.Field, e.OldValue, e.NewValue)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "page %d of %d\n", *page, views.TotalPages(len(entries), *perPage))
	return nil
}

func (a *app) order(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: order YARDI SECTION [ID...]")
	}
	kind, err := sectionKind(args[1])
	if err != nil {
		return err
	}
	scope := roworder.Scope{Property: args[0], Kind: kind}

	if len(args) > 2 {
		return a.orders.SaveOrder(ctx, scope, args[2:])
	}

	ed, err := a.open(ctx, args[0])
	if err != nil {
		return err
	}
	defer ed.Close()
	return printRows(kind, ed.View(ctx, "").Rows(kind))
}

func (a *app) theme(ctx context.Context, args []string) error {
	switch len(args) {
	case 0:
		fmt.Fprintln(out, a.prefs.Theme(ctx))
		return nil
	case 1:
		return a.prefs.SetTheme(ctx, prefs.Theme(args[0]))
	default:
		return errors.New("usage: theme [light|dark]")
	}
}

func sectionKind(name string) (records.Kind, error) {
	kind, err := records.ParseKind(name)
	if err != nil {
		return "", err
	}
	if kind == records.KindProperty {
		return "", fmt.Errorf("%s is not a section", name)
	}
	return kind, nil
}

// parseAssignments reads FIELD=VALUE as a string and FIELD:=JSON as a raw
// JSON value.
func parseAssignments(args []string) (map[string]any, error) {
	fields := make(map[string]any, len(args))
	for _, arg := range args {
		if field, raw, ok := strings.Cut(arg, ":="); ok {
			dec := json.NewDecoder(strings.NewReader(raw))
			dec.UseNumber()
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, fmt.Errorf("invalid JSON for %s: %w", field, err)
			}
			fields[field] = v
			continue
		}
		field, value, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("expected FIELD=VALUE, got %q", arg)
		}
		fields[field] = value
	}
	return fields, nil
}
