// Package report renders dictionaries as text tables.
package report

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/dictionary"
)

// Summary lists every attribute of d with its distinct and total counts.
func Summary(d *dictionary.Dictionary) string {
	t := table.NewWriter()
	t.SetTitle(d.Table())
	t.AppendHeader(table.Row{"Attribute", "Distinct", "Total", "Top value", "Top share"})
	for _, a := range d.Attributes() {
		e, _ := d.Entry(a)
		top, share := "", ""
		if len(e.Values) > 0 {
			top = formatValue(e.Values[0].Value)
			share = fmt.Sprintf("%.2f%%", e.Share(0)*100)
		}
		t.AppendRow(table.Row{a, len(e.Values), e.TotalCount, top, share})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleLight)
	return t.Render()
}

// Entry renders the distribution of e. limit caps the number of value rows;
// zero or less renders all of them.
func Entry(e dictionary.Entry, limit int) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%s (%s)", e.Attribute, e.Query.Filter.String()))
	t.AppendHeader(table.Row{"Value", "Count", "Share"})

	rows := e.Values
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	for i, v := range rows {
		t.AppendRow(table.Row{formatValue(v.Value), v.Count, fmt.Sprintf("%.2f%%", e.Share(i)*100)})
	}
	if hidden := len(e.Values) - len(rows); hidden > 0 {
		t.AppendRow(table.Row{fmt.Sprintf("... %d more", hidden), "", ""})
	}
	t.AppendFooter(table.Row{"Total", e.TotalCount, ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleLight)
	return t.Render()
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}
