// Package view renders cached collections into tables for the CLI and
// the TUI, and exports them to CSV/XLSX.
package view

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/netvigil/ispadm/config"
)

var (
	headerCellStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			PaddingRight(1)

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			PaddingRight(1)

	altRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Background(lipgloss.Color("236")).
			PaddingRight(1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

// Column declares one table column. A non-nil Less makes the column
// explicitly sortable; without it the table never reorders rows.
type Column[T any] struct {
	Key    string
	Header string
	Render func(T) string
	Less   func(a, b T) bool
}

// Table renders a collection with column definitions. Rows keep server
// order unless an explicitly sortable column was selected, in which case
// the sort choice persists in the preferences file across runs.
type Table[T any] struct {
	resource string
	cols     []Column[T]
	prefs    *config.Preferences

	sortKey  string
	sortDesc bool
}

// New builds a table for resource, restoring any remembered sort order.
func New[T any](resource string, cols []Column[T], prefs *config.Preferences) *Table[T] {
	t := &Table[T]{resource: resource, cols: cols, prefs: prefs}
	if prefs != nil {
		if col, dir, ok := prefs.SortOrder(resource); ok {
			if c := t.column(col); c != nil && c.Less != nil {
				t.sortKey = col
				t.sortDesc = dir == "desc"
			}
		}
	}
	return t
}

func (t *Table[T]) column(key string) *Column[T] {
	for i := range t.cols {
		if t.cols[i].Key == key {
			return &t.cols[i]
		}
	}
	return nil
}

// SortBy selects an explicit sort column. Columns without Less refuse.
func (t *Table[T]) SortBy(key string, desc bool) error {
	c := t.column(key)
	if c == nil {
		return fmt.Errorf("no column %q", key)
	}
	if c.Less == nil {
		return fmt.Errorf("column %q is not sortable", key)
	}
	t.sortKey = key
	t.sortDesc = desc
	if t.prefs != nil {
		dir := "asc"
		if desc {
			dir = "desc"
		}
		t.prefs.SetSortOrder(t.resource, key, dir)
	}
	return nil
}

// Rows returns the rows to render: server order untouched, or a sorted
// copy when an explicit sort is active.
func (t *Table[T]) Rows(data []T) []T {
	if t.sortKey == "" {
		return data
	}
	c := t.column(t.sortKey)
	if c == nil || c.Less == nil {
		return data
	}
	out := make([]T, len(data))
	copy(out, data)
	sort.SliceStable(out, func(i, j int) bool {
		if t.sortDesc {
			return c.Less(out[j], out[i])
		}
		return c.Less(out[i], out[j])
	})
	return out
}

// RenderPlain renders with tabwriter for plain CLI output. Loading and
// empty are distinct states: a still-loading list must not read as
// "no rows".
func (t *Table[T]) RenderPlain(data []T, loading bool) string {
	if loading {
		return "loading...\n"
	}
	rows := t.Rows(data)
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	headers := make([]string, len(t.cols))
	for i, c := range t.cols {
		headers[i] = strings.ToUpper(c.Header)
	}
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		cells := make([]string, len(t.cols))
		for i, c := range t.cols {
			cells[i] = c.Render(row)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
	if len(rows) == 0 {
		buf.WriteString("No rows.\n")
	}
	return buf.String()
}

// RenderStyled renders a lipgloss table for the TUI with zebra striping.
func (t *Table[T]) RenderStyled(data []T, width int, loading bool) string {
	if loading {
		return dimStyle.Render("  Loading...")
	}
	rows := t.Rows(data)
	if len(rows) == 0 {
		return dimStyle.Render("  No rows.")
	}

	colW := colWidth(width, len(t.cols))
	var cells []string
	for _, c := range t.cols {
		cells = append(cells, headerCellStyle.Width(colW).Render(truncate(strings.ToUpper(c.Header), colW-1)))
	}
	lines := []string{strings.Join(cells, "")}

	for i, row := range rows {
		style := rowStyle
		if i%2 == 0 {
			style = altRowStyle
		}
		cells = cells[:0]
		for _, c := range t.cols {
			cells = append(cells, style.Width(colW).Render(truncate(c.Render(row), colW-1)))
		}
		lines = append(lines, strings.Join(cells, ""))
	}
	return strings.Join(lines, "\n")
}

func colWidth(total, cols int) int {
	if cols == 0 {
		return total
	}
	w := total / cols
	if w < 6 {
		w = 6
	}
	return w
}

// truncate shortens to max runes, never splitting a multibyte character.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return string(runes[:1])
	}
	return string(runes[:max-1]) + "…"
}
