package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// TableColumn defines a column in a table. Width counts terminal cells.
type TableColumn struct {
	Name  string
	Width int
	Align Alignment
}

// Alignment defines text alignment in a column.
type Alignment int

// Alignment constants.
const (
	AlignLeft Alignment = iota
	AlignRight
)

// maxColumnWidth caps auto-sized columns so long descriptions stay on one line.
const maxColumnWidth = 48

// Table provides styled table rendering.
type Table struct {
	w       io.Writer
	styles  *OutputStyles
	columns []TableColumn
}

// NewTable creates a new table with the given columns.
func NewTable(w io.Writer, columns []TableColumn) *Table {
	return &Table{w: w, styles: NewOutputStyles(), columns: columns}
}

// ColumnsFor sizes one left-aligned column per header to fit rows.
func ColumnsFor(headers []string, rows [][]string) []TableColumn {
	cols := make([]TableColumn, len(headers))
	for i, h := range headers {
		width := runewidth.StringWidth(h)
		for _, row := range rows {
			if i < len(row) {
				width = max(width, runewidth.StringWidth(row[i]))
			}
		}
		cols[i] = TableColumn{Name: h, Width: min(width, maxColumnWidth)}
	}
	return cols
}

// Render writes the header row and then rows.
func (t *Table) Render(rows [][]string) {
	t.WriteHeader()
	for _, row := range rows {
		t.WriteRow(row...)
	}
}

// WriteHeader writes the header row.
func (t *Table) WriteHeader() {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	_, _ = fmt.Fprintln(t.w, t.styles.Header.Render(t.format(names)))
}

// WriteRow writes a data row, truncating cells wider than their column.
func (t *Table) WriteRow(values ...string) {
	_, _ = fmt.Fprintln(t.w, t.format(values))
}

func (t *Table) format(values []string) string {
	var b strings.Builder
	for i, col := range t.columns {
		if i > 0 {
			b.WriteString("  ")
		}
		value := ""
		if i < len(values) {
			value = values[i]
		}
		b.WriteString(pad(value, col))
	}
	return strings.TrimRight(b.String(), " ")
}

// pad fits value into col.Width cells.
func pad(value string, col TableColumn) string {
	if col.Width <= 0 {
		return value
	}
	value = runewidth.Truncate(value, col.Width, "…")
	if col.Align == AlignRight {
		return runewidth.FillLeft(value, col.Width)
	}
	return runewidth.FillRight(value, col.Width)
}
