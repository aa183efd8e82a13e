// Package ui - Terminal user interface
// Colored CLI output: messages, tables, bill and price grid views.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// Colors for terminal output
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
)

// Writer is the UI output destination
type Writer struct {
	out       io.Writer
	noColor   bool
	verbosity int
}

// NewWriter creates a UI writer
func NewWriter(out io.Writer, noColor bool) *Writer {
	if out == nil {
		out = os.Stdout
	}
	return &Writer{
		out:       out,
		noColor:   noColor,
		verbosity: 1,
	}
}

// SetVerbosity sets output verbosity (0=quiet, 1=normal, 2=verbose)
func (w *Writer) SetVerbosity(level int) {
	w.verbosity = level
}

// color applies color if enabled
func (w *Writer) color(c, text string) string {
	if w.noColor || c == "" {
		return text
	}
	return c + text + Reset
}

// Println writes a line with newline
func (w *Writer) Println(format string, args ...interface{}) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Header prints a section header
func (w *Writer) Header(title string) {
	w.Println("")
	w.Println("%s", w.color(Bold+Cyan, "━━━ "+title+" ━━━"))
	w.Println("")
}

// SubHeader prints a subsection header
func (w *Writer) SubHeader(title string) {
	w.Println("%s", w.color(Bold, "▸ "+title))
}

// Success prints a success message
func (w *Writer) Success(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	w.Println("%s%s", w.color(Green, "✓ "), msg)
}

// Warning prints a warning
func (w *Writer) Warning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	w.Println("%s%s", w.color(Yellow, "⚠ "), msg)
}

// Error prints an error
func (w *Writer) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	w.Println("%s%s", w.color(Red, "✗ "), msg)
}

// Info prints an info message
func (w *Writer) Info(format string, args ...interface{}) {
	if w.verbosity < 1 {
		return
	}
	msg := fmt.Sprintf(format, args...)
	w.Println("%s%s", w.color(Blue, "ℹ "), msg)
}

// Debug prints a debug message
func (w *Writer) Debug(format string, args ...interface{}) {
	if w.verbosity < 2 {
		return
	}
	msg := fmt.Sprintf(format, args...)
	w.Println("%s", w.color(Dim, "  "+msg))
}

// Table renders a table
type Table struct {
	w       *Writer
	headers []string
	rows    [][]string
	colors  [][]string
	align   []bool
	widths  []int
}

// NewTable creates a table
func (w *Writer) NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	return &Table{
		w:       w,
		headers: headers,
		rows:    [][]string{},
		align:   make([]bool, len(headers)),
		widths:  widths,
	}
}

// AlignRight right-aligns the given columns
func (t *Table) AlignRight(cols ...int) *Table {
	for _, c := range cols {
		if c >= 0 && c < len(t.align) {
			t.align[c] = true
		}
	}
	return t
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) {
	t.AddColoredRow(nil, cells...)
}

// AddColoredRow adds a row with a color per column (empty means none)
func (t *Table) AddColoredRow(colors map[int]string, cells ...string) {
	// Pad or truncate cells to match header count
	row := make([]string, len(t.headers))
	rowColors := make([]string, len(t.headers))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		}
		rowColors[i] = colors[i]
		if n := utf8.RuneCountInString(row[i]); n > t.widths[i] {
			t.widths[i] = n
		}
	}
	t.rows = append(t.rows, row)
	t.colors = append(t.colors, rowColors)
}

func (t *Table) pad(i int, s string) string {
	gap := t.widths[i] - utf8.RuneCountInString(s)
	if gap <= 0 {
		return s
	}
	if t.align[i] {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// Render prints the table
func (t *Table) Render() {
	header := make([]string, len(t.headers))
	for i, h := range t.headers {
		header[i] = t.pad(i, h)
	}
	t.w.Println("%s", t.w.color(Bold, strings.Join(header, " │ ")))

	// Separator
	sep := make([]string, len(t.widths))
	for i, w := range t.widths {
		sep[i] = strings.Repeat("─", w)
	}
	t.w.Println("%s", strings.Join(sep, "─┼─"))

	// Rows
	for r, row := range t.rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = t.w.color(t.colors[r][i], t.pad(i, cell))
		}
		t.w.Println("%s", strings.Join(cells, " │ "))
	}
}
