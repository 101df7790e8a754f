package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// isTTYWriter reports whether w is a terminal.
func isTTYWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// colorEnabled resolves the --color flag for w.
func (f *configFlags) colorEnabled(w io.Writer) (bool, error) {
	switch f.color {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		return isTTYWriter(w), nil
	default:
		return false, fmt.Errorf("invalid --color %q: want auto, always or never", f.color)
	}
}

// newRenderer returns a lipgloss renderer for w with colors forced on or off.
func newRenderer(w io.Writer, color bool) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}

// highlight writes data with syntax highlighting. Unknown styles fall back
// to chroma's default style.
func highlight(w io.Writer, data []byte, lexer, style string) error {
	return quick.Highlight(w, string(data), lexer, "terminal256", style)
}

// table renders aligned columns. Widths are measured in terminal cells so
// that wide symbols do not break the alignment.
type table struct {
	header []string
	rows   [][]string

	// style, when set, styles a body cell.
	style func(row, col int) lipgloss.Style
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) widths() []int {
	widths := make([]int, len(t.header))
	for col, h := range t.header {
		widths[col] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for col, cell := range row {
			if col < len(widths) {
				widths[col] = max(widths[col], runewidth.StringWidth(cell))
			}
		}
	}
	return widths
}

func (t *table) render(w io.Writer, r *lipgloss.Renderer) error {
	widths := t.widths()
	headerStyle := r.NewStyle().Bold(true)

	line := func(cells []string, styleOf func(col int) lipgloss.Style) string {
		var b strings.Builder
		for col, cell := range cells {
			if col > 0 {
				b.WriteString("  ")
			}
			if col < len(cells)-1 && col < len(widths) {
				cell = runewidth.FillRight(cell, widths[col])
			}
			b.WriteString(styleOf(col).Render(cell))
		}
		return strings.TrimRight(b.String(), " ") + "\n"
	}

	if _, err := io.WriteString(w, line(t.header, func(int) lipgloss.Style { return headerStyle })); err != nil {
		return err
	}
	for i, row := range t.rows {
		styleOf := func(col int) lipgloss.Style {
			if t.style != nil {
				return t.style(i, col)
			}
			return r.NewStyle()
		}
		if _, err := io.WriteString(w, line(row, styleOf)); err != nil {
			return err
		}
	}
	return nil
}
