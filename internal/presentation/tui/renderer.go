package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// MarkdownFunc turns markdown into terminal output.
type MarkdownFunc func(string) (string, error)

// NewRenderer returns a function that renders markdown using glamour.
// A zero width lets glamour pick its default word wrap.
func NewRenderer(width int) MarkdownFunc {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return plainMarkdown
	}
	return r.Render
}

func plainMarkdown(s string) (string, error) {
	return s, nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of f, or 0 when it is unknown.
func Width(f *os.File) int {
	if !IsTerminal(f) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}
