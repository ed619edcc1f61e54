package helpers

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders answers for the terminal. It falls back to the raw
// text when rendering fails.
type Markdown struct {
	renderer *glamour.TermRenderer
}

// NewMarkdown creates a renderer wrapping at wordWrap columns. NO_COLOR in
// the environment disables styling the same way noColor does.
func NewMarkdown(noColor bool, wordWrap int) (*Markdown, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(wordWrap)}
	if noColor || os.Getenv("NO_COLOR") != "" {
		opts = append(opts, glamour.WithStylePath("notty"))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return &Markdown{renderer: r}, nil
}

// Render renders text, trimming the renderer's surrounding blank lines.
func (m *Markdown) Render(text string) string {
	if m == nil || m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
