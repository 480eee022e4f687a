package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
)

const wordWrap = 100

// RenderMarkdown renders a finished answer as styled markdown. theme is
// "dark" or "light"; anything else picks a style from the terminal.
func RenderMarkdown(w io.Writer, markdown, theme string) error {
	style := glamour.WithAutoStyle()
	if theme == "dark" || theme == "light" {
		style = glamour.WithStandardStyle(theme)
	}
	gr, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(wordWrap))
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := gr.Render(markdown)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = fmt.Fprint(w, out)
	return err
}
