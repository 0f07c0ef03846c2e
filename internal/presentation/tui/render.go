package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Render converts Markdown to styled terminal output, wrapped to the
// current terminal width. Non-terminal stdout falls back to a fixed
// width.
func Render(markdown string) (string, error) {
	width := 100
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to build renderer: %w", err)
	}
	return renderer.Render(markdown)
}

// Banner returns the styled startup banner.
func Banner(version string) string {
	p := termenv.ColorProfile()
	title := termenv.String("warroom").Foreground(p.Color("9")).Bold()
	return fmt.Sprintf("%s v%s - session coordinator\n", title, version)
}
