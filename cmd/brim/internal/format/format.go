// Package format holds the text helpers of the brim frontend: markdown
// rendering for the home page and width-aware label shortening.
package format

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/mattn/go-runewidth"
)

// IsDarkBG is set once before bubbletea starts (in main.go) so that glamour
// never issues its own OSC 11 query while the program is running.
var IsDarkBG bool

// NewTabLabel is shown for tabs whose title is empty.
const NewTabLabel = "New Tab"

// mdRenderer renders markdown to terminal-formatted output.
var (
	mdRenderer      *glamour.TermRenderer
	mdRendererMu    sync.Mutex
	mdRendererWidth int
)

// InitMarkdownRenderer initializes the glamour renderer at the given width.
func InitMarkdownRenderer(width int) {
	if width <= 0 {
		width = 80
	}
	mdRendererMu.Lock()
	defer mdRendererMu.Unlock()
	if width == mdRendererWidth && mdRenderer != nil {
		return
	}
	// glamour.WithAutoStyle() queries the terminal and races with bubbletea's
	// input reader, so the style is picked from the pre-detected background.
	style := glamourstyles.LightStyleConfig
	if IsDarkBG {
		style = glamourstyles.DarkStyleConfig
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return
	}
	mdRenderer = r
	mdRendererWidth = width
}

// RenderMarkdown converts markdown text to terminal-formatted output. The
// text is returned unchanged when no renderer is initialized.
func RenderMarkdown(text string) string {
	mdRendererMu.Lock()
	r := mdRenderer
	mdRendererMu.Unlock()
	if r == nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// Truncate shortens s to at most width terminal cells, ending it with an
// ellipsis when cut. Newlines become spaces.
func Truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// TabLabel is the tab strip label for a session title.
func TabLabel(title string, width int) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = NewTabLabel
	}
	return Truncate(title, width)
}

// Percent formats a fraction in [0, 1] as a whole percentage.
func Percent(p float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(p*100)))
}
