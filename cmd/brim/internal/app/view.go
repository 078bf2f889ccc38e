package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/germanamz/brim/cmd/brim/internal/format"
	"github.com/germanamz/brim/cmd/brim/internal/styles"
	"github.com/germanamz/brim/pkg/navstate"
	"github.com/germanamz/brim/pkg/session"
)

// addressChrome is the width the address bar needs around the text input:
// borders, padding, the navigation glyphs and the zoom readout.
const addressChrome = 20

// Tab labels are kept between these widths.
const (
	minTabLabel = 4
	maxTabLabel = 24
)

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	header := lipgloss.JoinVertical(lipgloss.Left,
		m.tabStrip(),
		m.addressBar(),
		m.loadLine(),
	)
	footer := lipgloss.JoinVertical(lipgloss.Left,
		m.noticeLine(),
		m.help.View(keyMap{m}),
	)

	bodyHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	body := lipgloss.NewStyle().
		Width(m.width).
		Height(bodyHeight).
		MaxHeight(bodyHeight).
		Render(m.page())

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) tabStrip() string {
	reg := m.browser.Registry()
	sessions := reg.Sessions()
	if len(sessions) == 0 {
		return styles.DimStyle.Render("no tabs")
	}

	labelWidth := min(max(m.width/len(sessions)-4, minTabLabel), maxTabLabel)
	cur := reg.Current()

	parts := make([]string, 0, len(sessions))
	for i, s := range sessions {
		label := format.TabLabel(s.Title(), labelWidth)
		if s.State().IsLoading {
			label = "◌ " + label
		}
		if i < 9 {
			label = fmt.Sprintf("%d %s", i+1, label)
		}

		style := styles.TabStyle
		if s == cur {
			style = styles.ActiveTabStyle
		}
		parts = append(parts, style.Render(label))
	}

	strip := strings.Join(parts, styles.TabGapStyle.Render("│"))
	return lipgloss.NewStyle().MaxWidth(m.width).Render(strip)
}

func (m *Model) addressBar() string {
	st := navstate.DefaultState()
	if cur := m.browser.Registry().Current(); cur != nil {
		st = cur.State()
	}

	nav := glyph("←", st.CanGoBack) + " " + glyph("→", st.CanGoForward) + " "
	if st.IsLoading {
		nav += glyph("✕", true)
	} else {
		nav += glyph("⟳", true)
	}

	zoom := ""
	if st.ZoomLevel != navstate.DefaultZoom {
		zoom = " " + styles.ZoomStyle.Render(format.Percent(st.ZoomLevel))
	}

	border := styles.BlurredBorder
	if m.input.Focused() {
		border = styles.FocusedBorder
	}

	return border.Width(max(m.width-2, 0)).Render(nav + "  " + m.input.View() + zoom)
}

func glyph(s string, on bool) string {
	if on {
		return styles.NavOnStyle.Render(s)
	}
	return styles.NavOffStyle.Render(s)
}

func (m *Model) loadLine() string {
	cur := m.browser.Registry().Current()
	if cur == nil || !cur.State().IsLoading {
		return ""
	}
	return m.progress.ViewAs(cur.State().Progress)
}

func (m *Model) page() string {
	cur := m.browser.Registry().Current()
	if cur == nil {
		return styles.DimStyle.Render("No tabs open. Press ctrl+t to open one.")
	}
	if cur.Target() == "" {
		return m.homePage()
	}
	return pageSummary(cur, m.width)
}

func pageSummary(s *session.Session, width int) string {
	lines := []string{
		styles.TitleStyle.Render(format.Truncate(s.Title(), width)),
		styles.URLStyle.Render(format.Truncate(s.Target(), width)),
		"",
	}

	nav := s.Nav()
	switch nav.Phase() {
	case navstate.PhaseLoading:
		lines = append(lines, styles.LoadingStyle.Render("Loading "+format.Percent(s.State().Progress)))
	case navstate.PhaseFinished:
		lines = append(lines, styles.LoadedStyle.Render("Loaded"))
	case navstate.PhaseFailed:
		msg := "Failed to load"
		if err := nav.LastError(); err != nil {
			msg += ": " + err.Error()
		}
		lines = append(lines, styles.ErrorBlockStyle.Render(msg))
	default:
		lines = append(lines, styles.DimStyle.Render("Idle"))
	}

	return strings.Join(lines, "\n")
}

func (m *Model) noticeLine() string {
	if m.notice == "" {
		return ""
	}
	return styles.NoticeStyle.Render(format.Truncate(m.notice, m.width))
}

// homePage renders the page shown for tabs that have not loaded anything. The
// rendering is cached per width.
func (m *Model) homePage() string {
	if m.home != "" && m.homeWidth == m.width {
		return m.home
	}
	format.InitMarkdownRenderer(m.width - 4)
	m.home = format.RenderMarkdown(homeMarkdown(keyMap{m}))
	m.homeWidth = m.width
	return m.home
}

func homeMarkdown(km help.KeyMap) string {
	var sb strings.Builder
	sb.WriteString("# Brim\n\n")
	sb.WriteString("Type an address or search terms and press **enter**.\n\n")
	sb.WriteString("| Key | Action |\n| --- | --- |\n")
	for _, col := range km.FullHelp() {
		for _, b := range col {
			if !b.Enabled() {
				continue
			}
			fmt.Fprintf(&sb, "| `%s` | %s |\n", b.Help().Key, b.Help().Desc)
		}
	}
	return sb.String()
}
