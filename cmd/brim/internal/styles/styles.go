package styles

import "github.com/charmbracelet/lipgloss"

// GitHub terminal light theme palette.
var (
	ColorFg      = lipgloss.Color("#24292f") // primary foreground
	ColorMuted   = lipgloss.Color("#656d76") // muted/dim text
	ColorAccent  = lipgloss.Color("#0969da") // accent blue
	ColorError   = lipgloss.Color("#cf222e") // error red
	ColorSuccess = lipgloss.Color("#1a7f37") // success green
	ColorWarning = lipgloss.Color("#9a6700") // warning amber
	ColorSubtle  = lipgloss.Color("#d0d7de") // borders
)

// Centralized style definitions for the TUI.
var (
	// Tab strip.
	TabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(ColorMuted)

	ActiveTabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Underline(true).
			Foreground(ColorAccent)

	TabGapStyle = lipgloss.NewStyle().Foreground(ColorSubtle)

	// Address bar.
	FocusedBorder = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorAccent)
	BlurredBorder = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorSubtle)
	NavOnStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorFg)
	NavOffStyle   = lipgloss.NewStyle().Foreground(ColorSubtle)
	ZoomStyle     = lipgloss.NewStyle().Foreground(ColorWarning)

	// Page area.
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorFg)
	URLStyle     = lipgloss.NewStyle().Foreground(ColorAccent).Underline(true)
	LoadingStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	LoadedStyle  = lipgloss.NewStyle().Foreground(ColorSuccess)

	// Error block style.
	ErrorBlockStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(ColorError).
			Foreground(ColorError)

	// General utility styles.
	DimStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	NoticeStyle = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
)
