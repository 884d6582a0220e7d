package tui

import "github.com/charmbracelet/lipgloss"

var (
	yellow    = lipgloss.Color("#FACC15")
	paleGold  = lipgloss.Color("#FEF9C3")
	amber     = lipgloss.Color("#CA8A04")
	slate     = lipgloss.Color("#374151")
	dangerRed = lipgloss.Color("#F87171")

	titleStyle = lipgloss.NewStyle().Foreground(yellow).Bold(true)
	metaStyle  = lipgloss.NewStyle().Foreground(paleGold)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Italic(true)
	errorStyle = lipgloss.NewStyle().Foreground(dangerRed)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(yellow).
			Padding(1, 2)

	userMsgStyle = lipgloss.NewStyle().
			Background(amber).
			Foreground(lipgloss.Color("#000000")).
			Padding(0, 1)

	botLabelStyle = lipgloss.NewStyle().
			Background(slate).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1)

	typingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FEF08A")).Italic(true)
	linkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FEF08A"))
	dangerStyle = lipgloss.NewStyle().Foreground(dangerRed).Bold(true)
)
