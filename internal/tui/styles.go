package tui

import "github.com/charmbracelet/lipgloss"

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	triggerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("25"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("25"))

	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	activeButtonStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("196"))

	disabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))
)
