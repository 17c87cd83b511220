package monitor

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primary = lipgloss.Color("63")  // Purple/blue
	success = lipgloss.Color("78")  // Green
	warning = lipgloss.Color("214") // Orange
	failure = lipgloss.Color("196") // Red
	subtle  = lipgloss.Color("241") // Gray
	text    = lipgloss.Color("252") // Light gray

	titleStyle = lipgloss.NewStyle().
			Foreground(primary).
			Bold(true).
			MarginBottom(1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(subtle).
			Padding(0, 1).
			MarginRight(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(subtle)

	valueStyle = lipgloss.NewStyle().
			Foreground(text)

	okStyle = lipgloss.NewStyle().
		Foreground(success)

	warnStyle = lipgloss.NewStyle().
			Foreground(warning)

	errorStyle = lipgloss.NewStyle().
			Foreground(failure).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(subtle).
			MarginTop(1)
)
