package cli

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors used in text output. Colors are dropped
// automatically when output is not a terminal.
type Theme struct {
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color
}

// DefaultTheme returns the default theme.
func DefaultTheme() Theme {
	return Theme{
		Primary: lipgloss.Color("12"),  // Blue
		Success: lipgloss.Color("10"),  // Green
		Warning: lipgloss.Color("11"),  // Yellow
		Error:   lipgloss.Color("9"),   // Red
		Muted:   lipgloss.Color("240"), // Gray
	}
}

var theme = DefaultTheme()

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(theme.Primary)
	mutedStyle  = lipgloss.NewStyle().Foreground(theme.Muted)
	filledStyle = lipgloss.NewStyle().Foreground(theme.Success)
	okStyle     = lipgloss.NewStyle().Foreground(theme.Success)
	badStyle    = lipgloss.NewStyle().Foreground(theme.Error)
	warnStyle   = lipgloss.NewStyle().Foreground(theme.Warning)
)
