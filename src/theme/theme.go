package theme

import "github.com/charmbracelet/lipgloss"

// Theme is the palette of the console trace.
type Theme struct {
	Header  lipgloss.Color
	Section lipgloss.Color
	Warning lipgloss.Color
	Muted   lipgloss.Color
}

// Default uses the basic ANSI palette so it follows the terminal's colors.
var Default = Theme{
	Header:  lipgloss.Color("12"),
	Section: lipgloss.Color("10"),
	Warning: lipgloss.Color("11"),
	Muted:   lipgloss.Color("8"),
}

// OrDefault fills unset colors from Default.
func (t Theme) OrDefault() Theme {
	if t.Header == "" {
		t.Header = Default.Header
	}
	if t.Section == "" {
		t.Section = Default.Section
	}
	if t.Warning == "" {
		t.Warning = Default.Warning
	}
	if t.Muted == "" {
		t.Muted = Default.Muted
	}
	return t
}
