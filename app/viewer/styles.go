package viewer

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("12")  // bright blue
	colorOK      = lipgloss.Color("10")  // bright green
	colorError   = lipgloss.Color("9")   // bright red
	colorDim     = lipgloss.Color("240") // gray
	colorBorder  = lipgloss.Color("238") // dark gray

	styleTitle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleCount = lipgloss.NewStyle().
			Bold(true)

	styleToggleOn = lipgloss.NewStyle().
			Foreground(colorOK)

	styleToggleOff = lipgloss.NewStyle().
			Foreground(colorDim)

	styleStatusOK = lipgloss.NewStyle().
			Foreground(colorOK).
			Bold(true)

	styleStatusErr = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	stylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	styleHelp = lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(0, 1)
)
