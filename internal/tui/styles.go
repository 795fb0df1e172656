package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentPrimary   = lipgloss.Color("#4FB3D9")
	accentSecondary = lipgloss.Color("#F6AE2D")
	panelBorder     = lipgloss.Color("#2D6A80")
	mutedText       = lipgloss.Color("#8CA1AE")
	warningText     = lipgloss.Color("#FF6B6B")
	okText          = lipgloss.Color("#50E3C2")
)

var (
	headerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(accentPrimary)

	subHeaderStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(accentPrimary).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedText).
			Width(18)

	focusedLabelStyle = labelStyle.
				Foreground(accentSecondary).
				Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(warningText).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(accentSecondary)

	successStyle = lipgloss.NewStyle().
			Foreground(okText).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	disabledStyle = lipgloss.NewStyle().
			Foreground(mutedText).
			Strikethrough(true)
)
