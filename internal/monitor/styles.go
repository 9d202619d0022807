package monitor

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/muurk/wifiapp/internal/wifiapp"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - connected
	ErrorColor   = lipgloss.Color("#FF5555") // Red - failures
	WarningColor = lipgloss.Color("#FFA500") // Orange - in progress
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(PrimaryColor).
			Bold(true).
			Padding(0, 1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(1)

	keyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(12)

	valueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	sectionStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Bold(true).
			MarginTop(1)

	eventTimeStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	noticeStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			MarginTop(1)
)

// stateStyle colors a state by how healthy it is.
func stateStyle(s wifiapp.State) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch s {
	case wifiapp.StateConnected:
		return base.Foreground(SuccessColor)
	case wifiapp.StateConnecting, wifiapp.StateAwaitingCredentials, wifiapp.StateDisconnecting:
		return base.Foreground(WarningColor)
	default:
		return base.Foreground(MutedColor)
	}
}

func boxStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width-2).
		Padding(0, 1)
}

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	return clampWidth(width, err)
}

func clampWidth(width int, err error) int {
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}
