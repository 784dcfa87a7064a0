package inspector

import (
	"github.com/charmbracelet/lipgloss"
)

// Color constants
const (
	ColorActive   = "170" // Purple/magenta for the focused pane
	ColorInactive = "240" // Gray for the other pane
	ColorNormal   = "245" // Light gray for normal text
	ColorDim      = "241" // Dimmer gray
	ColorWarning  = "214" // Orange for headings
	ColorDanger   = "196" // Red for failed steps
	ColorSuccess  = "28"  // Green for completed steps
	ColorWhite    = "255" // White badge text
	ColorPrimary  = "33"  // Blue for the current step
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(ColorActive))

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(ColorInactive))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorWarning))

	colonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorInactive))

	paddingStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingRight(1)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorNormal))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorDim))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSuccess))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorDanger)).
			Bold(true)

	currentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorPrimary)).
			Bold(true)

	badgeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color(ColorSuccess)).
			Foreground(lipgloss.Color(ColorWhite)).
			Padding(0, 1).
			Bold(true)
)
