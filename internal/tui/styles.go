package tui

import "github.com/charmbracelet/lipgloss"

// Color palette for consistent styling
var (
	ColorPrimary = lipgloss.Color("#7D56F4")

	// Status colors
	ColorSuccess = lipgloss.Color("#50FA7B")
	ColorError   = lipgloss.Color("#FF5F87")
	ColorWarning = lipgloss.Color("#FFB86C")
	ColorInfo    = lipgloss.Color("#8BE9FD")

	// Neutral colors
	ColorMuted   = lipgloss.Color("#6C7086")
	ColorTextDim = lipgloss.Color("#A6ADC8")

	ColorSpinner = lipgloss.Color("#89B4FA")
)

// Reusable styles
var (
	StyleTitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(ColorPrimary).
			Padding(0, 1).
			Bold(true)

	StyleSubtitle = lipgloss.NewStyle().
			Foreground(ColorTextDim).
			Italic(true)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleInfo = lipgloss.NewStyle().
			Foreground(ColorInfo)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	StyleHighlight = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	// Role prefixes of the chat transcript
	StyleUserRole = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Bold(true)

	StyleAssistantRole = lipgloss.NewStyle().
				Foreground(ColorPrimary).
				Bold(true)

	StyleNotice = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Italic(true)

	StyleSpinner = lipgloss.NewStyle().
			Foreground(ColorSpinner)
)

// Icons for different states
const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "!"
	IconArrow   = "→"
)

// SpinnerFrames for animation
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Role labels printed before each message
const (
	UserLabel      = "You"
	AssistantLabel = "Assistant"
)
