package tui

import "github.com/charmbracelet/lipgloss"

// Colors
var (
	// Supervisor state colors
	runningColor = lipgloss.Color("10") // Green
	waitingColor = lipgloss.Color("11") // Yellow
	idleColor    = lipgloss.Color("8")  // Gray

	// Event phase colors
	startColor = lipgloss.Color("10") // Green
	exitColor  = lipgloss.Color("11") // Yellow
	waitColor  = lipgloss.Color("14") // Cyan

	// UI colors
	headerBg   = lipgloss.Color("235")
	statusBg   = lipgloss.Color("236")
	helpBg     = lipgloss.Color("234")
	errorColor = lipgloss.Color("9")
	dimColor   = lipgloss.Color("8")
)

// Styles
var (
	// Supervisor state styles
	runningStyle = lipgloss.NewStyle().
			Foreground(runningColor).
			Bold(true)

	waitingStyle = lipgloss.NewStyle().
			Foreground(waitingColor)

	idleStyle = lipgloss.NewStyle().
			Foreground(idleColor)

	// Phase styles for event lines
	startStyle = lipgloss.NewStyle().Foreground(startColor)
	exitStyle  = lipgloss.NewStyle().Foreground(exitColor)
	waitStyle  = lipgloss.NewStyle().Foreground(waitColor)

	// Unexpected exits and failed starts
	failureStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	// Header style
	headerStyle = lipgloss.NewStyle().
			Background(headerBg).
			Padding(0, 1).
			MarginBottom(1)

	// Status bar style
	statusStyle = lipgloss.NewStyle().
			Background(statusBg).
			Padding(0, 1)

	// Help overlay style
	helpStyle = lipgloss.NewStyle().
			Background(helpBg).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	// Error indicator style
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(errorColor).
			Bold(true)

	// Dim style for timestamps
	dimStyle = lipgloss.NewStyle().
			Foreground(dimColor)
)
