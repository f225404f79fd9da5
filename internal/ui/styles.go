package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorWarning   = lipgloss.Color("214") // Orange
)

// SelectedItem style for the currently highlighted row.
var SelectedItem = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// NormalItem style for active rows.
var NormalItem = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 1)

// InactiveItem style for rows whose status is off.
var InactiveItem = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Padding(0, 1)

// ActiveBadge and InactiveBadge mark each row's status.
var (
	ActiveBadge   = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	InactiveBadge = lipgloss.NewStyle().Foreground(colorMuted)
)

// PendingBadge marks a row with a mutation in flight.
var PendingBadge = lipgloss.NewStyle().
	Foreground(colorWarning)

// AttrStyle for attribute columns.
var AttrStyle = lipgloss.NewStyle().
	Foreground(colorSecondary)

// TabActive and TabInactive render the screen tabs.
var (
	TabActive = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(colorPrimary).
			Padding(0, 2)

	TabInactive = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Background(lipgloss.Color("236")).
			Padding(0, 2)
)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 1)

// NoticeStyle for transient messages such as mutation outcomes.
var NoticeStyle = lipgloss.NewStyle().
	Foreground(colorWarning).
	Padding(0, 1)

// ConfirmStyle for the delete confirmation prompt.
var ConfirmStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("124")).
	Bold(true).
	Padding(0, 1)

// HelpStyle for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// FilterBar style for the search and filter bar.
var FilterBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("240")).
	Padding(0, 1)

// FilterBarPrompt style for the "/" prompt.
var FilterBarPrompt = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// FilterBarCount style for filter labels and counts.
var FilterBarCount = lipgloss.NewStyle().
	Foreground(lipgloss.Color("252"))

// DebugPanel frames the debug overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(1, 2)

// DebugHeaderStyle for section headers inside the debug overlay.
var DebugHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)
