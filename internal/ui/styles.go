package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorDanger    = lipgloss.Color("196") // Red
	colorWarn      = lipgloss.Color("214") // Amber
)

// HeaderStyle for the top title line.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// ModeBadge marks the current session mode in the header.
var ModeBadge = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Background(lipgloss.Color("236")).
	Padding(0, 1).
	MarginLeft(1)

// SidePanel frames the stage and emotion panels.
var SidePanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorMuted).
	Padding(0, 1)

// PanelTitle for section headers inside panels.
var PanelTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)

// ToggleActive and ToggleInactive render the view toggle tabs.
var (
	ToggleActive = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(colorPrimary).
			Padding(0, 1)

	ToggleInactive = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Padding(0, 1)

	ToggleDisabled = lipgloss.NewStyle().
			Foreground(lipgloss.Color("237")).
			Strikethrough(true).
			Padding(0, 1)
)

// StageLabel is the fixed-width stage name column.
var StageLabel = lipgloss.NewStyle().
	Width(11).
	Foreground(lipgloss.Color("252"))

// BarFill and BarEmpty draw distribution bars.
var (
	BarFill  = lipgloss.NewStyle().Foreground(colorPrimary)
	BarEmpty = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
)

// DeltaUp and DeltaDown color significant stage changes.
var (
	DeltaUp   = lipgloss.NewStyle().Foreground(colorSuccess)
	DeltaDown = lipgloss.NewStyle().Foreground(colorDanger)
)

// FinalStageStyle highlights the service's stage verdict.
var FinalStageStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorSuccess)

// FeedbackStyle for feedback prose.
var FeedbackStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("252")).
	Italic(true)

// Transcript bubbles.
var (
	UserBubble = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)

	BotBubble = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	PendingBubble = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Italic(true).
			Padding(0, 1)

	NoteStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)
)

// InputLabel and InputLabelFocused prefix each input field.
var (
	InputLabel = lipgloss.NewStyle().
			Width(9).
			Foreground(colorSecondary)

	InputLabelFocused = lipgloss.NewStyle().
				Width(9).
				Bold(true).
				Foreground(colorHighlight)
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
	Foreground(colorDanger).
	Bold(true).
	Padding(0, 1)

// NoticeStyle for expected, non-error conditions such as "not found yet".
var NoticeStyle = lipgloss.NewStyle().
	Foreground(colorWarn)

// PromptStyle for y/n confirmations.
var PromptStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("0")).
	Background(colorWarn).
	Padding(0, 1)

// DebugPanel frames the debug overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorHighlight).
	Padding(1, 2)

// DebugHeaderStyle for section headers in the debug overlay.
var DebugHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)
