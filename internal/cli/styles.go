// Package cli renders recommendations, insights and rule traces for the terminal.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette.
var (
	accent  = lipgloss.Color("#5B8DEF")
	calm    = lipgloss.Color("#4ECDC4")
	caution = lipgloss.Color("#FFE66D")
	alarm   = lipgloss.Color("#FF6B6B")
	note    = lipgloss.Color("#95E1D3")
	muted   = lipgloss.Color("#666666")
	rule    = lipgloss.Color("#333333")
)

var (
	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)

	// SuccessStyle marks low urgency and completed work.
	SuccessStyle = lipgloss.NewStyle().Foreground(calm)

	// WarningStyle marks medium urgency and warnings.
	WarningStyle = lipgloss.NewStyle().Foreground(caution)

	// ErrorStyle marks high urgency, blocks and failures.
	ErrorStyle = lipgloss.NewStyle().Foreground(alarm)

	// InfoStyle formats informational messages.
	InfoStyle = lipgloss.NewStyle().Foreground(note)

	// SubtleStyle formats secondary text such as ids and reasons.
	SubtleStyle = lipgloss.NewStyle().Foreground(muted)

	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().Bold(true)

	// BoxStyle frames a detail view.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(rule).
			Padding(1, 2)

	// LabelStyle aligns field labels in detail views.
	LabelStyle = lipgloss.NewStyle().Foreground(muted).Width(14)

	// TableHeaderStyle underlines table headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(rule)

	// TableCellStyle separates table columns.
	TableCellStyle = lipgloss.NewStyle().PaddingRight(2)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	RadarIcon   = "📡"
	ChartIcon   = "📊"
	BlockIcon   = "⛔"
)

func withIcon(style lipgloss.Style, icon, message string) string {
	return style.Render(icon + " " + message)
}

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string { return withIcon(SuccessStyle, SuccessIcon, message) }

// FormatError formats an error message with icon.
func FormatError(message string) string { return withIcon(ErrorStyle, ErrorIcon, message) }

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string { return withIcon(WarningStyle, WarningIcon, message) }

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string { return withIcon(InfoStyle, InfoIcon, message) }

// FormatTitle formats a section title.
func FormatTitle(title string) string { return withIcon(TitleStyle, RadarIcon, title) }

// RenderBox frames content under a title.
func RenderBox(title, content string) string {
	heading := TitleStyle.UnsetMargins().Render(title)
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, heading, content))
}
