// Package ui renders batch progress and summaries for the terminal
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fumiya-kume/secpatch/internal/types"
)

// Theme defines colors and styles for the UI
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Surface   lipgloss.Color

	// Status colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	Text      lipgloss.Color
	TextMuted lipgloss.Color
	Border    lipgloss.Color

	// Progress gradient ends
	ProgressFrom string
	ProgressTo   string

	Styles ThemeStyles
}

// ThemeStyles contains pre-configured lipgloss styles
type ThemeStyles struct {
	Title lipgloss.Style
	Panel lipgloss.Style
	Label lipgloss.Style
	Value lipgloss.Style
	Muted lipgloss.Style
	Code  lipgloss.Style

	StatusInfo    lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusWarning lipgloss.Style
	StatusError   lipgloss.Style
}

// NewDarkTheme creates a dark theme
func NewDarkTheme() Theme {
	theme := Theme{
		Primary:   lipgloss.Color("#7c3aed"), // Purple
		Secondary: lipgloss.Color("#10b981"), // Green
		Accent:    lipgloss.Color("#f59e0b"), // Amber
		Surface:   lipgloss.Color("#374151"),

		Success: lipgloss.Color("#10b981"),
		Warning: lipgloss.Color("#f59e0b"),
		Error:   lipgloss.Color("#ef4444"),
		Info:    lipgloss.Color("#3b82f6"),

		Text:      lipgloss.Color("#f9fafb"),
		TextMuted: lipgloss.Color("#9ca3af"),
		Border:    lipgloss.Color("#4b5563"),

		ProgressFrom: "#7c3aed",
		ProgressTo:   "#10b981",
	}

	theme.Styles = createThemeStyles(theme)
	return theme
}

// NewLightTheme creates a light theme
func NewLightTheme() Theme {
	theme := Theme{
		Primary:   lipgloss.Color("#5b21b6"),
		Secondary: lipgloss.Color("#059669"),
		Accent:    lipgloss.Color("#d97706"),
		Surface:   lipgloss.Color("#f9fafb"),

		Success: lipgloss.Color("#059669"),
		Warning: lipgloss.Color("#d97706"),
		Error:   lipgloss.Color("#dc2626"),
		Info:    lipgloss.Color("#2563eb"),

		Text:      lipgloss.Color("#111827"),
		TextMuted: lipgloss.Color("#6b7280"),
		Border:    lipgloss.Color("#d1d5db"),

		ProgressFrom: "#5b21b6",
		ProgressTo:   "#059669",
	}

	theme.Styles = createThemeStyles(theme)
	return theme
}

// ThemeFor picks a theme by configured name. "auto" follows the terminal
// background.
func ThemeFor(name string) Theme {
	switch name {
	case "light":
		return NewLightTheme()
	case "auto":
		if !lipgloss.HasDarkBackground() {
			return NewLightTheme()
		}
		return NewDarkTheme()
	default:
		return NewDarkTheme()
	}
}

func createThemeStyles(theme Theme) ThemeStyles {
	return ThemeStyles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary).
			Margin(0, 0, 1, 0),

		Panel: lipgloss.NewStyle().
			Foreground(theme.Text).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),

		Label: lipgloss.NewStyle().
			Foreground(theme.TextMuted).
			Width(18),

		Value: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Text),

		Muted: lipgloss.NewStyle().
			Foreground(theme.TextMuted),

		Code: lipgloss.NewStyle().
			Foreground(theme.Accent),

		StatusInfo: lipgloss.NewStyle().
			Foreground(theme.Info).
			Bold(true),

		StatusSuccess: lipgloss.NewStyle().
			Foreground(theme.Success).
			Bold(true),

		StatusWarning: lipgloss.NewStyle().
			Foreground(theme.Warning).
			Bold(true),

		StatusError: lipgloss.NewStyle().
			Foreground(theme.Error).
			Bold(true),
	}
}

// OutcomeStyle returns the style used for an outcome status
func (t Theme) OutcomeStyle(status types.OutcomeStatus) lipgloss.Style {
	switch status {
	case types.OutcomeApplied:
		return t.Styles.StatusSuccess
	case types.OutcomeNoRemediation:
		return t.Styles.StatusWarning
	case types.OutcomeUnrecognized:
		return t.Styles.StatusError
	default:
		return t.Styles.StatusInfo
	}
}

// OutcomeIcon returns an icon for the outcome status
func OutcomeIcon(status types.OutcomeStatus) string {
	switch status {
	case types.OutcomeApplied:
		return "✓"
	case types.OutcomeNoRemediation:
		return "⊘"
	case types.OutcomeUnrecognized:
		return "?"
	case types.OutcomeNotApplicable:
		return "○"
	default:
		return "·"
	}
}
