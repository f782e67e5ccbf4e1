package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	// Similarity colors
	SimilarityHigh   = lipgloss.Color("#95E1A3") // Green
	SimilarityMedium = lipgloss.Color("#FFE66D") // Yellow
	SimilarityLow    = lipgloss.Color("#6C757D") // Gray

	// Status colors
	Matched = lipgloss.Color("#95E1A3") // Green
	Single  = lipgloss.Color("#FFB347") // Orange
	Danger  = lipgloss.Color("#FF6B6B") // Red

	// UI colors
	Primary   = lipgloss.Color("#4ECDC4")
	Surface   = lipgloss.Color("#16213e")
	TextMuted = lipgloss.Color("#888888")
	Border    = lipgloss.Color("#333333")
)

// Styles
var (
	// Header
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	// List
	ListStyle = lipgloss.NewStyle().
			Padding(1, 2)

	ItemStyle = lipgloss.NewStyle().
			Padding(0, 1)

	ItemSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(Surface).
				Bold(true)

	MatchedStyle = lipgloss.NewStyle().Foreground(Matched)
	SingleStyle  = lipgloss.NewStyle().Foreground(Single)

	// Notice shows errors until dismissed
	NoticeStyle = lipgloss.NewStyle().
			Foreground(Danger).
			Bold(true).
			Padding(0, 1)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(Border)

	// Modal
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	// Help text
	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted)
)

// SimilarityStyle picks a color for a similarity percentage
func SimilarityStyle(percent int) lipgloss.Style {
	switch {
	case percent >= 80:
		return lipgloss.NewStyle().Foreground(SimilarityHigh).Bold(true)
	case percent >= 50:
		return lipgloss.NewStyle().Foreground(SimilarityMedium)
	default:
		return lipgloss.NewStyle().Foreground(SimilarityLow)
	}
}

// FormatStatus renders the matched flag of a sock
func FormatStatus(matched bool) string {
	if matched {
		return MatchedStyle.Render("paired")
	}
	return SingleStyle.Render("single")
}
