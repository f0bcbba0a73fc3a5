// Package theme provides the Lip Gloss color palette and reusable styles
// for the Ripple TUI. It is a leaf package with no internal imports to
// avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Connection colors.
var (
	ColorConnected    = lipgloss.Color("#22c55e")
	ColorConnecting   = lipgloss.Color("#d97706")
	ColorDisconnected = lipgloss.Color("#dc2626")
)

// Notification type colors.
var (
	ColorLike    = lipgloss.Color("#ec4899")
	ColorComment = lipgloss.Color("#3b82f6")
	ColorFollow  = lipgloss.Color("#a855f7")
	ColorMention = lipgloss.Color("#06b6d4")
	ColorSystem  = lipgloss.Color("#9ca3af")
)

// Text colors.
var (
	ColorUnread = lipgloss.Color("#f9fafb")
	ColorRead   = lipgloss.Color("#6b7280")
	ColorMuted  = lipgloss.Color("#4b5563")
	ColorAccent = lipgloss.Color("#8b5cf6")
	ColorDanger = lipgloss.Color("#dc2626")
)

// Reusable styles.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	UnreadStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorUnread)

	ReadStyle = lipgloss.NewStyle().
			Foreground(ColorRead)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorDanger)

	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("#1f2937"))

	BadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#111827")).
			Background(ColorAccent).
			Padding(0, 1)
)

// TypeColor returns the badge color for a notification type.
func TypeColor(notifType string) lipgloss.Color {
	switch notifType {
	case "like":
		return ColorLike
	case "comment", "reply":
		return ColorComment
	case "follow":
		return ColorFollow
	case "mention":
		return ColorMention
	default:
		return ColorSystem
	}
}
