// Package status renders the one-line connection and identity bar.
package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/ripple-social/client/internal/channel"
	"github.com/ripple-social/client/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	Channel  channel.Status
	Identity string
	Unread   int
	Width    int
}

// New creates a status bar model.
func New() Model {
	return Model{Channel: channel.StatusDisconnected}
}

// View renders the status bar.
func (m Model) View() string {
	var conn string
	switch m.Channel {
	case channel.StatusConnected:
		conn = lipgloss.NewStyle().Foreground(theme.ColorConnected).Render("● live")
	case channel.StatusConnecting:
		conn = lipgloss.NewStyle().Foreground(theme.ColorConnecting).Render("◌ reconnecting...")
	case channel.StatusError:
		conn = lipgloss.NewStyle().Foreground(theme.ColorDisconnected).Render("○ offline (r to retry)")
	default:
		conn = lipgloss.NewStyle().Foreground(theme.ColorDisconnected).Render("○ offline")
	}

	left := conn
	if m.Identity != "" {
		left += theme.MutedStyle.Render("  @" + m.Identity)
	}

	right := ""
	if m.Unread > 0 {
		right = theme.BadgeStyle.Render(fmt.Sprintf("%d", m.Unread))
	}

	width := m.Width
	if width < 20 {
		width = 20
	}
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + lipgloss.NewStyle().Width(gap).Render("") + right
}
