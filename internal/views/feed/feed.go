// Package feed renders the notification list.
package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ripple-social/client/internal/api"
	"github.com/ripple-social/client/internal/notify"
	"github.com/ripple-social/client/internal/theme"
)

// Model holds the feed view state.
type Model struct {
	Width  int
	Height int

	snapshot notify.Snapshot
	cursor   int
}

// New creates an empty feed view.
func New() Model {
	return Model{}
}

// SetSnapshot replaces the rendered feed state, clamping the cursor.
func (m *Model) SetSnapshot(s notify.Snapshot) {
	m.snapshot = s
	if m.cursor >= len(s.Items) {
		m.cursor = len(s.Items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Snapshot returns the state currently rendered.
func (m Model) Snapshot() notify.Snapshot {
	return m.snapshot
}

// MoveUp moves the cursor toward newer notifications.
func (m *Model) MoveUp() {
	if m.cursor > 0 {
		m.cursor--
	}
}

// MoveDown moves the cursor toward older notifications.
func (m *Model) MoveDown() {
	if m.cursor < len(m.snapshot.Items)-1 {
		m.cursor++
	}
}

// Selected returns the notification under the cursor.
func (m Model) Selected() (api.Notification, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snapshot.Items) {
		return api.Notification{}, false
	}
	return m.snapshot.Items[m.cursor], true
}

// View renders the list.
func (m Model) View() string {
	var b strings.Builder

	header := theme.TitleStyle.Render("Notifications")
	if m.snapshot.UnreadCount > 0 {
		header += "  " + theme.BadgeStyle.Render(fmt.Sprintf("%d unread", m.snapshot.UnreadCount))
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	if len(m.snapshot.Items) == 0 {
		if m.snapshot.Loading {
			b.WriteString(theme.MutedStyle.Render("loading..."))
		} else {
			b.WriteString(theme.MutedStyle.Render("nothing here yet"))
		}
		return b.String()
	}

	visible := m.visibleRows()
	start, end := window(m.cursor, len(m.snapshot.Items), visible)
	for i := start; i < end; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}

	var footer []string
	if m.snapshot.HasMore() {
		footer = append(footer, fmt.Sprintf("page %d/%d · m for more", m.snapshot.Page, m.snapshot.TotalPages))
	}
	if m.snapshot.Err != "" {
		footer = append(footer, theme.ErrorStyle.Render(m.snapshot.Err))
	}
	if len(footer) > 0 {
		b.WriteString("\n")
		b.WriteString(theme.MutedStyle.Render(strings.Join(footer, "  ")))
	}
	return b.String()
}

func (m Model) renderRow(i int) string {
	n := m.snapshot.Items[i]

	marker := "  "
	if !n.Read {
		marker = lipgloss.NewStyle().Foreground(theme.TypeColor(n.Type)).Render("● ")
	}

	style := theme.ReadStyle
	if !n.Read {
		style = theme.UnreadStyle
	}
	line := marker + style.Render(n.Message) + theme.MutedStyle.Render("  "+relativeTime(n.CreatedAt))

	if i == m.cursor {
		return theme.SelectedStyle.Render("> " + line)
	}
	return "  " + line
}

func (m Model) visibleRows() int {
	// Header, blank line, and footer take roughly five rows.
	rows := m.Height - 5
	if rows < 3 {
		rows = 3
	}
	return rows
}

// window picks the slice of rows to render so the cursor stays visible.
func window(cursor, total, visible int) (start, end int) {
	if total <= visible {
		return 0, total
	}
	start = cursor - visible/2
	if start < 0 {
		start = 0
	}
	end = start + visible
	if end > total {
		end = total
		start = end - visible
	}
	return start, end
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
