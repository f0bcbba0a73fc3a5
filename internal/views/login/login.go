// Package login renders the credential form shown while anonymous.
package login

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ripple-social/client/internal/theme"
)

// Model holds the login form state.
type Model struct {
	identifier textinput.Model
	password   textinput.Model
	focusPass  bool

	Err        string
	Submitting bool
	Width      int
}

// New creates the form with the identifier field focused.
func New() Model {
	ident := textinput.New()
	ident.Placeholder = "email or username"
	ident.CharLimit = 128
	ident.Focus()

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.CharLimit = 128
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'

	return Model{identifier: ident, password: pass}
}

// Values returns the entered credentials.
func (m Model) Values() (identifier, password string) {
	return strings.TrimSpace(m.identifier.Value()), m.password.Value()
}

// ToggleFocus moves focus between the two fields.
func (m *Model) ToggleFocus() {
	m.focusPass = !m.focusPass
	if m.focusPass {
		m.identifier.Blur()
		m.password.Focus()
	} else {
		m.password.Blur()
		m.identifier.Focus()
	}
}

// Reset clears the password and the error banner after a failed attempt.
func (m *Model) Reset() {
	m.password.SetValue("")
	m.Submitting = false
}

// Update feeds key events to the focused field.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focusPass {
		m.password, cmd = m.password.Update(msg)
	} else {
		m.identifier, cmd = m.identifier.Update(msg)
	}
	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render("Ripple — sign in"))
	b.WriteString("\n\n")
	b.WriteString(m.identifier.View())
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\n")

	switch {
	case m.Submitting:
		b.WriteString(theme.MutedStyle.Render("signing in..."))
	case m.Err != "":
		b.WriteString(theme.ErrorStyle.Render(m.Err))
	default:
		b.WriteString(theme.MutedStyle.Render("tab to switch · enter to sign in · ctrl+c to quit"))
	}

	form := lipgloss.NewStyle().Padding(1, 2).Render(b.String())
	if m.Width > 0 {
		return lipgloss.PlaceHorizontal(m.Width, lipgloss.Center, form)
	}
	return form
}
