// Package app wires the session controller, event channel, and
// notification synchronizer into the root Bubble Tea model.
//
// Boot is two-phase: the persisted token's presence picks the provisional
// view synchronously (a perceived-latency optimization), then the async
// session resume resolves and its outcome is authoritative.
package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ripple-social/client/internal/api"
	"github.com/ripple-social/client/internal/channel"
	"github.com/ripple-social/client/internal/config"
	"github.com/ripple-social/client/internal/notify"
	"github.com/ripple-social/client/internal/session"
	"github.com/ripple-social/client/internal/views/feed"
	"github.com/ripple-social/client/internal/views/login"
	"github.com/ripple-social/client/internal/views/status"
)

// NotificationEvent is the inbound named event carrying a notification
// payload.
const NotificationEvent = "notification"

const requestTimeout = 15 * time.Second

type view int

const (
	viewLogin view = iota
	viewFeed
)

// Messages delivered through the event bridge or returned by commands.
type (
	sessionChangedMsg struct{ state session.State }
	channelChangedMsg struct {
		status channel.Status
		err    error
	}
	notificationMsg struct{ n api.Notification }
	feedUpdatedMsg  struct{ err error }
	loginResultMsg  struct{ err error }
	resumeDoneMsg   struct{ err error }
	reconcileTick   time.Time
)

// Model is the root Bubble Tea model.
type Model struct {
	ctrl *session.Controller
	ch   *channel.Manager
	sync *notify.Synchronizer
	cfg  *config.Config

	// events bridges observer callbacks (which run on component
	// goroutines) into the single-threaded tea update loop.
	events chan tea.Msg

	keys   KeyMap
	width  int
	height int
	view   view

	login     login.Model
	list      feed.Model
	statusBar status.Model
}

// New creates the root model and registers every cross-component hook:
// session changes gate the channel, token rotation recycles it, and the
// notification event feeds the synchronizer. The hooks are registered
// once; the channel's registry keeps the subscription alive across
// reconnects.
func New(ctrl *session.Controller, ch *channel.Manager, sync *notify.Synchronizer, cfg *config.Config) Model {
	events := make(chan tea.Msg, 32)

	ctrl.OnChange(func(st session.State) {
		events <- sessionChangedMsg{state: st}
	})
	ctrl.OnTokenRotated(ch.Recycle)

	ch.SetHooks(channel.Hooks{
		OnConnect: func() {
			events <- channelChangedMsg{status: channel.StatusConnected}
		},
		OnDisconnect: func(err error) {
			events <- channelChangedMsg{status: channel.StatusDisconnected, err: err}
		},
		OnError: func(err error) {
			events <- channelChangedMsg{status: channel.StatusError, err: err}
		},
	})
	ch.On(NotificationEvent, func(data json.RawMessage) {
		var n api.Notification
		if err := json.Unmarshal(data, &n); err != nil {
			return
		}
		events <- notificationMsg{n: n}
	})

	m := Model{
		ctrl:      ctrl,
		ch:        ch,
		sync:      sync,
		cfg:       cfg,
		events:    events,
		keys:      DefaultKeyMap(),
		login:     login.New(),
		list:      feed.New(),
		statusBar: status.New(),
	}

	// Boot phase 1: a persisted token gets the feed on screen right away,
	// rendered from the durable cache.
	if ctrl.AccessToken() != "" {
		m.view = viewFeed
		sync.LoadCached()
		m.list.SetSnapshot(sync.Snapshot())
		m.statusBar.Unread = m.list.Snapshot().UnreadCount
	}
	return m
}

// Init starts boot phase 2 (the authoritative session resume) and the
// reconciliation ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.resumeCmd(), m.tickCmd())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.login.Width = msg.Width
		m.list.Width = msg.Width
		m.list.Height = msg.Height - 2
		m.statusBar.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.view == viewLogin {
			return m.handleLoginKey(msg)
		}
		return m.handleFeedKey(msg)

	case sessionChangedMsg:
		return m.handleSessionChange(msg.state)

	case channelChangedMsg:
		m.statusBar.Channel = msg.status
		if msg.status == channel.StatusConnected {
			// Every (re)connect is a reconciliation point for the
			// unread counter.
			return m, tea.Batch(m.waitForEvent(), m.reconcileCmd())
		}
		return m, m.waitForEvent()

	case notificationMsg:
		m.sync.IngestRealtime(msg.n)
		m.refreshFeed()
		return m, m.waitForEvent()

	case feedUpdatedMsg:
		m.refreshFeed()
		return m, nil

	case loginResultMsg, resumeDoneMsg:
		// The session observer already drove the state transition.
		return m, nil

	case reconcileTick:
		cmds := []tea.Cmd{m.tickCmd()}
		if m.ctrl.State().Authenticated() {
			cmds = append(cmds, m.reconcileCmd())
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

// View renders the active view above the status bar.
func (m Model) View() string {
	var body string
	switch m.view {
	case viewLogin:
		body = m.login.View()
	default:
		body = m.list.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusBar.View())
}

func (m Model) handleSessionChange(st session.State) (tea.Model, tea.Cmd) {
	if st.User != nil {
		m.statusBar.Identity = st.User.Username
	} else {
		m.statusBar.Identity = ""
	}

	switch {
	case st.Authenticated():
		m.view = viewFeed
		m.login.Reset()
		m.login.Err = ""
		m.ch.Connect()
		return m, tea.Batch(m.waitForEvent(), m.fetchPageCmd(1))

	case st.Status == session.StatusError:
		m.view = viewLogin
		m.login.Reset()
		m.login.Err = st.Err
		return m, m.waitForEvent()

	case st.Status == session.StatusAuthenticating:
		m.login.Submitting = true
		return m, m.waitForEvent()

	default: // anonymous: logout or destructive resume failure
		m.view = viewLogin
		m.login.Reset()
		m.ch.Disconnect()
		m.sync.Clear()
		m.refreshFeed()
		return m, m.waitForEvent()
	}
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab", "shift+tab":
		m.login.ToggleFocus()
		return m, nil
	case "enter":
		identifier, password := m.login.Values()
		if identifier == "" || password == "" {
			return m, nil
		}
		m.login.Submitting = true
		return m, m.loginCmd(identifier, password)
	}
	var cmd tea.Cmd
	m.login, cmd = m.login.Update(msg)
	return m, cmd
}

func (m Model) handleFeedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.list.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.list.MoveDown()
	case key.Matches(msg, m.keys.MarkRead):
		if n, ok := m.list.Selected(); ok && !n.Read {
			return m, m.markReadCmd(n.ID)
		}
	case key.Matches(msg, m.keys.MarkAll):
		return m, m.markAllCmd()
	case key.Matches(msg, m.keys.Delete):
		if n, ok := m.list.Selected(); ok {
			return m, m.deleteCmd(n.ID)
		}
	case key.Matches(msg, m.keys.LoadMore):
		if snap := m.list.Snapshot(); snap.HasMore() {
			return m, m.fetchPageCmd(snap.Page + 1)
		}
	case key.Matches(msg, m.keys.Refresh):
		if m.ch.Status() == channel.StatusError {
			m.ch.Connect()
		}
		return m, tea.Batch(m.fetchPageCmd(1), m.reconcileCmd())
	case key.Matches(msg, m.keys.Logout):
		m.ctrl.Logout()
	}
	return m, nil
}

func (m *Model) refreshFeed() {
	snap := m.sync.Snapshot()
	m.list.SetSnapshot(snap)
	m.statusBar.Unread = snap.UnreadCount
}

// --- commands ---

// waitForEvent pulls the next observer event off the bridge. Every
// handler of a bridged message re-issues it.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg { return <-m.events }
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.cfg.Feed.ReconcileInterval, func(t time.Time) tea.Msg {
		return reconcileTick(t)
	})
}

func (m Model) resumeCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return resumeDoneMsg{err: m.ctrl.ResumeSession(ctx)}
	}
}

func (m Model) loginCmd(identifier, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return loginResultMsg{err: m.ctrl.Login(ctx, identifier, password)}
	}
}

func (m Model) fetchPageCmd(page int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return feedUpdatedMsg{err: m.sync.FetchPage(ctx, page, m.cfg.Feed.PageSize, false)}
	}
}

// reconcileCmd refreshes the token pair if it is due and then overwrites
// the unread counter with the server's value.
func (m Model) reconcileCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := m.ctrl.EnsureFresh(ctx); err != nil {
			return feedUpdatedMsg{err: err}
		}
		return feedUpdatedMsg{err: m.sync.FetchUnreadCount(ctx)}
	}
}

func (m Model) markReadCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return feedUpdatedMsg{err: m.sync.MarkRead(ctx, id)}
	}
}

func (m Model) markAllCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return feedUpdatedMsg{err: m.sync.MarkAllRead(ctx)}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return feedUpdatedMsg{err: m.sync.Remove(ctx, id)}
	}
}
