// Package session owns authentication state: who the user is, whether a
// login is in flight, and the token pair that gates every authenticated
// call. All transitions go through the Controller; nothing else writes
// the vault.
package session

import (
	"context"
	"sync"

	"github.com/ripple-social/client/internal/api"
	"github.com/ripple-social/client/internal/vault"
)

// Status is the controller's state-machine position.
type Status int

const (
	StatusAnonymous Status = iota
	StatusAuthenticating
	StatusAuthenticated
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "error"
	}
}

// State is a snapshot of the session. User is non-nil exactly when Status
// is StatusAuthenticated.
type State struct {
	Status  Status
	User    *api.UserProfile
	Loading bool
	Err     string
}

// Authenticated reports whether a user is present.
func (s State) Authenticated() bool { return s.User != nil }

// AuthAPI is the slice of the REST client the controller needs.
type AuthAPI interface {
	Login(ctx context.Context, identifier, password string) (*api.LoginResponse, error)
	Register(ctx context.Context, p api.RegisterPayload) (*api.UserProfile, error)
	CurrentUser(ctx context.Context) (*api.UserProfile, error)
	Refresh(ctx context.Context, refreshToken string) (*api.TokenPair, error)
}

// Controller drives the session state machine.
//
// Overlapping Login/ResumeSession calls are not cancelled; instead each
// mutation stamps a generation and a call whose generation has been
// superseded discards its result instead of writing stale state.
type Controller struct {
	auth  AuthAPI
	vault *vault.Vault

	mu    sync.Mutex
	state State
	gen   uint64

	observers []func(State)
	rotated   []func()
}

// New creates a controller in the anonymous state.
func New(auth AuthAPI, v *vault.Vault) *Controller {
	return &Controller{auth: auth, vault: v}
}

// OnChange registers an observer called with a state snapshot after every
// transition. Observers run outside the controller's lock and must not
// block for long.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// OnTokenRotated registers a hook called after the access token changes
// while the session stays authenticated (a refresh). The realtime channel
// uses this to recycle its connection onto the new token.
func (c *Controller) OnTokenRotated(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rotated = append(c.rotated, fn)
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AccessToken returns the current access token, or "" when anonymous.
func (c *Controller) AccessToken() string {
	return c.vault.AccessToken()
}

// Login authenticates with the given credentials. On success the user and
// token pair are set atomically. On failure the error is recorded in the
// state for passive rendering AND returned so the caller can react —
// tokens are left untouched.
func (c *Controller) Login(ctx context.Context, identifier, password string) error {
	gen := c.begin()

	resp, err := c.auth.Login(ctx, identifier, password)

	c.mu.Lock()
	if gen != c.gen {
		// Superseded by a newer call or a logout; drop the result.
		c.mu.Unlock()
		return err
	}
	if err != nil {
		c.state = State{Status: StatusError, Err: err.Error()}
		c.mu.Unlock()
		c.notify()
		return err
	}
	c.vault.Store(vault.TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	})
	c.state = State{Status: StatusAuthenticated, User: resp.User}
	c.mu.Unlock()
	c.notify()
	return nil
}

// Register creates an account and then logs in with the new credentials.
func (c *Controller) Register(ctx context.Context, p api.RegisterPayload) error {
	gen := c.begin()

	_, err := c.auth.Register(ctx, p)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return err
	}
	if err != nil {
		c.state = State{Status: StatusError, Err: err.Error()}
		c.mu.Unlock()
		c.notify()
		return err
	}
	c.mu.Unlock()

	return c.Login(ctx, p.Email, p.Password)
}

// ResumeSession restores an authenticated session from a persisted access
// token. It is a no-op when no token is present. A failed resume is
// destructive: user and both tokens are cleared, because a token the
// server rejects must not linger.
func (c *Controller) ResumeSession(ctx context.Context) error {
	if c.vault.AccessToken() == "" {
		return nil
	}
	gen := c.begin()

	user, err := c.auth.CurrentUser(ctx)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return err
	}
	if err != nil {
		c.vault.Clear()
		c.state = State{Status: StatusAnonymous}
		c.mu.Unlock()
		c.notify()
		return err
	}
	c.state = State{Status: StatusAuthenticated, User: user}
	c.mu.Unlock()
	c.notify()
	return nil
}

// EnsureFresh refreshes the token pair when the access token is inside
// its proactive-refresh window. A rejected refresh token ends the session
// the same way a failed resume does; a network failure leaves everything
// in place for a later retry.
func (c *Controller) EnsureFresh(ctx context.Context) error {
	if !c.vault.ShouldRefresh() {
		return nil
	}
	pair := c.vault.Read()
	if pair.RefreshToken == "" {
		return nil
	}

	rotated, err := c.auth.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		if api.IsAuth(err) {
			c.Logout()
		}
		return err
	}

	c.vault.Store(vault.TokenPair{
		AccessToken:  rotated.AccessToken,
		RefreshToken: rotated.RefreshToken,
	})
	c.notifyRotated()
	return nil
}

// Logout clears the session locally and synchronously. It never calls the
// server, so it has no failure path. Any in-flight Login/ResumeSession is
// superseded and its result will be discarded.
func (c *Controller) Logout() {
	c.mu.Lock()
	c.gen++
	c.vault.Clear()
	c.state = State{Status: StatusAnonymous}
	c.mu.Unlock()
	c.notify()
}

// begin stamps a new generation and moves to authenticating.
func (c *Controller) begin() uint64 {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.state = State{Status: StatusAuthenticating, Loading: true}
	c.mu.Unlock()
	c.notify()
	return gen
}

func (c *Controller) notify() {
	c.mu.Lock()
	state := c.state
	observers := make([]func(State), len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()
	for _, fn := range observers {
		fn(state)
	}
}

func (c *Controller) notifyRotated() {
	c.mu.Lock()
	rotated := make([]func(), len(c.rotated))
	copy(rotated, c.rotated)
	c.mu.Unlock()
	for _, fn := range rotated {
		fn()
	}
}
