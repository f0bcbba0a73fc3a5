package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Client makes REST calls to the Ripple backend. The access token is read
// through tokenFn on every request so a rotated token is picked up without
// rebuilding the client.
type Client struct {
	baseURL string
	tokenFn func() string
	client  *http.Client
}

// NewClient creates a client targeting the given base URL
// (e.g. "http://127.0.0.1:5000"). tokenFn may be nil for a client that
// only performs unauthenticated calls.
func NewClient(baseURL string, tokenFn func() string) *Client {
	return &Client{
		baseURL: baseURL,
		tokenFn: tokenFn,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// --- Auth API ---

// Login exchanges credentials for a user profile and a token pair.
func (c *Client) Login(ctx context.Context, identifier, password string) (*LoginResponse, error) {
	body := map[string]string{"identifier": identifier, "password": password}
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. It does not log the user in.
func (c *Client) Register(ctx context.Context, p RegisterPayload) (*UserProfile, error) {
	var out struct {
		User *UserProfile `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", p, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// CurrentUser fetches the profile behind the current access token.
// The server answers with an auth-kind failure if the token is invalid
// or expired.
func (c *Client) CurrentUser(ctx context.Context) (*UserProfile, error) {
	var out struct {
		User *UserProfile `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Refresh exchanges a refresh token for a rotated token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body := map[string]string{"refreshToken": refreshToken}
	var out TokenPair
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Notification API ---

// List fetches one page of notifications, newest first.
func (c *Client) List(ctx context.Context, page, limit int, unreadOnly bool) (*NotificationPage, error) {
	path := "/api/notifications?page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)
	if unreadOnly {
		path += "&unread=true"
	}
	var out NotificationPage
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnreadCount fetches the server-side unread total.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/notifications/unread-count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// MarkRead marks one notification as read. Idempotent on retry.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/api/notifications/"+id+"/read", nil, nil)
}

// MarkAllRead marks every notification as read. Idempotent on retry.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/api/notifications/read-all", nil, nil)
}

// Delete removes one notification. Idempotent on retry.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notifications/"+id, nil, nil)
}

// do performs one request and decodes the response into out (when out is
// non-nil). Failures are returned as *Error with a classified kind.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: err.Error(), cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &Error{
			Status:  resp.StatusCode,
			Kind:    kindForStatus(resp.StatusCode),
			Message: errorMessage(resp.Body, resp.StatusCode),
		}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{
				Status:  resp.StatusCode,
				Kind:    KindServer,
				Message: "malformed response body",
				cause:   err,
			}
		}
	}
	return nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.tokenFn == nil {
		return
	}
	if token := c.tokenFn(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// errorMessage extracts the server's message field, falling back to the
// raw body or the status text.
func errorMessage(body io.Reader, status int) string {
	data, _ := io.ReadAll(io.LimitReader(body, 4096))
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	if len(data) > 0 {
		return string(data)
	}
	return http.StatusText(status)
}
