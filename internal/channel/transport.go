package channel

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// DialConfig bounds the transport's connection attempts. Retrying lives
// here, at the transport layer; the manager itself never loops.
type DialConfig struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

const (
	defaultBaseDelay   = 1 * time.Second
	defaultMaxDelay    = 30 * time.Second
	defaultMaxAttempts = 5
)

func (c DialConfig) withDefaults() DialConfig {
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	return c
}

// dialWithRetry opens a websocket connection, retrying with capped
// exponential backoff up to cfg.MaxAttempts. It returns the last dial
// error once the attempts are exhausted.
func dialWithRetry(ctx context.Context, url string, cfg DialConfig) (*websocket.Conn, error) {
	delay := cfg.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if attempt == cfg.MaxAttempts {
			break
		}
		log.Printf("channel: dial %s failed: %v (retry %d/%d in %v)",
			url, err, attempt, cfg.MaxAttempts-1, delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, cfg.MaxDelay)
	}
	return nil, fmt.Errorf("dial %s: %w (after %d attempts)", url, lastErr, cfg.MaxAttempts)
}
