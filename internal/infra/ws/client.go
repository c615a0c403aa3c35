package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SatoshiJr1/liveshop-link-sub003/internal/domain"
)

// ─── Client Reconnection Manager ────────────────────────────────────────────
// State machine: disconnected → connecting → connected → authenticated, with
// a transition back to connecting on any drop until Close is called.
//
// Backoff policy (canonical, replacing the inconsistent constants scattered
// across the original client scripts): delay for attempt n is min(base*n, cap)
// with base 1s and cap 5s. Attempts are unbounded with capped delay; after
// OfflineAfter consecutive failures the client surfaces a persistent-offline
// status and keeps retrying.

// Status is the client connection state.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusAuthenticated
	StatusOffline // persistent failure surfaced to the caller; retries continue
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusAuthenticated:
		return "authenticated"
	case StatusOffline:
		return "offline"
	default:
		return "disconnected"
	}
}

// ClientConfig controls reconnection behavior.
type ClientConfig struct {
	BaseDelay    time.Duration // backoff base (default 1s)
	MaxDelay     time.Duration // backoff cap (default 5s)
	OfflineAfter int           // consecutive failures before StatusOffline (default 10)
	WriteTimeout time.Duration
}

// DefaultClientConfig returns the canonical reconnection policy.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseDelay:    1 * time.Second,
		MaxDelay:     5 * time.Second,
		OfflineAfter: 10,
		WriteTimeout: 10 * time.Second,
	}
}

// Client maintains a persistent authenticated connection to the server,
// reconnecting with linear capped backoff. Event handlers are registered
// through Subscribe and survive reconnects; unsubscribing removes the
// handler so listeners never leak across reconnect cycles.
type Client struct {
	url    string
	token  string
	cfg    ClientConfig
	dialer *websocket.Dialer

	mu       sync.Mutex
	status   Status
	attempts int
	subs     map[string]map[int]func(domain.Event)
	nextSub  int
	onStatus func(Status)
	closed   bool
	closeCh  chan struct{}
	wc       *websocket.Conn
}

// NewClient creates a client for the given websocket URL and seller token.
func NewClient(wsURL, token string, cfg ClientConfig) *Client {
	if cfg.BaseDelay <= 0 {
		cfg = DefaultClientConfig()
	}
	return &Client{
		url:     wsURL,
		token:   token,
		cfg:     cfg,
		dialer:  websocket.DefaultDialer,
		subs:    make(map[string]map[int]func(domain.Event)),
		closeCh: make(chan struct{}),
	}
}

// Subscribe registers a handler for an event type and returns its
// unsubscribe function.
func (c *Client) Subscribe(eventType string, fn func(domain.Event)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs[eventType] == nil {
		c.subs[eventType] = make(map[int]func(domain.Event))
	}
	id := c.nextSub
	c.nextSub++
	c.subs[eventType][id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs[eventType], id)
	}
}

// OnStatusChange registers a callback for state transitions.
func (c *Client) OnStatusChange(fn func(Status)) {
	c.mu.Lock()
	c.onStatus = fn
	c.mu.Unlock()
}

// Status returns the current connection state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Attempts returns the current consecutive failed attempt count.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Run connects and keeps the connection alive until ctx is done or Close is
// called. Returns domain.ErrClientClosed after an explicit Close.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.checkDone(ctx); err != nil {
			return err
		}

		c.setStatus(StatusConnecting)
		err := c.connectOnce(ctx)
		if err := c.checkDone(ctx); err != nil {
			return err
		}
		if err != nil {
			log.Printf("[client] connection lost: %v", err)
		}

		c.mu.Lock()
		c.attempts++
		attempt := c.attempts
		offline := c.cfg.OfflineAfter > 0 && attempt >= c.cfg.OfflineAfter
		c.mu.Unlock()

		if offline {
			c.setStatus(StatusOffline)
		} else {
			c.setStatus(StatusDisconnected)
		}

		delay := NextDelay(attempt, c.cfg.BaseDelay, c.cfg.MaxDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closeCh:
			return domain.ErrClientClosed
		case <-time.After(delay):
		}
	}
}

// Close explicitly disconnects. Any pending scheduled reconnect attempt is
// canceled and Run returns.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	wc := c.wc
	close(c.closeCh)
	c.mu.Unlock()

	if wc != nil {
		wc.Close()
	}
}

// connectOnce dials, authenticates, and pumps events until the connection
// drops. Returns the terminal error for this connection attempt.
func (c *Client) connectOnce(ctx context.Context) error {
	u, err := url.Parse(c.url)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()

	wc, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	c.mu.Lock()
	c.wc = wc
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.wc = nil
		c.mu.Unlock()
		wc.Close()
	}()

	c.setStatus(StatusConnected)

	// The server confirms the handshake with a "connected" envelope, or
	// closes with 1008 on a bad token.
	var first domain.Event
	if err := wc.ReadJSON(&first); err != nil {
		if websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
			return domain.ErrAuthFailed
		}
		return fmt.Errorf("await handshake ack: %w", err)
	}
	if first.Type != domain.EventConnected {
		return fmt.Errorf("unexpected handshake reply %q", first.Type)
	}

	c.mu.Lock()
	c.attempts = 0
	c.mu.Unlock()
	c.setStatus(StatusAuthenticated)

	// Request redelivery of notifications stored while we were away.
	syncEv, _ := domain.NewEvent(domain.EventSync, nil)
	if err := c.writeEvent(wc, syncEv); err != nil {
		return fmt.Errorf("request sync: %w", err)
	}

	for {
		var ev domain.Event
		if err := wc.ReadJSON(&ev); err != nil {
			return err
		}
		if ev.Type == domain.EventPing {
			pong, _ := domain.NewEvent(domain.EventPong, nil)
			c.writeEvent(wc, pong)
			continue
		}
		c.dispatch(ev)
	}
}

func (c *Client) writeEvent(wc *websocket.Conn, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	wc.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return wc.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) dispatch(ev domain.Event) {
	c.mu.Lock()
	handlers := make([]func(domain.Event), 0, len(c.subs[ev.Type]))
	for _, fn := range c.subs[ev.Type] {
		handlers = append(handlers, fn)
	}
	c.mu.Unlock()
	for _, fn := range handlers {
		fn(ev)
	}
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	changed := c.status != s
	c.status = s
	fn := c.onStatus
	c.mu.Unlock()
	if changed && fn != nil {
		fn(s)
	}
}

func (c *Client) checkDone(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closeCh:
		return domain.ErrClientClosed
	default:
		return nil
	}
}

// NextDelay returns the backoff delay for the given attempt:
// min(base*attempt, ceiling). Delays are non-decreasing and capped.
func NextDelay(attempt int, base, ceiling time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(attempt) * base
	if d > ceiling {
		return ceiling
	}
	return d
}
