// Package omni implements the duplex speech channel against an
// OpenAI-compatible realtime websocket endpoint, as served by Qwen-omni
// style deployments.
package omni

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/eidolonlabs/eidolon-core/core/speech"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type sessionState string

const (
	stateIdle       sessionState = "idle"
	stateConnecting sessionState = "connecting"
	stateActive     sessionState = "active"
	stateRotating   sessionState = "rotating"
	stateClosed     sessionState = "closed"
)

type reconnectPolicy struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int
}

// Client maintains at most one active realtime session, rotating it before
// the server-side lifetime bound and reconnecting with bounded backoff on
// transport failure.
type Client struct {
	endpoint string
	apiKey   string
	model    string

	lifetime  time.Duration
	headroom  time.Duration
	reconnect reconnectPolicy

	options speech.ListenOptions

	mu        sync.Mutex
	conn      *websocket.Conn
	sessionID string
	openedAt  time.Time
	state     sessionState

	baseCtx   context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

type ClientOption func(*Client)

func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithSessionLifetime bounds how long one realtime session is kept before
// rotation. headroom is how far before the bound rotation starts.
func WithSessionLifetime(lifetime, headroom time.Duration) ClientOption {
	return func(c *Client) {
		c.lifetime = lifetime
		c.headroom = headroom
	}
}

func WithReconnectPolicy(base, ceiling time.Duration, maxAttempts int) ClientOption {
	return func(c *Client) {
		c.reconnect = reconnectPolicy{Base: base, Cap: ceiling, MaxAttempts: maxAttempts}
	}
}

func NewClient(endpoint, apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    "qwen-omni-turbo-realtime",
		lifetime: 25 * time.Minute,
		headroom: 30 * time.Second,
		reconnect: reconnectPolicy{
			Base:        250 * time.Millisecond,
			Cap:         5 * time.Second,
			MaxAttempts: 5,
		},
		state: stateIdle,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Listen opens the first session and starts the read and rotation loops.
// Call it at most once per client.
func (c *Client) Listen(ctx context.Context, opts ...speech.ListenOption) error {
	options := &speech.ListenOptions{}
	for _, opt := range opts {
		opt(options)
	}
	c.options = *options.Defaults()

	ctx, cancel := context.WithCancel(ctx)
	c.baseCtx = ctx
	c.cancel = cancel

	c.setState(stateConnecting)
	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(stateClosed)
		cancel()
		return fmt.Errorf("failed to open realtime session: %w", err)
	}

	c.install(conn)
	go c.readLoop(ctx, conn)
	go c.rotationLoop(ctx)
	return nil
}

// SendAudio forwards one captured frame to the current session. During
// rotation the frame goes to whichever session is installed, so the handoff
// gap is bounded by the swap itself.
func (c *Client) SendAudio(pcm []byte) error {
	c.mu.Lock()
	conn := c.conn
	state := c.state
	c.mu.Unlock()

	if conn == nil || state == stateClosed {
		return fmt.Errorf("realtime session not connected")
	}
	return c.writeMessage(conn, appendAudioMessage(pcm))
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.setState(stateClosed)
		if c.cancel != nil {
			c.cancel()
		}

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}

func (c *Client) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.state)
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.endpoint+"?model="+c.model, header)
	if err != nil {
		return nil, err
	}

	if err := c.writeMessage(conn, sessionUpdateMessage(c.options.EncodingInfo)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to configure session: %w", err)
	}
	return conn, nil
}

// install makes conn the current session. Audio writes switch to it
// atomically; the previous connection, if any, stays open until its owner
// tears it down.
func (c *Client) install(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.sessionID = uuid.NewString()
	c.openedAt = time.Now()
	c.state = stateActive
	c.mu.Unlock()
}

func (c *Client) setState(state sessionState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// isCurrent reports whether conn is still the installed session. A read
// loop whose connection was rotated away exits quietly instead of
// triggering recovery.
func (c *Client) isCurrent(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == conn
}

func (c *Client) writeMessage(conn *websocket.Conn, message any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return conn.WriteJSON(message)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || !c.isCurrent(conn) {
				return
			}
			c.recover(ctx, err)
			return
		}
		c.handleMessage(msg)
	}
}

// recover reconnects with exponential backoff, bounded by the configured
// attempt budget. Exhaustion is the only path that reports a fatal error.
func (c *Client) recover(ctx context.Context, cause error) {
	c.setState(stateConnecting)
	c.options.ErrorCallback(fmt.Errorf("realtime session lost: %w", cause), false)

	backoff := c.reconnect.Base
	for attempt := 0; attempt < c.reconnect.MaxAttempts; attempt++ {
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		if backoff *= 2; backoff > c.reconnect.Cap {
			backoff = c.reconnect.Cap
		}

		conn, err := c.dial(ctx)
		if err != nil {
			cause = err
			c.options.ErrorCallback(fmt.Errorf("reconnect attempt %d failed: %w", attempt+1, err), false)
			continue
		}

		c.install(conn)
		go c.readLoop(ctx, conn)
		return
	}

	c.setState(stateClosed)
	c.options.ErrorCallback(fmt.Errorf("realtime session unrecoverable after %d attempts: %w", c.reconnect.MaxAttempts, cause), true)
}

func (c *Client) rotationLoop(ctx context.Context) {
	interval := c.headroom / 4
	if interval > time.Second {
		interval = time.Second
	}
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		due := c.state == stateActive && time.Since(c.openedAt) >= c.lifetime-c.headroom
		deadline := c.openedAt.Add(c.lifetime)
		c.mu.Unlock()

		if due {
			c.rotate(ctx, deadline)
		}
	}
}

// rotate opens a replacement session before the lifetime bound, swaps
// writes over to it, and keeps the old connection alive briefly so
// in-flight server events are not lost. The retired connection keeps its
// original read loop as its only reader; rotation never starts a second
// one, it only bounds the drain by closing the connection after the grace
// period (Close is the one method gorilla allows concurrently with a read).
func (c *Client) rotate(ctx context.Context, deadline time.Time) {
	c.setState(stateRotating)
	c.options.SessionExpiringCallback(deadline)

	replacement, err := c.dial(ctx)
	if err != nil {
		// Rotation failed; the old session keeps serving until it dies or
		// the server closes it, at which point recovery kicks in.
		c.options.ErrorCallback(fmt.Errorf("session rotation failed: %w", err), false)
		c.setState(stateActive)
		return
	}

	c.mu.Lock()
	old := c.conn
	oldID := c.sessionID
	c.mu.Unlock()

	c.install(replacement)
	go c.readLoop(ctx, replacement)

	if old != nil {
		grace := c.headroom
		if grace > 2*time.Second {
			grace = 2 * time.Second
		}
		// The old read loop keeps draining until this fires, errors out of
		// its blocked read, sees it is no longer current and exits quietly.
		time.AfterFunc(grace, func() { old.Close() })
	}
	c.options.SessionRotatedCallback(oldID)
}
