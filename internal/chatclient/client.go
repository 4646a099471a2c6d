// Package chatclient is a Go client for the broadcast chat server. It keeps a
// single connection open, reconnecting with exponential backoff whenever the
// connection drops.
package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

var (
	// ErrClosed is returned by Run once Close has been called.
	ErrClosed = errors.New("chatclient: closed")
	// ErrNotConnected is returned by Send and SetName while no connection is open.
	ErrNotConnected = errors.New("chatclient: not connected")
	// ErrAlreadyRunning is returned by a second concurrent call to Run.
	ErrAlreadyRunning = errors.New("chatclient: already running")
)

// Client maintains at most one connection, or one dial, at any time.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	state    State
	userID   string
	attempts int
	running  bool
	onEvent  func(Event)
	onState  func(State)

	closeOnce sync.Once
	closed    chan struct{}
}

// New constructs a client. Zero-valued delays and timeouts in cfg fall back to
// DefaultConfig.
func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}
	return &Client{
		cfg:    cfg,
		logger: slog.Default(),
		closed: make(chan struct{}),
	}
}

// SetLogger overrides the logger.
func (c *Client) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	c.mu.Lock()
	c.logger = l
	c.mu.Unlock()
}

// OnEvent registers the callback invoked for every event received. It runs on
// the read goroutine.
func (c *Client) OnEvent(fn func(Event)) {
	c.mu.Lock()
	c.onEvent = fn
	c.mu.Unlock()
}

// OnStateChange registers the callback invoked on every state transition.
func (c *Client) OnStateChange(fn func(State)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// State reports the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UserID returns the identity announced by the server in its most recent hello.
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// Attempts returns the number of consecutive failed connection attempts.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Run connects and keeps the client connected until ctx is cancelled or Close
// is called. After each disconnect it waits Backoff(BaseDelay, MaxDelay, n)
// before dialing again, where n counts attempts since the last successful
// connection.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	for {
		if err := c.stopErr(ctx); err != nil {
			return err
		}

		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err == nil {
			c.connected(conn)
			err = c.readLoop(ctx, conn)
			c.disconnected(conn)
		}

		if stop := c.stopErr(ctx); stop != nil {
			return stop
		}

		c.mu.Lock()
		c.attempts++
		attempt := c.attempts
		logger := c.logger
		c.mu.Unlock()

		delay := Backoff(c.cfg.BaseDelay, c.cfg.MaxDelay, attempt)
		logger.Info("Connection lost, scheduling reconnect", "attempt", attempt, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-c.closed:
			timer.Stop()
			return ErrClosed
		}
	}
}

// Send posts a chat message. Surrounding whitespace is trimmed and empty
// messages are skipped.
func (c *Client) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return c.write(ctx, postRequest{Type: requestPost, Text: text})
}

// SetName asks the server to change this connection's display name. Surrounding
// whitespace is trimmed and empty names are skipped.
func (c *Client) SetName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return c.write(ctx, renameRequest{Type: requestRename, Name: name})
}

// Close stops reconnecting and closes the open connection, if any.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		if conn != nil {
			err = conn.Close(websocket.StatusNormalClosure, "client close")
		}
		c.setState(StateClosed)
	})
	return err
}

func (c *Client) stopErr(ctx context.Context) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	return ctx.Err()
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	if c.cfg.URL == "" {
		return nil, errors.New("chatclient: empty URL")
	}

	dialCtx := ctx
	if c.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.DialTimeout)
		defer cancel()
	}

	conn, resp, err := websocket.Dial(dialCtx, c.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	conn.SetReadLimit(c.cfg.ReadLimit)
	return conn, nil
}

func (c *Client) connected(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.attempts = 0
	c.mu.Unlock()
	c.setState(StateConnected)

	// Close may have run between the dial and storing conn.
	select {
	case <-c.closed:
		_ = conn.Close(websocket.StatusNormalClosure, "client close")
	default:
	}
}

func (c *Client) disconnected(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.CloseNow()

	select {
	case <-c.closed:
	default:
		c.setState(StateDisconnected)
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if isExpectedDisconnect(ctx, err) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.mu.Lock()
			logger := c.logger
			c.mu.Unlock()
			logger.Warn("Ignoring undecodable event", "error", err)
			continue
		}
		c.dispatch(ev)
	}
}

func (c *Client) dispatch(ev Event) {
	c.mu.Lock()
	if ev.Type == EventHello && ev.UserID != "" {
		c.userID = ev.UserID
	}
	fn := c.onEvent
	c.mu.Unlock()

	if fn != nil {
		fn(ev)
	}
}

func (c *Client) write(ctx context.Context, v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	if c.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.WriteTimeout)
		defer cancel()
	}
	if err := wsjson.Write(ctx, conn, v); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if c.state == s || c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = s
	fn := c.onState
	c.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
