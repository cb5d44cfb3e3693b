// Package ws connects a live session to the session server over a websocket.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"eduslide-live/internal/app"
	"eduslide-live/internal/domain"
	"eduslide-live/internal/logger"
)

// Options configures the websocket client.
type Options struct {
	URL              string
	Header           http.Header
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// Reconnect backoff. MaxElapsed of zero retries forever.
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
}

// Client is an app.Channel over a gorilla websocket. It redials with
// exponential backoff whenever the connection drops and reports each
// connection as a connect/disconnect pair of events.
type Client struct {
	opts   Options
	dialer *websocket.Dialer
	log    logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events chan domain.Event
	wg     sync.WaitGroup

	// mu serializes writes and guards conn.
	mu   sync.Mutex
	conn *websocket.Conn

	closeOnce sync.Once
}

var _ app.Channel = (*Client)(nil)

// Connect starts dialing opts.URL in the background and returns immediately.
func Connect(opts Options, log logger.Logger) *Client {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		events: make(chan domain.Event, 64),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

func (c *Client) Events() <-chan domain.Event {
	return c.events
}

// Emit writes msg as one JSON text frame.
func (c *Client) Emit(ctx context.Context, msg domain.Outbound) error {
	if c.ctx.Err() != nil {
		return domain.ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return domain.ErrNotConnected
	}
	deadline := time.Now().Add(c.opts.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("ws write %s: %w", msg.Type, err)
	}
	return nil
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = c.conn.Close()
		}
		c.mu.Unlock()
		c.wg.Wait()
	})
	return nil
}

func (c *Client) run() {
	defer c.wg.Done()
	defer close(c.events)

	for {
		conn, err := c.dial()
		if err != nil {
			if c.ctx.Err() == nil {
				c.log.Error("giving up on session server", c.opts.URL, err)
			}
			return
		}
		if !c.setConn(conn) {
			_ = conn.Close()
			return
		}
		c.log.Info("connected to session server", c.opts.URL)

		if c.deliver(domain.Event{Type: app.EventConnect}) {
			c.read(conn)
		}

		c.setConn(nil)
		_ = conn.Close()
		if !c.deliver(domain.Event{Type: app.EventDisconnect}) {
			return
		}
		c.log.Warn("lost connection to session server", c.opts.URL)
	}
}

func (c *Client) dial() (*websocket.Conn, error) {
	b := backoff.NewExponentialBackOff()
	if c.opts.InitialInterval > 0 {
		b.InitialInterval = c.opts.InitialInterval
	}
	if c.opts.MaxInterval > 0 {
		b.MaxInterval = c.opts.MaxInterval
	}
	b.MaxElapsedTime = c.opts.MaxElapsed

	var conn *websocket.Conn
	op := func() error {
		var err error
		conn, _, err = c.dialer.DialContext(c.ctx, c.opts.URL, c.opts.Header)
		if c.ctx.Err() != nil {
			return backoff.Permanent(c.ctx.Err())
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.log.Debug("dial failed, retrying", wait, err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, c.ctx), notify); err != nil {
		return nil, err
	}
	return conn, nil
}

// setConn swaps the live connection, refusing new ones once closed.
func (c *Client) setConn(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conn != nil && c.ctx.Err() != nil {
		return false
	}
	c.conn = conn
	return true
}

func (c *Client) read(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("ws read", err)
			}
			return
		}
		var ev domain.Event
		if err := json.Unmarshal(data, &ev); err != nil || ev.Type == "" {
			c.log.Warn("dropping undecodable frame", string(data), err)
			continue
		}
		if !c.deliver(ev) {
			return
		}
	}
}

func (c *Client) deliver(ev domain.Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.ctx.Done():
		return false
	}
}
