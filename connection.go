/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const writeWait = 10 * time.Second

type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

func (s ConnState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Connector owns the one websocket this client holds. Its run loop dials,
// reads until the socket fails, backs off, and dials again until its
// context ends. Each successful dial is announced exactly once on Opened.
type Connector struct {
	url     string
	header  http.Header
	dialer  *websocket.Dialer
	log     zerolog.Logger
	backoff *Backoff

	frames chan []byte
	opened chan uint64

	running atomic.Bool

	mu         sync.Mutex
	conn       *websocket.Conn
	state      ConnState
	generation uint64
	closed     bool
	ready      chan struct{}

	writeMu sync.Mutex
}

func newConnector(url string, header http.Header, log zerolog.Logger) *Connector {
	return &Connector{
		url:    url,
		header: header,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		},
		log:     log,
		backoff: newConnectBackoff(),
		frames:  make(chan []byte, 64),
		opened:  make(chan uint64, 8),
		ready:   make(chan struct{}),
	}
}

// Frames delivers inbound frames in arrival order.
func (c *Connector) Frames() <-chan []byte { return c.frames }

// Opened delivers the generation of every connection that reached the open
// state.
func (c *Connector) Opened() <-chan uint64 { return c.opened }

func (c *Connector) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Connector) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.generation
}

func (c *Connector) Delay() time.Duration { return c.backoff.Delay() }

// Start launches the run loop. Only one loop may ever own the connector.
func (c *Connector) Start(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	go c.run(ctx)

	return nil
}

// Connect returns once the socket is open. Closes along the way are retried,
// not reported; only ctx ending stops the wait.
func (c *Connector) Connect(ctx context.Context) error {
	_ = c.Start(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.mu.Lock()
		if c.state == Connected {
			c.mu.Unlock()

			return nil
		}
		if c.closed {
			c.mu.Unlock()

			return ErrClosed
		}
		ready := c.ready
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ready:
		}
	}
}

func (c *Connector) run(ctx context.Context) {
	defer c.Close()

	for ctx.Err() == nil && !c.isClosed() {
		c.setState(Connecting)

		conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
		if err != nil {
			c.setState(Disconnected)
			if ctx.Err() != nil {
				return
			}

			delay := c.backoff.Grow()
			logError(c.log, &TransportError{Op: "dial", Err: err}, "CONN: Dial failed")
			c.log.Debug().Dur("delay", delay).Msg("CONN: Retrying")

			if !c.backoff.Wait(ctx) {
				return
			}

			continue
		}

		gen, ok := c.attach(ctx, conn)
		if !ok {
			return
		}

		c.log.Info().Str("url", c.url).Uint64("generation", gen).Msg("CONN: Connected")

		select {
		case c.opened <- gen:
		case <-ctx.Done():
			return
		}

		err = c.readLoop(ctx, conn)
		c.detach(conn)
		if ctx.Err() != nil {
			return
		}

		delay := c.backoff.Grow()
		logError(c.log, err, "CONN: Disconnected")
		c.log.Debug().Dur("delay", delay).Msg("CONN: Reconnecting")

		if !c.backoff.Wait(ctx) {
			return
		}
	}
}

// attach publishes a freshly dialed socket, unless the connector was torn
// down while the dial was in flight.
func (c *Connector) attach(ctx context.Context, conn *websocket.Conn) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || ctx.Err() != nil {
		_ = conn.Close()

		return 0, false
	}

	c.conn = conn
	c.generation++
	c.state = Connected
	close(c.ready)

	return c.generation, true
}

func (c *Connector) detach(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = conn.Close()
	if c.conn != conn {
		return
	}

	c.conn = nil
	c.state = Disconnected
	c.ready = make(chan struct{})
}

func (c *Connector) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *Connector) setState(s ConnState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Connected || c.closed {
		return
	}
	c.state = s
}

func (c *Connector) readLoop(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return &TransportError{Op: "read", Err: err}
		}

		c.backoff.Shrink()
		c.log.Debug().Str("size", byteSize(len(data))).Msg("RECV: Frame")

		select {
		case c.frames <- data:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WriteText sends one frame on the open socket. A failed write drops the
// socket so the run loop reconnects.
func (c *Connector) WriteText(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		_ = conn.Close()

		return &TransportError{Op: "write", Err: err}
	}

	return nil
}

// Close abandons the socket. Safe to call more than once.
func (c *Connector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	// ready is already closed while connected.
	if c.state != Connected {
		close(c.ready)
	}
	c.state = Disconnected
	c.mu.Unlock()

	if conn == nil {
		return
	}

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	_ = conn.Close()
}
