package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/blasternet/combatsync/pkg/streaming"
)

const (
	sendChSize   = 10_000
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	ackTimeout   = 10 * time.Second
)

var errClosed = errors.New("websocket connection closed")

// connection owns one collector session. A supervisor goroutine dials,
// writes every queued envelope in order and redials with backoff when the
// session breaks; a reader goroutine per session routes acks to waiters.
type connection struct {
	url    string
	secret string
	logger *slog.Logger
	dialer *ws.Dialer

	ctx    context.Context
	cancel context.CancelFunc
	sendCh chan []byte
	done   chan struct{} // closed when the supervisor exits

	mu      sync.Mutex
	replay  []byte // start_match, resent first after every redial
	waiters map[string][]chan struct{}

	running    atomic.Bool
	dropped    atomic.Uint64
	reconnects atomic.Uint64
}

func newConnection(url, secret string, logger *slog.Logger) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &connection{
		url:     url,
		secret:  secret,
		logger:  logger,
		dialer:  &ws.Dialer{HandshakeTimeout: writeWait},
		ctx:     ctx,
		cancel:  cancel,
		sendCh:  make(chan []byte, sendChSize),
		done:    make(chan struct{}),
		waiters: make(map[string][]chan struct{}),
	}
}

// open performs the first dial synchronously so a bad URL or a refused
// secret fails Init, then hands the session to the supervisor.
func (c *connection) open() error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	c.running.Store(true)
	go c.supervise(conn)
	return nil
}

func (c *connection) dial() (*ws.Conn, error) {
	header := http.Header{}
	if c.secret != "" {
		header.Set("Authorization", "Bearer "+c.secret)
	}
	conn, resp, err := c.dialer.DialContext(c.ctx, c.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s: %w (status %d)", c.url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial %s: %w", c.url, err)
	}
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return conn, nil
}

func (c *connection) supervise(conn *ws.Conn) {
	defer close(c.done)
	for {
		err := c.serve(conn)
		if c.ctx.Err() != nil {
			return
		}
		c.logger.Warn("WebSocket session ended", "error", err)

		conn = c.redial()
		if conn == nil {
			return
		}
	}
}

// serve writes queued envelopes until the session fails or the connection
// is closed. On close it sends a close frame.
func (c *connection) serve(conn *ws.Conn) error {
	defer conn.Close()

	readErr := make(chan error, 1)
	go func() { readErr <- c.read(conn) }()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-c.ctx.Done():
			c.drain(conn)
			conn.WriteControl(ws.CloseMessage,
				ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return errClosed
		case err := <-readErr:
			return err
		case <-ping.C:
			if err := conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		case data := <-c.sendCh:
			if err := write(conn, data); err != nil {
				return err
			}
		}
	}
}

// drain flushes what was queued before close.
func (c *connection) drain(conn *ws.Conn) {
	for {
		select {
		case data := <-c.sendCh:
			if err := write(conn, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (c *connection) read(conn *ws.Conn) error {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != "ack" {
			c.logger.Debug("Non-ack message received", "raw", string(message))
			continue
		}
		c.acked(ack.For)
	}
}

// redial retries with exponential backoff and resends the cached
// start_match first, since the collector needs the match before any event.
func (c *connection) redial() *ws.Conn {
	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)
		select {
		case <-c.ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)

		conn, err := c.dial()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			continue
		}

		c.mu.Lock()
		replay := c.replay
		c.mu.Unlock()
		if replay != nil {
			if err := write(conn, replay); err != nil {
				c.logger.Warn("Failed to replay start_match after reconnect", "error", err)
				conn.Close()
				continue
			}
		}
		c.reconnects.Add(1)
		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		return conn
	}
	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
	return nil
}

// send queues data for the supervisor. It never blocks; a full queue drops.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		if c.dropped.Add(1)%1000 == 1 {
			c.logger.Warn("WebSocket send channel full, dropping message", "dropped", c.dropped.Load())
		}
	}
}

// sendAndWait queues data and blocks until the collector acks ackFor.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	wait := make(chan struct{})
	c.mu.Lock()
	c.waiters[ackFor] = append(c.waiters[ackFor], wait)
	c.mu.Unlock()
	defer c.forget(ackFor, wait)

	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-wait:
		return nil
	case <-timer.C:
		return fmt.Errorf("timeout waiting for ack of %q", ackFor)
	case <-c.done:
		return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
	}
}

// acked releases the oldest waiter for typ.
func (c *connection) acked(typ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := c.waiters[typ]
	if len(pending) == 0 {
		c.logger.Debug("Unexpected ack", "for", typ)
		return
	}
	close(pending[0])
	c.waiters[typ] = pending[1:]
}

func (c *connection) forget(typ string, wait chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := c.waiters[typ]
	for i, w := range pending {
		if w == wait {
			c.waiters[typ] = append(pending[:i:i], pending[i+1:]...)
			return
		}
	}
}

func (c *connection) setReplay(data []byte) {
	c.mu.Lock()
	c.replay = data
	c.mu.Unlock()
}

func (c *connection) started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replay != nil
}

// close flushes the queue, sends a close frame and waits for the
// supervisor to exit.
func (c *connection) close() error {
	c.cancel()
	if c.running.Load() {
		<-c.done
	}
	return nil
}
