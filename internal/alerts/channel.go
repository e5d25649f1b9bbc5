// Package alerts receives alert notifications pushed by the API over a
// websocket and keeps the most-recent-first alert list.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"iotmon/internal/logging"
)

const closeWriteTimeout = time.Second

// ErrTerminated is returned by Open once the channel has been closed. A
// closed Channel is never reused; create a new one to reconnect.
var ErrTerminated = errors.New("alert channel terminated")

// TokenSource yields the credential presented at connect time.
type TokenSource interface {
	Get() (string, bool)
}

type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Channel is one live alert connection: Closed -> Connecting -> Open -> Closed.
// It never reconnects by itself.
type Channel struct {
	endpoint string
	creds    TokenSource
	sink     Sink
	logger   *logging.Logger
	dialer   *websocket.Dialer

	mu         sync.Mutex
	state      State
	terminated bool
	cancelDial context.CancelFunc
	conn       *websocket.Conn
	done       chan struct{}
}

func NewChannel(endpoint string, creds TokenSource, sink Sink, logger *logging.Logger) *Channel {
	return &Channel{
		endpoint: endpoint,
		creds:    creds,
		sink:     sink,
		logger:   logger,
		dialer:   websocket.DefaultDialer,
		done:     make(chan struct{}),
	}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Terminated reports whether the channel reached its final Closed state.
func (c *Channel) Terminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminated
}

// Done is closed when the channel terminates.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Open performs the handshake and starts delivering alerts. It is a no-op
// while Connecting or Open. A failed handshake terminates the channel.
func (c *Channel) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.terminated {
		c.mu.Unlock()
		return ErrTerminated
	}
	if c.state != StateClosed {
		c.mu.Unlock()
		return nil
	}
	dialCtx, cancel := context.WithCancel(ctx)
	c.state = StateConnecting
	c.cancelDial = cancel
	c.mu.Unlock()
	defer cancel()

	header := http.Header{}
	if token, ok := c.creds.Get(); ok {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := c.dialer.DialContext(dialCtx, c.endpoint, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelDial = nil

	if c.terminated {
		// Close won the race while the handshake was in flight.
		if conn != nil {
			conn.Close()
		}
		return ErrTerminated
	}
	if err != nil {
		c.terminateLocked()
		if resp != nil {
			c.logger.Errorf("Alert channel handshake rejected with status %d: %v", resp.StatusCode, err)
		} else {
			c.logger.Errorf("Alert channel handshake failed: %v", err)
		}
		return fmt.Errorf("dial %s: %w", c.endpoint, err)
	}

	c.conn = conn
	c.state = StateOpen
	c.logger.Infof("Alert channel open: %s", c.endpoint)
	go c.readLoop(conn)
	return nil
}

// Close tears the channel down from any state. Safe to call repeatedly.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.terminated {
		c.mu.Unlock()
		return
	}
	cancel, conn := c.cancelDial, c.conn
	c.terminateLocked()
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
		conn.Close()
	}
	c.logger.Infof("Alert channel closed")
}

func (c *Channel) terminateLocked() {
	c.terminated = true
	c.state = StateClosed
	c.conn = nil
	c.cancelDial = nil
	close(c.done)
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			c.onReadError(conn, err)
			return
		}
		if msgType != websocket.TextMessage {
			c.logger.Debugf("Dropping non-text alert frame (type %d)", msgType)
			continue
		}

		alert, ok, err := decodeEvent(data)
		if err != nil {
			c.logger.Warnf("Dropping malformed alert message: %v", err)
			continue
		}
		if !ok {
			continue
		}
		c.sink.Deliver(alert)
	}
}

func (c *Channel) onReadError(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.terminated {
		// Close already released the connection.
		c.mu.Unlock()
		return
	}
	c.terminateLocked()
	c.mu.Unlock()

	conn.Close()
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.Infof("Alert channel closed by server: %v", err)
		return
	}
	c.logger.Errorf("Alert channel transport error: %v", err)
}
