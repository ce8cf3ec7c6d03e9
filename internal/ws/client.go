package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer
	maxMessageSize = 64 * 1024

	// Outbound buffer per connection. A receiver that falls this far behind
	// is pruned rather than allowed to block room broadcasts.
	sendBufferSize = 256
)

// ErrConnDead marks a connection whose outbound path can no longer accept
// frames. The registry treats it as evidence of a dead connection and prunes.
var ErrConnDead = errors.New("ws: connection dead")

// transport is the connection surface Client needs. Satisfied by
// *websocket.Conn; tests substitute fakes.
type transport interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Client is one live duplex connection to exactly one device of one user.
// It belongs to one user for its whole lifetime; room affiliation is tracked
// at user granularity in Rooms, never here.
type Client struct {
	id     string
	userID string
	conn   transport
	send   chan []byte
	closed int32 // atomic
}

func NewClient(conn *websocket.Conn, userID string) *Client {
	return &Client{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }

// Deliver queues payload for the write pump without blocking. It reports
// delivered (nil) or dead (ErrConnDead): a full buffer or a closed client is
// dead, never a wait.
func (c *Client) Deliver(payload []byte) error {
	if c.isClosed() {
		return ErrConnDead
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrConnDead
	}
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// Close marks the client dead and closes the transport. Safe to call more
// than once; the write pump exits on the closed transport.
func (c *Client) Close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.conn.Close()
	}
}

// readPump is the connection's cooperative loop: decode one frame, dispatch
// it through the handler, wait for the next. Frames from one connection are
// never processed in parallel. A transport error ends the loop; a handler
// error (persistence failure) terminates only this connection's processing.
func (c *Client) readPump(ctx context.Context, reg *Registry, h *Handler) {
	defer func() {
		c.Close()
		reg.Detach(c.userID, c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				slog.Error("websocket read error", "clientID", c.id, "userID", c.userID, "error", err)
			} else {
				slog.Debug("websocket closed", "clientID", c.id, "userID", c.userID)
			}
			return
		}

		if err := h.HandleFrame(ctx, c, raw); err != nil {
			slog.Error("frame handling failed, closing connection", "clientID", c.id, "userID", c.userID, "error", err)
			return
		}
	}
}

// writePump drains the send buffer onto the wire and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				slog.Debug("websocket write error", "clientID", c.id, "userID", c.userID, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
