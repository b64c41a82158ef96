package websocket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ai-finance-assistant-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 256
)

var ErrClientClosed = errors.New("websocket client closed")

// RequestHandler answers one inbound frame. Replies go through c.Write.
type RequestHandler func(ctx context.Context, c *Client, payload []byte)

// Client is a middleman between the websocket connection and the assistant.
// One request is served at a time per connection.
type Client struct {
	Conn   *websocket.Conn
	UserID string

	// Buffered channel of outbound frames.
	Send chan []byte

	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
	busy       atomic.Bool
	logger     logger.ILogger
}

// Serve runs the connection until the peer goes away. It returns only after
// both pumps have stopped using conn, since the caller hands conn back to
// the fiber pool on return.
func Serve(conn *websocket.Conn, userID string, handle RequestHandler, log logger.ILogger) {
	c := &Client{
		Conn:       conn,
		UserID:     userID,
		Send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
		logger:     log,
	}

	go c.writePump()
	c.readPump(handle)
	<-c.writerDone
	c.Conn.Close()
}

// Write queues one text frame. Fails once the connection is gone.
func (c *Client) Write(frame string) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case <-c.done:
		return ErrClientClosed
	case c.Send <- []byte(frame):
		return nil
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) readPump(handle RequestHandler) {
	defer c.close()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WEBSOCKET", "Unexpected close", map[string]interface{}{
					"user_id": c.UserID,
					"error":   err.Error(),
				})
			}
			return
		}

		if !c.busy.CompareAndSwap(false, true) {
			_ = c.Write(`{"success":false,"code":429,"message":"a request is already in progress"}`)
			continue
		}
		// Handled off the read loop so pongs keep the deadline fresh.
		go func() {
			defer c.busy.Store(false)
			handle(context.Background(), c, payload)
		}()
	}
}

// writePump is the only writer on Conn. On a write error it closes Conn so
// the blocked reader returns too.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		close(c.writerDone)
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.Conn.Close()
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Conn.Close()
				return
			}
		}
	}
}
