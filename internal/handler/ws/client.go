package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"TradeDash/internal/domain/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client is one websocket connection. readPump runs on the handler
// goroutine, writePump on its own; they never touch the conn concurrently.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan *models.Envelope
	done chan struct{}

	closeOnce sync.Once
}

func newClient(h *Hub, conn *websocket.Conn, id string, sendBuf int) *Client {
	return &Client{
		id:   id,
		hub:  h,
		conn: conn,
		send: make(chan *models.Envelope, sendBuf),
		done: make(chan struct{}),
	}
}

// trySend queues env without blocking. It reports false when the client is
// closed or its buffer is full and the envelope was dropped. The send
// channel is never closed, so a broadcast racing unregister cannot panic.
func (c *Client) trySend(env *models.Envelope) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- env:
		return true
	default:
		return false
	}
}

// close signals writePump to exit. Idempotent.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.hub.limiter.Forget(c.id)
	})
}

// readPump consumes control frames until the connection dies, then
// unregisters the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
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
			return
		}
		c.hub.handleControl(c, raw)
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case env := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
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
