package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one websocket connection belonging to a user. A user may
// hold several clients at once (phone and web); each carries its own
// listener set.
type Client struct {
	UserID string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	unsubs map[string]func()
	closed bool
}

// push queues an envelope for the write pump. A full buffer drops the
// frame rather than block a subscription callback; the next snapshot
// supersedes it anyway.
func (c *Client) push(env envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		c.hub.log.Warnw("marshal ws envelope", "user_id", c.UserID, "error", err)
		return
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	select {
	case c.send <- payload:
	default:
		c.hub.log.Warnw("ws send buffer full, dropping frame", "user_id", c.UserID, "type", env.Type)
	}
}

// addStream registers a disposer under a key, replacing any previous
// stream with the same key.
func (c *Client) addStream(key string, unsub func()) {
	c.mu.Lock()
	prev := c.unsubs[key]
	if c.closed {
		c.mu.Unlock()
		unsub()
		return
	}
	c.unsubs[key] = unsub
	c.mu.Unlock()

	if prev != nil {
		prev()
	}
}

func (c *Client) dropStream(key string) {
	c.mu.Lock()
	unsub := c.unsubs[key]
	delete(c.unsubs, key)
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// teardown cancels every live listener and closes the send channel.
func (c *Client) teardown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubs := c.unsubs
	c.unsubs = make(map[string]func())
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	close(c.send)
}

func (c *Client) readPump() {
	defer func() { _ = c.conn.Close() }()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warnw("ws read", "user_id", c.UserID, "error", err)
			}
			return
		}
		c.handleCommand(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
