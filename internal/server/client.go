package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client is one websocket connection. It follows at most one game at a time.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	gameID string
	seat   int
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
		seat: -1,
	}
}

func (c *Client) join(gameID string, seat int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gameID = gameID
	c.seat = seat
}

// following returns the game the client watches.
func (c *Client) following() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameID
}

// enqueue queues a message without blocking. It reports false if the message was dropped.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// close stops the write pump. Safe to call more than once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) sendError(gameID string, err error) {
	payload, encErr := encode(MsgError, gameID, -1, ErrorPayload{Message: err.Error()})
	if encErr == nil {
		c.enqueue(payload)
	}
}

// readPump forwards incoming messages to the hub until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.Debug("malformed websocket message", zap.Error(err))
			c.sendError("", err)
			continue
		}
		c.dispatch(msg)
	}
}

// dispatch hands one message to the hub. A failure while handling it is
// reported to the client and does not take the connection down.
func (c *Client) dispatch(msg Message) {
	defer func() {
		if r := recover(); r != nil {
			c.hub.logger.Error("panic while handling message",
				zap.String("type", msg.Type),
				zap.String("game_id", msg.GameID),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			c.sendError(msg.GameID, errInternal)
		}
	}()
	c.hub.handleMessage(c, msg)
}

// writePump writes queued messages and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
