package websocket

import (
	"encoding/json"
	"time"

	"github.com/askwhyharsh/fogofearth/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan *Message
	id     string
	logger logger.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, id string, log logger.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan *Message, 256),
		id:     id,
		logger: log,
	}
}

// ReadPump only answers pings; map views do not send commands over the socket.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("Unexpected websocket close", "client_id", c.id, "error", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.trySend(NewErrorMessage("Invalid message format", "INVALID_FORMAT"))
			continue
		}

		switch msg.Type {
		case MessageTypePing:
			c.trySend(&Message{
				Type:      MessageTypePong,
				Timestamp: time.Now().Unix(),
			})
		default:
			c.trySend(NewErrorMessage("Unsupported message type", "UNSUPPORTED"))
		}
	}
}

func (c *Client) WritePump() {
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

			if err := c.conn.WriteJSON(message); err != nil {
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

// trySend drops the message if the client is not keeping up. The hub may
// have already closed send, so a panic from a closed channel is swallowed.
func (c *Client) trySend(msg *Message) {
	defer func() { _ = recover() }()
	select {
	case c.send <- msg:
	default:
	}
}
