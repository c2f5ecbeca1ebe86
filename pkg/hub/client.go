package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

// Keepalive timing. A client that has not answered a ping within pongWait
// is considered gone.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxInboundSize = 4 << 10
)

// conn is the part of *websocket.Conn a client uses.
type conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is one websocket connection subscribed to a hub.
type Client struct {
	hub  *Hub
	conn conn
	send chan Message
}

// NewClient creates a client for ws. It is registered by Run.
func NewClient(hub *Hub, ws *websocket.Conn) *Client {
	return newClient(hub, ws)
}

func newClient(hub *Hub, c conn) *Client {
	return &Client{hub: hub, conn: c, send: make(chan Message, clientBuffer)}
}

// Run registers the client and serves it until the peer disconnects or
// the hub stops. It blocks; call it from the websocket handler.
func (c *Client) Run() {
	if !c.hub.join(c) {
		c.conn.Close()
		return
	}

	written := make(chan struct{})
	go func() {
		defer close(written)
		c.write()
	}()

	c.read()
	c.hub.leave(c)
	c.conn.Close()
	<-written
}

// read discards inbound frames; it only notices disconnects and pongs.
func (c *Client) read() {
	c.conn.SetReadLimit(maxInboundSize)
	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
	_ = extend("")
	c.conn.SetPongHandler(extend)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// write is the only writer on the connection. It returns when send is
// closed by the hub or a write fails.
func (c *Client) write() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	defer c.conn.Close()

	for {
		var err error
		select {
		case m, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			err = c.conn.WriteMessage(m.opcode(), m.Data)
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = c.conn.WriteMessage(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}
