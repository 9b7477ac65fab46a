package websocket

import (
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"tubedeck/types"
)

// NewUpgrader returns an upgrader that accepts the given browser origins.
// A "*" entry accepts any origin; requests without an Origin header are always accepted.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
}

// Client represents a WebSocket client connection
type Client struct {
	hub  Hub
	conn *websocket.Conn
	send chan types.SnapshotMessage
}

// NewClient creates a new WebSocket client. initial is written before any broadcast.
func NewClient(hub Hub, conn *websocket.Conn, initial types.Snapshot) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan types.SnapshotMessage, sendBuffer),
	}
	c.send <- types.SnapshotMessage{Type: "snapshot", Snapshot: initial}
	return c
}

// StartPumps registers the client and starts its read and write pumps
func (c *Client) StartPumps() {
	c.hub.RegisterClient(c)
	go c.writePump()
	go c.readPump()
}

func (c *Client) remoteAddr() string {
	if c.conn == nil {
		return ""
	}
	return c.conn.RemoteAddr().String()
}

// readPump only watches for the peer going away; clients never send commands here
func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Str("component", "websocket").Err(err).Msg("read failed")
			}
			return
		}
	}
}

// writePump writes snapshots in version order, skipping any older than the last one sent
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	var sent uint64
	first := true
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !first && message.Snapshot.Version <= sent {
				continue
			}
			if err := c.conn.WriteJSON(message); err != nil {
				log.Debug().Str("component", "websocket").Err(err).Msg("write failed")
				return
			}
			sent, first = message.Snapshot.Version, false

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
