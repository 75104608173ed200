package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn serializes writes to a websocket connection. gorilla/websocket
// allows at most one concurrent writer; payloads are emitted from both
// the read loop and the orchestrator's background goroutines.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

// WriteJSON sends one JSON message.
func (c *wsConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// CloseWithMessage sends a close frame and closes the connection.
func (c *wsConn) CloseWithMessage(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	_ = c.conn.Close()
}
