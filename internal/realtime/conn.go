package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

var (
	errSendBufferFull = errors.New("send buffer full")
	errConnClosed     = errors.New("connection closed")
)

// wsConn wraps one gorilla connection with the usual read/write pump pair.
// userID and roomID are written only from the read pump after the
// register/join handshake.
type wsConn struct {
	sock   *websocket.Conn
	hub    *Hub
	send   chan any
	logger *zap.Logger

	userID string
	roomID string

	mu     sync.Mutex
	closed bool
}

// Attach takes ownership of an upgraded connection and starts its pumps.
func (h *Hub) Attach(sock *websocket.Conn) {
	c := &wsConn{
		sock:   sock,
		hub:    h,
		send:   make(chan any, sendBuffer),
		logger: h.logger,
	}
	go c.writePump()
	go c.readPump()
}

// Send queues a frame for the write pump. It never blocks and never
// panics: a closed connection or a full buffer drops the frame with an
// error. Broadcasters may hold a peer snapshot taken before that peer's
// read pump tore the connection down.
func (c *wsConn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	select {
	case c.send <- v:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *wsConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *wsConn) readPump() {
	defer func() {
		c.hub.registry.Disconnect(c)
		c.Close()
		_ = c.sock.Close()
	}()

	c.sock.SetReadLimit(maxMessageSize)
	_ = c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("socket read failed", zap.String("user", c.userID), zap.Error(err))
			}
			return
		}

		var in Inbound
		if err := json.Unmarshal(raw, &in); err != nil {
			c.logger.Warn("undecodable frame", zap.String("user", c.userID), zap.Error(err))
			_ = c.Send(errorFrame("invalid frame"))
			continue
		}
		c.hub.handle(c, in)
	}
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.sock.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.sock.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.sock.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
