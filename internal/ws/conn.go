package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/revisaosegura/copartbr-sub000/internal/identity"
	"github.com/revisaosegura/copartbr-sub000/internal/room"
	"github.com/revisaosegura/copartbr-sub000/utils"
)

const (
	// sendBuffer is the per-connection outbound queue. A connection that
	// falls this far behind the broadcast stream is shed rather than
	// allowed to stall fan-out to everyone else.
	sendBuffer = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Conn is one realtime connection: the websocket, its resolved identity
// and an outbound queue drained by a single writer goroutine.
type Conn struct {
	id       string
	sock     *websocket.Conn
	identity identity.Identity

	send      chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

func newConn(sock *websocket.Conn, id identity.Identity) *Conn {
	return &Conn{
		id:       utils.GenerateID(),
		sock:     sock,
		identity: id,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

// ID returns the connection's unique handle.
func (c *Conn) ID() string { return c.id }

// Identity returns the identity resolved at connect time.
func (c *Conn) Identity() identity.Identity { return c.identity }

// Send queues a room event for delivery. It never blocks: if the
// outbound buffer is full the connection is closed, and the client is
// expected to reconnect and replay history.
func (c *Conn) Send(event room.Event) {
	c.write(event.Name(), event)
}

func (c *Conn) write(msgType string, data any) {
	payload, err := encode(msgType, data)
	if err != nil {
		utils.Error("failed to encode event", map[string]any{
			"conn_id": c.id,
			"type":    msgType,
			"error":   err.Error(),
		})
		return
	}
	select {
	case c.send <- payload:
	case <-c.done:
	default:
		utils.Warn("observer too slow, shedding connection", map[string]any{
			"conn_id": c.id,
			"type":    msgType,
		})
		c.close()
	}
}

// close stops the writer and closes the socket. Safe to call repeatedly.
func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.sock.Close()
	})
}

// writePump owns all writes to the socket, including pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
