package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/VenB304/fabric-simple-webchat/internal/bridge"
)

const writeTimeout = 5 * time.Second

// Connection wraps one WebSocket with a single writer goroutine, so frames
// may be sent from any goroutine (connection workers, the game loop, the
// broadcast path) without racing on the socket.
type Connection struct {
	id       string
	remoteIP string
	conn     *websocket.Conn

	writeCh   chan []byte
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

var _ bridge.Client = (*Connection)(nil)

// NewConnection wraps conn and starts its writer. remoteIP is the already
// resolved client address (proxy-aware when configured).
func NewConnection(conn *websocket.Conn, remoteIP string) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:       uuid.NewString(),
		remoteIP: remoteIP,
		conn:     conn,
		writeCh:  make(chan []byte, 100),
		ctx:      ctx,
		cancel:   cancel,
	}
	go c.writeLoop()
	return c
}

// ID returns the connection's opaque identifier.
func (c *Connection) ID() string { return c.id }

// RemoteIP returns the resolved client IP.
func (c *Connection) RemoteIP() string { return c.remoteIP }

func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// Send marshals v and queues it for the writer without blocking. Delivery is
// best-effort: a stalled client with a full queue drops the frame, so one
// slow connection never delays the broadcast fan-out to the others.
func (c *Connection) Send(v any) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

// Close sends a close frame with the given code and reason (best-effort),
// then tears the connection down. Safe to call more than once.
func (c *Connection) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(writeTimeout)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)

		c.cancel()
		_ = c.conn.Close()
	})
}
