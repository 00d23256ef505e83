package websocket

import (
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/VenB304/fabric-simple-webchat/internal/bridge"
	"github.com/VenB304/fabric-simple-webchat/internal/metrics"
)

const (
	// idleTimeout closes connections with no traffic. The web client sends
	// a text PING well inside this window.
	idleTimeout  = 5 * time.Minute
	pingInterval = 30 * time.Second

	connectRate  = rate.Limit(1) // upgrade attempts per second per IP
	connectBurst = 5
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin: func(r *http.Request) bool {
		// The chat endpoint carries its own auth; origin is not part of it.
		return true
	},
}

// Handler upgrades HTTP requests on the chat endpoint and feeds the
// per-connection callbacks into the bridge.
type Handler struct {
	bridge     *bridge.Bridge
	stats      *metrics.Collector
	trustProxy bool
	throttle   *ipThrottle
}

// NewHandler creates the chat endpoint handler.
func NewHandler(b *bridge.Bridge, stats *metrics.Collector, trustProxy bool) *Handler {
	return &Handler{
		bridge:     b,
		stats:      stats,
		trustProxy: trustProxy,
		throttle:   newIPThrottle(connectRate, connectBurst),
	}
}

// HandleWebSocket is the /chat endpoint.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := h.resolveIP(r)

	if !h.throttle.allow(ip) {
		http.Error(w, "Too many connection attempts", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket: upgrade failed for %s: %v", ip, err)
		return
	}

	wsConn := NewConnection(conn, ip)
	h.stats.ConnectionOpened()

	h.bridge.HandleConnect(wsConn, r.URL.Query())

	go h.readPump(wsConn)
}

// resolveIP takes the peer address, or the first X-Forwarded-For entry when
// proxy trust is enabled.
func (h *Handler) resolveIP(r *http.Request) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	if h.trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
		}
	}
	return ip
}

// readPump reads inbound frames for the connection's lifetime and tears
// everything down when the transport closes.
func (h *Handler) readPump(c *Connection) {
	defer func() {
		h.bridge.HandleClose(c)
		c.Close(websocket.CloseNormalClosure, "")
		h.stats.ConnectionClosed()
	}()

	if err := c.conn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})

	go h.pingLoop(c)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("websocket: read error from %s: %v", c.RemoteIP(), err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(idleTimeout))

		if messageType == websocket.TextMessage {
			h.bridge.HandleMessage(c, string(data))
		}
	}
}

func (h *Handler) pingLoop(c *Connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}
