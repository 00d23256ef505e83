// Package metrics collects and exposes Prometheus metrics for the chat
// bridge.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the bridge's Prometheus instruments.
type Collector struct {
	registry *prometheus.Registry

	activeConnections prometheus.Gauge
	connectionsTotal  prometheus.Counter
	messagesIn        prometheus.Counter
	broadcasts        prometheus.Counter
	rateLimited       *prometheus.CounterVec
	otpRequests       prometheus.Counter
	otpVerifications  *prometheus.CounterVec
	rejectedBans      prometheus.Counter
}

// NewCollector creates a Collector backed by its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "webchat_active_connections",
			Help: "Currently open WebSocket connections.",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webchat_connections_total",
			Help: "Total accepted WebSocket connections.",
		}),
		messagesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webchat_messages_in_total",
			Help: "Chat messages received from web clients.",
		}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webchat_broadcasts_total",
			Help: "Chat frames broadcast to web clients.",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webchat_rate_limited_total",
			Help: "Actions dropped by rate limiting, by kind.",
		}, []string{"kind"}),
		otpRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webchat_otp_requests_total",
			Help: "OTP challenges issued.",
		}),
		otpVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webchat_otp_verifications_total",
			Help: "OTP verification attempts, by result.",
		}, []string{"result"}),
		rejectedBans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webchat_banned_rejections_total",
			Help: "Connections rejected because the IP is banned.",
		}),
	}

	c.registry.MustRegister(
		c.activeConnections,
		c.connectionsTotal,
		c.messagesIn,
		c.broadcasts,
		c.rateLimited,
		c.otpRequests,
		c.otpVerifications,
		c.rejectedBans,
	)
	return c
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ConnectionOpened() { c.activeConnections.Inc(); c.connectionsTotal.Inc() }
func (c *Collector) ConnectionClosed() { c.activeConnections.Dec() }
func (c *Collector) MessageReceived()  { c.messagesIn.Inc() }
func (c *Collector) Broadcast()        { c.broadcasts.Inc() }
func (c *Collector) BannedRejection()  { c.rejectedBans.Inc() }
func (c *Collector) OTPRequested()     { c.otpRequests.Inc() }

// RateLimited records a dropped action; kind is "message" or "otp".
func (c *Collector) RateLimited(kind string) {
	c.rateLimited.WithLabelValues(kind).Inc()
}

// OTPVerified records a verification attempt outcome.
func (c *Collector) OTPVerified(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	c.otpVerifications.WithLabelValues(result).Inc()
}
