package websocket

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipThrottle bounds connection attempts per IP at the HTTP layer, before
// the upgrade spends any resources. This is separate from the chat rate
// limiter; it only guards the handshake.
type ipThrottle struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*ipLimiter
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const throttleIdle = 10 * time.Minute

func newIPThrottle(limit rate.Limit, burst int) *ipThrottle {
	return &ipThrottle{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*ipLimiter),
	}
}

func (t *ipThrottle) allow(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	entry, ok := t.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[ip] = entry
	}
	entry.lastSeen = now

	// Prune idle entries while we hold the lock anyway.
	if len(t.limiters) > 1024 {
		for key, e := range t.limiters {
			if now.Sub(e.lastSeen) > throttleIdle {
				delete(t.limiters, key)
			}
		}
	}

	return entry.limiter.Allow()
}
