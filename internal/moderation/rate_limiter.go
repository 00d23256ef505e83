package moderation

import (
	"math/rand"
	"sync"
	"time"
)

// messageWindow is the fixed window length for chat rate limiting.
const messageWindow = time.Minute

// window tracks one IP's message count within its current fixed window.
// The window boundary is per-IP and lazily advanced at first use after
// expiry, not wall-clock aligned.
type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter enforces the per-IP chat message limit (fixed 60s windows)
// and the per-IP OTP request cooldown (single timestamp). The check and
// increment are atomic per IP; two concurrent messages from one IP cannot
// both observe room in the window.
type RateLimiter struct {
	mu sync.Mutex

	maxPerMinute int
	otpCooldown  time.Duration

	windows map[string]*window
	otpLast map[string]time.Time
}

// NewRateLimiter creates a limiter allowing maxPerMinute chat messages per
// IP per minute and one OTP request per IP per otpCooldown.
func NewRateLimiter(maxPerMinute int, otpCooldown time.Duration) *RateLimiter {
	return &RateLimiter{
		maxPerMinute: maxPerMinute,
		otpCooldown:  otpCooldown,
		windows:      make(map[string]*window),
		otpLast:      make(map[string]time.Time),
	}
}

// AllowMessage reports whether ip may send another chat message, counting it
// if so. A denied message does not increment the counter.
func (rl *RateLimiter) AllowMessage(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	// Opportunistic sweep, ~1% of calls, to bound idle-IP memory.
	if rand.Float64() < 0.01 {
		rl.sweepLocked(now)
	}

	w, ok := rl.windows[ip]
	if !ok {
		w = &window{resetAt: now.Add(messageWindow)}
		rl.windows[ip] = w
	}

	if now.After(w.resetAt) {
		w.count = 0
		w.resetAt = now.Add(messageWindow)
	}

	if w.count < rl.maxPerMinute {
		w.count++
		return true
	}
	return false
}

// MessageReset returns how long ip must wait before its window resets. It is
// derived from the same window state AllowMessage decided on, so the
// user-facing countdown always matches the enforcement.
func (rl *RateLimiter) MessageReset(ip string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[ip]
	if !ok {
		return 0
	}
	remaining := time.Until(w.resetAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AllowOTPRequest reports whether ip may request another OTP code. The
// timestamp is consumed on allow, before the downstream player lookup runs,
// so a mistyped name still pays the cooldown.
func (rl *RateLimiter) AllowOTPRequest(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if last, ok := rl.otpLast[ip]; ok && now.Sub(last) < rl.otpCooldown {
		return false
	}
	rl.otpLast[ip] = now
	return true
}

// OTPReset returns how long ip must wait before its next OTP request.
func (rl *RateLimiter) OTPReset(ip string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	last, ok := rl.otpLast[ip]
	if !ok {
		return 0
	}
	remaining := rl.otpCooldown - time.Since(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Sweep prunes message windows and OTP timestamps that have long expired.
// Called periodically by the maintenance loop.
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.sweepLocked(time.Now())
}

func (rl *RateLimiter) sweepLocked(now time.Time) {
	for ip, w := range rl.windows {
		if now.After(w.resetAt) {
			delete(rl.windows, ip)
		}
	}
	for ip, last := range rl.otpLast {
		if now.Sub(last) > rl.otpCooldown {
			delete(rl.otpLast, ip)
		}
	}
}
