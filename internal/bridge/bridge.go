// Package bridge drives the per-connection authentication state machine and
// relays chat between web clients and the game in both directions.
package bridge

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/VenB304/fabric-simple-webchat/internal/auth"
	"github.com/VenB304/fabric-simple-webchat/internal/config"
	"github.com/VenB304/fabric-simple-webchat/internal/game"
	"github.com/VenB304/fabric-simple-webchat/internal/history"
	"github.com/VenB304/fabric-simple-webchat/internal/metrics"
	"github.com/VenB304/fabric-simple-webchat/internal/moderation"
)

// WebSocket close codes used by the bridge.
const (
	// CloseBanned (policy violation) rejects a banned IP before any
	// handshake is extended.
	CloseBanned = 1008
	// CloseAuthFailed rejects a connection with no retry path.
	CloseAuthFailed = 4003
)

var colorCodes = regexp.MustCompile(`§.`)

// Bridge orchestrates the registry, stores and limiters: it decides each
// connection's auth state at connect time, validates and relays inbound
// chat, and fans game events out to web clients.
type Bridge struct {
	cfg      *config.Config
	registry *Registry
	hist     *history.Log
	limiter  *moderation.RateLimiter
	bans     *moderation.BanSet
	sessions *auth.SessionStore
	otp      *auth.OTPAuthority
	sink     game.Sink
	stats    *metrics.Collector
}

// New wires a bridge. All dependencies are required.
func New(
	cfg *config.Config,
	registry *Registry,
	hist *history.Log,
	limiter *moderation.RateLimiter,
	bans *moderation.BanSet,
	sessions *auth.SessionStore,
	otp *auth.OTPAuthority,
	sink game.Sink,
	stats *metrics.Collector,
) *Bridge {
	return &Bridge{
		cfg:      cfg,
		registry: registry,
		hist:     hist,
		limiter:  limiter,
		bans:     bans,
		sessions: sessions,
		otp:      otp,
		sink:     sink,
		stats:    stats,
	}
}

// HandleConnect runs the connect-time state machine: ban check, then the
// configured auth mode, then name assignment, registration, history replay
// and join notifications for authenticated connections. Handshake
// connections only get a status frame telling them what is missing.
func (b *Bridge) HandleConnect(c Client, query url.Values) {
	ip := c.RemoteIP()

	if b.bans.IsBanned(ip) {
		b.stats.BannedRejection()
		c.Close(CloseBanned, "Banned")
		return
	}

	authenticated := false
	playerID := uuid.Nil
	username := strings.TrimSpace(query.Get("username"))
	pendingState := StateHandshake

	switch b.cfg.AuthMode {
	case config.AuthNone:
		authenticated = username != ""
		if !authenticated {
			pendingState = StateGuest
		}

	case config.AuthSimple:
		pass := query.Get("password")
		authenticated = b.cfg.WebPassword != "" &&
			subtle.ConstantTimeCompare([]byte(pass), []byte(b.cfg.WebPassword)) == 1
		// A wrong or missing password keeps the connection in handshake
		// instead of closing it, which avoids client reconnect storms.

	case config.AuthLinked:
		if session, ok := b.sessions.Verify(query.Get("token")); ok {
			authenticated = true
			playerID = session.PlayerID
			username = session.Username
		}

	default:
		c.Close(CloseAuthFailed, "Authentication Failed")
		return
	}

	if username == "" {
		if b.cfg.AuthMode == config.AuthLinked {
			// Placeholder while the OTP handshake runs.
			username = "Guest"
		} else {
			username = fmt.Sprintf("Guest_%d", rand.Intn(1000))
		}
	}
	name := b.registry.AssignName(username)

	if authenticated {
		b.registry.Track(c, StateAuthenticated, name, playerID)
		log.Printf("bridge: web client connected: %s as %s", ip, name)
		b.replayHistory(c)
		b.sendStatus(c, true, name)
		b.notifyWebJoin(name)
	} else {
		b.registry.Track(c, pendingState, name, uuid.Nil)
		b.sendStatus(c, false, name)
	}
}

// HandleMessage processes one inbound text payload: keepalives, JSON
// commands, then plain chat through rate limiting and content policy.
// Malformed frames are ignored; the connection stays open.
func (b *Bridge) HandleMessage(c Client, raw string) {
	if raw == "PING" {
		return
	}

	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var cmd command
		if err := json.Unmarshal([]byte(trimmed), &cmd); err == nil && cmd.Type != "" {
			b.handleCommand(c, cmd)
			return
		}
		// JSON without a type field, or not actually JSON: treat as chat.
	}

	if b.registry.State(c) != StateAuthenticated {
		return
	}
	name := b.registry.Name(c)
	ip := c.RemoteIP()

	if !b.limiter.AllowMessage(ip) {
		b.stats.RateLimited("message")
		wait := ceilSeconds(b.limiter.MessageReset(ip).Seconds())
		b.sendSystem(c, fmt.Sprintf("Rate limit exceeded. Try again in %ds.", wait))
		return
	}

	msg := raw
	if runes := []rune(msg); len(runes) > b.cfg.MaxMessageLength {
		msg = string(runes[:b.cfg.MaxMessageLength])
	}
	msg = colorCodes.ReplaceAllString(msg, "")

	if b.cfg.EnableProfanityFilter && b.containsBlockedWord(msg) {
		b.sendSystem(c, "Message blocked: contains profanity.")
		return
	}
	if strings.TrimSpace(msg) == "" {
		return
	}

	b.stats.MessageReceived()
	b.relayToGame(name, msg)
}

// HandleClose drops the connection from the registry; a connection that had
// reached the authenticated state triggers leave notifications.
func (b *Bridge) HandleClose(c Client) {
	name, wasAuthenticated := b.registry.Remove(c)
	if wasAuthenticated {
		log.Printf("bridge: web client disconnected: %s", name)
		b.notifyWebQuit(name)
	}
}

// BroadcastChat appends to history, then fans a chat frame out to every
// authenticated connection. Delivery is best-effort per connection; one
// failed send never blocks the others.
func (b *Bridge) BroadcastChat(sender, text string) {
	b.hist.Append(sender, text)

	frame := MessageFrame{Type: frameMessage, User: sender, Message: text}
	for _, c := range b.registry.AuthenticatedClients() {
		if err := c.Send(frame); err == nil {
			b.stats.Broadcast()
		}
	}
}

// BroadcastRoster sends the combined player list to all authenticated
// connections. The in-game names are read on the game loop, the only place
// they are safe to touch.
func (b *Bridge) BroadcastRoster() {
	b.sink.Execute(func() {
		frame := PlayerListFrame{
			Type:     framePlayerList,
			Players:  b.sink.PlayerNames(),
			WebUsers: b.registry.WebUsers(),
		}
		if frame.Players == nil {
			frame.Players = []string{}
		}
		for _, c := range b.registry.AuthenticatedClients() {
			_ = c.Send(frame)
		}
	})
}

// GameChat implements game.Events: an in-game chat line reaches the web.
func (b *Bridge) GameChat(sender, text string) {
	b.BroadcastChat(sender, text)
}

// PlayerJoined implements game.Events.
func (b *Bridge) PlayerJoined(name string) {
	b.BroadcastChat(systemUser, name+" joined the server.")
	b.BroadcastRoster()
}

// PlayerLeft implements game.Events.
func (b *Bridge) PlayerLeft(name string) {
	b.BroadcastChat(systemUser, name+" left the server.")
	b.BroadcastRoster()
}

func (b *Bridge) handleCommand(c Client, cmd command) {
	switch cmd.Type {
	case cmdRequestOTP:
		b.handleOTPRequest(c, cmd)
	case cmdVerifyOTP:
		b.handleOTPVerify(c, cmd)
	default:
		// Unknown command types are ignored, the connection stays open.
	}
}

// handleOTPRequest throttles by IP, then looks the player up on the game
// loop and whispers them a fresh code. The cooldown slot is consumed on
// allow, before the lookup can fail.
func (b *Bridge) handleOTPRequest(c Client, cmd command) {
	ip := c.RemoteIP()
	if !b.limiter.AllowOTPRequest(ip) {
		b.stats.RateLimited("otp")
		wait := ceilSeconds(b.limiter.OTPReset(ip).Seconds())
		_ = c.Send(ErrorFrame{Type: frameError, Message: fmt.Sprintf("Rate limit exceeded. Please wait %ds.", wait)})
		return
	}

	username := strings.TrimSpace(cmd.Username)
	if username == "" {
		return
	}

	b.stats.OTPRequested()
	b.sink.Execute(func() {
		playerID, online := b.sink.LookupPlayer(username)
		if !online {
			_ = c.Send(ErrorFrame{Type: frameError, Message: "Player not online"})
			return
		}
		code := b.otp.Issue(playerID)
		b.sink.Whisper(playerID, "[WebChat] Your Login Code: "+code)
		_ = c.Send(OTPSentFrame{Type: frameOTPSent})
	})
}

// handleOTPVerify checks the code on the game loop and, on success, mints a
// session token and promotes the live connection in place, so the client
// does not have to reconnect to start chatting.
func (b *Bridge) handleOTPVerify(c Client, cmd command) {
	username := strings.TrimSpace(cmd.Username)
	code := strings.TrimSpace(cmd.Code)
	if username == "" || code == "" {
		return
	}

	b.sink.Execute(func() {
		playerID, online := b.sink.LookupPlayer(username)
		if !online {
			_ = c.Send(ErrorFrame{Type: frameError, Message: "Player not online to verify"})
			return
		}
		if !b.otp.Verify(playerID, code) {
			b.stats.OTPVerified(false)
			_ = c.Send(ErrorFrame{Type: frameError, Message: "Invalid Code"})
			return
		}
		b.stats.OTPVerified(true)

		token := b.sessions.Create(playerID, username)
		_ = c.Send(AuthSuccessFrame{Type: frameAuthSuccess, Token: token, Username: username})
		b.promote(c, username, playerID)
	})
}

// promote upgrades a handshake connection after a successful OTP exchange;
// the join side effects fire exactly as they would have at connect time.
func (b *Bridge) promote(c Client, username string, playerID uuid.UUID) {
	name := b.registry.AssignName(username)
	if !b.registry.Promote(c, name, playerID) {
		return
	}
	log.Printf("bridge: web client linked: %s as %s", c.RemoteIP(), name)
	b.replayHistory(c)
	b.notifyWebJoin(name)
}

// relayToGame schedules delivery on the game loop and echoes the line back
// to web clients from there, preserving the game's view of ordering.
func (b *Bridge) relayToGame(sender, text string) {
	b.sink.Execute(func() {
		b.sink.DeliverChat(sender, text)
		b.BroadcastChat(sender, text)
	})
}

func (b *Bridge) notifyWebJoin(name string) {
	b.sink.Execute(func() {
		b.sink.DeliverNotice(name + " joined the chat.")
		b.BroadcastChat(systemUser, name+" joined the chat.")
		b.BroadcastRoster()
	})
}

func (b *Bridge) notifyWebQuit(name string) {
	b.sink.Execute(func() {
		b.sink.DeliverNotice(name + " left the chat.")
		b.BroadcastChat(systemUser, name+" left the chat.")
		b.BroadcastRoster()
	})
}

// replayHistory sends every remaining entry oldest first, each as its own
// chat frame, so the client renders them with its normal message path.
func (b *Bridge) replayHistory(c Client) {
	for _, entry := range b.hist.Snapshot() {
		if err := c.Send(MessageFrame{Type: frameMessage, User: entry.User, Message: entry.Text}); err != nil {
			return
		}
	}
}

func (b *Bridge) sendStatus(c Client, authenticated bool, name string) {
	_ = c.Send(StatusFrame{
		Type:          frameStatus,
		Authenticated: authenticated,
		AuthMode:      string(b.cfg.AuthMode),
		Username:      name,
		Favicon:       b.cfg.Favicon,
		DefaultSound:  b.cfg.DefaultSound,
		SoundPresets:  b.cfg.SoundPresets,
	})
}

func (b *Bridge) sendSystem(c Client, text string) {
	_ = c.Send(MessageFrame{Type: frameMessage, User: systemUser, Message: text})
}

func (b *Bridge) containsBlockedWord(msg string) bool {
	lower := strings.ToLower(msg)
	for _, word := range b.cfg.ProfanityList {
		if word != "" && strings.Contains(lower, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

// ceilSeconds rounds a wait time up so the user-facing countdown is never
// reported as zero while the limit is still in force.
func ceilSeconds(s float64) int {
	return int(math.Ceil(s))
}
