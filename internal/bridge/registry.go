package bridge

import (
	"fmt"
	"math/rand"
	"regexp"
	"sync"

	"github.com/google/uuid"
)

// AuthState is a connection's position in the authentication state machine.
type AuthState int

const (
	// StateGuest is an open-mode connection that never supplied a display
	// name. Like a handshake connection it cannot send chat.
	StateGuest AuthState = iota
	// StateHandshake is connected but not yet authorized to chat, pending
	// credentials or the OTP exchange.
	StateHandshake
	// StateAuthenticated is registered, can chat, and appears in the roster.
	StateAuthenticated
	// StateRejected never reached the registry; the transport was closed.
	StateRejected
)

// Client is what the bridge sees of one live transport session. The
// WebSocket layer implements it; tests substitute fakes.
type Client interface {
	ID() string
	RemoteIP() string
	Send(v any) error
	Close(code int, reason string)
}

type clientInfo struct {
	name     string
	state    AuthState
	playerID uuid.UUID
}

// Registry owns the set of tracked connections and is the only writer of
// display-name assignment. Broadcast iteration works on snapshots, so a
// connection added mid-broadcast may miss that broadcast.
type Registry struct {
	mu      sync.RWMutex
	clients map[Client]*clientInfo
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[Client]*clientInfo)}
}

var nameStrip = regexp.MustCompile(`[^A-Za-z0-9_]`)

// NormalizeName truncates the requested name to 16 characters and strips
// everything outside [A-Za-z0-9_]. May return an empty string.
func NormalizeName(requested string) string {
	if runes := []rune(requested); len(runes) > 16 {
		requested = string(runes[:16])
	}
	return nameStrip.ReplaceAllString(requested, "")
}

// AssignName normalizes the requested display name, substitutes a random
// guest name when nothing is left, and resolves collisions with currently
// authenticated connections by appending a random numeric suffix. The
// check-then-assign is not atomic against a concurrent connect picking the
// same suffix; that narrow race is accepted.
func (r *Registry) AssignName(requested string) string {
	name := NormalizeName(requested)
	if name == "" {
		name = fmt.Sprintf("Guest_%d", rand.Intn(1000))
	}
	if r.nameInUse(name) {
		base := name
		if runes := []rune(base); len(runes) > 12 {
			base = string(runes[:12])
		}
		name = fmt.Sprintf("%s_%d", base, rand.Intn(999))
	}
	return name
}

func (r *Registry) nameInUse(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, info := range r.clients {
		if info.state == StateAuthenticated && info.name == name {
			return true
		}
	}
	return false
}

// Track adds a connection in the given state.
func (r *Registry) Track(c Client, state AuthState, name string, playerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = &clientInfo{name: name, state: state, playerID: playerID}
}

// Promote moves a guest or handshake connection to authenticated, binding
// its final name and identity. Returns false if the connection is unknown
// or already authenticated.
func (r *Registry) Promote(c Client, name string, playerID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.clients[c]
	if !ok || info.state == StateAuthenticated {
		return false
	}
	info.state = StateAuthenticated
	info.name = name
	info.playerID = playerID
	return true
}

// Remove drops the connection, returning its name and whether it had
// reached the authenticated state. Idempotent.
func (r *Registry) Remove(c Client) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.clients[c]
	if !ok {
		return "", false
	}
	delete(r.clients, c)
	return info.name, info.state == StateAuthenticated
}

// State reports the connection's auth state; untracked connections report
// StateRejected.
func (r *Registry) State(c Client) AuthState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if info, ok := r.clients[c]; ok {
		return info.state
	}
	return StateRejected
}

// Name returns the connection's assigned display name.
func (r *Registry) Name(c Client) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if info, ok := r.clients[c]; ok {
		return info.name
	}
	return ""
}

// WebUsers lists display names of authenticated connections.
func (r *Registry) WebUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.clients))
	for _, info := range r.clients {
		if info.state == StateAuthenticated {
			names = append(names, info.name)
		}
	}
	return names
}

// AuthenticatedClients snapshots the connections eligible for broadcast.
func (r *Registry) AuthenticatedClients() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]Client, 0, len(r.clients))
	for c, info := range r.clients {
		if info.state == StateAuthenticated {
			clients = append(clients, c)
		}
	}
	return clients
}

// Count reports the number of tracked connections in any state.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
