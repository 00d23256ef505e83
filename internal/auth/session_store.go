package auth

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/VenB304/fabric-simple-webchat/internal/storage"
)

// SessionTTL is how long a linked session stays valid after creation.
const SessionTTL = 30 * 24 * time.Hour

// Session links a bearer token to a verified game identity.
type Session struct {
	PlayerID uuid.UUID `json:"uuid"`
	Username string    `json:"username"`
	Expiry   time.Time `json:"expiry"`
}

// SessionStore is the durable token -> Session map. Mutations are persisted
// as a whole-file JSON document through the background queue; lookups never
// wait on disk.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session

	path  string
	queue *storage.Queue
}

// NewSessionStore loads the session file at path, falling back to an empty
// map when the file is missing or unreadable. Disk problems are never fatal.
func NewSessionStore(path string, queue *storage.Queue) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]Session),
		path:     path,
		queue:    queue,
	}

	var loaded map[string]Session
	if err := storage.LoadJSON(path, &loaded); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("auth: could not load sessions, starting empty: %v", err)
		}
	} else if loaded != nil {
		// A file holding the JSON document "null" decodes to a nil map.
		s.sessions = loaded
		log.Printf("auth: loaded %d sessions", len(loaded))
	}
	return s
}

// Create mints a fresh bearer token for the given identity. The token map is
// scheduled for a durable write; the token is returned immediately.
func (s *SessionStore) Create(playerID uuid.UUID, username string) string {
	token := uuid.NewString()
	session := Session{
		PlayerID: playerID,
		Username: username,
		Expiry:   time.Now().Add(SessionTTL),
	}

	s.mu.Lock()
	s.sessions[token] = session
	s.mu.Unlock()

	s.save()
	return token
}

// Verify resolves a bearer token to its session. Expired entries are evicted
// on lookup and the eviction scheduled for a durable write. Safe for
// concurrent use from any connection goroutine.
func (s *SessionStore) Verify(token string) (Session, bool) {
	if token == "" {
		return Session{}, false
	}

	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return Session{}, false
	}

	if time.Now().After(session.Expiry) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Verify may have
		// already evicted this token.
		if cur, still := s.sessions[token]; still && time.Now().After(cur.Expiry) {
			delete(s.sessions, token)
			s.mu.Unlock()
			s.save()
		} else {
			s.mu.Unlock()
		}
		return Session{}, false
	}

	return session, true
}

// Cleanup sweeps expired sessions and persists the map if anything changed.
func (s *SessionStore) Cleanup() {
	now := time.Now()
	changed := false

	s.mu.Lock()
	for token, session := range s.sessions {
		if now.After(session.Expiry) {
			delete(s.sessions, token)
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.save()
	}
}

// Count reports the number of stored sessions, expired or not.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// save snapshots the map under the read lock and hands the write to the
// background queue. Write failures are logged and swallowed; the in-memory
// map stays authoritative.
func (s *SessionStore) save() {
	s.mu.RLock()
	snapshot := make(map[string]Session, len(s.sessions))
	for token, session := range s.sessions {
		snapshot[token] = session
	}
	s.mu.RUnlock()

	path := s.path
	s.queue.Submit(func() {
		if err := storage.SaveJSON(path, snapshot); err != nil {
			log.Printf("auth: failed to persist sessions: %v", err)
		}
	})
}
