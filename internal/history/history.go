package history

import (
	"sync"
	"time"
)

// Entry is one broadcast chat message. Entries are immutable once appended.
type Entry struct {
	Timestamp time.Time
	User      string
	Text      string
}

// Log is the bounded in-memory chat history replayed to newly authenticated
// connections. Entries append at the tail and evict from the head, bounded
// by both a maximum count and a retention age.
type Log struct {
	mu        sync.Mutex
	entries   []Entry
	max       int
	retention time.Duration
}

// NewLog creates a history bounded to max entries and the given retention.
func NewLog(max int, retention time.Duration) *Log {
	return &Log{
		max:       max,
		retention: retention,
	}
}

// Append records a message at the tail, then trims the head: first entries
// older than the retention window, then any excess over the count bound.
func (l *Log) Append(user, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, Entry{
		Timestamp: time.Now(),
		User:      user,
		Text:      text,
	})

	cutoff := time.Now().Add(-l.retention)
	start := 0
	for start < len(l.entries) && l.entries[start].Timestamp.Before(cutoff) {
		start++
	}
	if over := len(l.entries) - start - l.max; over > 0 {
		start += over
	}
	if start > 0 {
		l.entries = append([]Entry(nil), l.entries[start:]...)
	}
}

// Snapshot returns the remaining entries, oldest first. The copy is safe to
// iterate while other goroutines append.
func (l *Log) Snapshot() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Len reports the current entry count.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
