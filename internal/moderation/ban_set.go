package moderation

import (
	"log"
	"os"
	"sort"
	"sync"

	"github.com/VenB304/fabric-simple-webchat/internal/storage"
)

// BanSet is the persisted set of banned IPs. Banned IPs are rejected before
// any auth-mode logic runs. Every mutation schedules a whole-file rewrite of
// the JSON ban list.
type BanSet struct {
	mu  sync.RWMutex
	ips map[string]struct{}

	path  string
	queue *storage.Queue
}

// NewBanSet loads the ban file at path; a missing or unreadable file means
// an empty set.
func NewBanSet(path string, queue *storage.Queue) *BanSet {
	b := &BanSet{
		ips:   make(map[string]struct{}),
		path:  path,
		queue: queue,
	}

	var loaded []string
	if err := storage.LoadJSON(path, &loaded); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("moderation: could not load bans, starting empty: %v", err)
		}
	} else {
		for _, ip := range loaded {
			b.ips[ip] = struct{}{}
		}
	}
	return b
}

// IsBanned reports whether ip is on the ban list.
func (b *BanSet) IsBanned(ip string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, banned := b.ips[ip]
	return banned
}

// Ban adds ip to the list and persists it.
func (b *BanSet) Ban(ip string) {
	b.mu.Lock()
	b.ips[ip] = struct{}{}
	b.mu.Unlock()
	b.save()
}

// Unban removes ip from the list and persists it.
func (b *BanSet) Unban(ip string) {
	b.mu.Lock()
	delete(b.ips, ip)
	b.mu.Unlock()
	b.save()
}

// List returns the banned IPs in sorted order.
func (b *BanSet) List() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ips := make([]string, 0, len(b.ips))
	for ip := range b.ips {
		ips = append(ips, ip)
	}
	sort.Strings(ips)
	return ips
}

func (b *BanSet) save() {
	snapshot := b.List()
	path := b.path
	b.queue.Submit(func() {
		if err := storage.SaveJSON(path, snapshot); err != nil {
			log.Printf("moderation: failed to persist bans: %v", err)
		}
	})
}
