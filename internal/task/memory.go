package task

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	rec       Record
	expiresAt time.Time
}

// MemoryStore is an in-process Store implementation for single-instance
// deployments, tests, and development.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64]memoryEntry
	ttl     time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs a memory-backed store whose records expire after
// ttl. A background janitor sweeps expired entries; call Close to stop it.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	s := &MemoryStore{
		entries: make(map[int64]memoryEntry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Save stores the record for the chat, resetting its expiry.
func (s *MemoryStore) Save(_ context.Context, chatID int64, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[chatID] = memoryEntry{rec: rec, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

// Get returns the record for the chat if present and not expired.
func (s *MemoryStore) Get(_ context.Context, chatID int64) (Record, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[chatID]
	s.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return Record{}, false, nil
	}
	return e.rec, true, nil
}

// Clear removes the record for the chat. Clearing an absent chat is a no-op.
func (s *MemoryStore) Clear(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, chatID)
	return nil
}

// Close stops the janitor goroutine.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemoryStore) janitor() {
	interval := s.ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for id, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
