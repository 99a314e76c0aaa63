package prd

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store implementation.
type MemoryStore struct {
	mu    sync.RWMutex
	texts map[int64]string
}

// NewMemoryStore constructs an empty memory-backed context store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{texts: make(map[int64]string)}
}

// Set stores the PRD text for the chat, replacing any prior text.
func (s *MemoryStore) Set(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts[chatID] = text
	return nil
}

// Get returns the stored PRD text for the chat if any.
func (s *MemoryStore) Get(_ context.Context, chatID int64) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.texts[chatID]
	return text, ok, nil
}

// Clear removes the stored text for the chat.
func (s *MemoryStore) Clear(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.texts, chatID)
	return nil
}
