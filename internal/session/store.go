package session

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store keeps the inference endpoint chosen by each session. Reading an
// endpoint extends its lifetime, matching the sliding session cookie.
type Store interface {
	Endpoint(ctx context.Context, sessionID string) (string, error)
	SetEndpoint(ctx context.Context, sessionID, endpoint string) error
}

type memoryEntry struct {
	endpoint  string
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Entries vanish on restart.
type MemoryStore struct {
	mu       sync.Mutex
	entries  map[string]memoryEntry
	fallback string
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore returns a store that answers fallback for unknown sessions.
func NewMemoryStore(fallback string, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:  make(map[string]memoryEntry),
		fallback: strings.TrimSpace(fallback),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Endpoint(ctx context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[sessionID]
	if !ok {
		return s.fallback, nil
	}
	now := s.now()
	if s.ttl > 0 && now.After(entry.expiresAt) {
		delete(s.entries, sessionID)
		return s.fallback, nil
	}
	entry.expiresAt = now.Add(s.ttl)
	s.entries[sessionID] = entry
	return entry.endpoint, nil
}

func (s *MemoryStore) SetEndpoint(ctx context.Context, sessionID, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)
	s.entries[sessionID] = memoryEntry{
		endpoint:  strings.TrimSpace(endpoint),
		expiresAt: now.Add(s.ttl),
	}
	return nil
}

// sweep drops expired entries. Callers hold mu.
func (s *MemoryStore) sweep(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}
