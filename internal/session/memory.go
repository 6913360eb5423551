package session

import (
	"context"
	"sync"
	"time"

	"github.com/solatis/waypoint/internal/types"
)

// MemoryStore keeps session state in process memory. Suitable for a single
// instance; use RedisStore when several instances share sessions.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[types.SessionID]State
	ttl     time.Duration
	now     func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryTTL sets the entry lifetime. Zero disables expiry.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.ttl = ttl }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an empty store with DefaultTTL.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[types.SessionID]State),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Load(_ context.Context, id types.SessionID) (*State, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	st, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, types.ErrSessionNotFound
	}

	if s.expired(st) {
		s.mu.Lock()
		// re-check: a concurrent Save may have refreshed the entry
		if cur, ok := s.entries[id]; ok && s.expired(cur) {
			delete(s.entries, id)
		}
		s.mu.Unlock()
		return nil, types.ErrSessionNotFound
	}
	return &st, nil
}

func (s *MemoryStore) Save(_ context.Context, st *State) error {
	if st == nil || st.ID == "" {
		return ErrInvalidID
	}

	cp := *st
	cp.UpdatedAt = s.now()

	s.mu.Lock()
	s.entries[st.ID] = cp
	s.mu.Unlock()

	st.UpdatedAt = cp.UpdatedAt
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id types.SessionID) error {
	if id == "" {
		return ErrInvalidID
	}
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) expired(st State) bool {
	return s.ttl > 0 && s.now().Sub(st.UpdatedAt) >= s.ttl
}
