package querycache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	val       []byte
	expiresAt time.Time
}

// memoryStore is the single-process fallback used when no redis is configured.
type memoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	versions map[string]int64
	entries  map[string]memoryEntry
}

func NewMemoryStore() Store {
	return &memoryStore{
		now:      time.Now,
		versions: map[string]int64{},
		entries:  map[string]memoryEntry{},
	}
}

func (s *memoryStore) Version(ctx context.Context, namespace string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[namespace], nil
}

func (s *memoryStore) Bump(ctx context.Context, namespace string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[namespace]++
	// entries of the old version are unreachable now; sweep expired ones opportunistically
	now := s.now()
	for k, e := range s.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	return s.versions[namespace], nil
}

func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return e.val, true, nil
}

func (s *memoryStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{val: val}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}
