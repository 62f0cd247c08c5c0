package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

type memorySet struct {
	members   map[string]struct{}
	expiresAt time.Time
}

// memoryStore is a process-local Store used when no redis address is
// configured and as a fixture in tests. Expiry is checked lazily on read.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	sets    map[string]memorySet
}

func NewMemoryStore() Store {
	return &memoryStore{
		entries: make(map[string]memoryEntry),
		sets:    make(map[string]memorySet),
	}
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.entries, key)
		delete(s.sets, key)
	}
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) AddToSet(_ context.Context, key, member string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[key]
	if !ok || (!set.expiresAt.IsZero() && time.Now().After(set.expiresAt)) {
		set = memorySet{members: make(map[string]struct{})}
	}
	set.members[member] = struct{}{}
	if ttl > 0 {
		set.expiresAt = time.Now().Add(ttl)
	}
	s.sets[key] = set
	return nil
}

func (s *memoryStore) SetMembers(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	set, ok := s.sets[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !set.expiresAt.IsZero() && time.Now().After(set.expiresAt) {
		s.mu.Lock()
		delete(s.sets, key)
		s.mu.Unlock()
		return nil, nil
	}
	members := make([]string, 0, len(set.members))
	for member := range set.members {
		members = append(members, member)
	}
	return members, nil
}
