package repository

import (
	"context"
	"sync"
	"time"
)

type memoryKVStore struct {
	mu      sync.RWMutex
	data    map[string]string
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryKVStore creates a process-local KV store. Used when Redis is not configured.
func NewMemoryKVStore() KVStore {
	return newMemoryKVStore(time.Now)
}

func newMemoryKVStore(now func() time.Time) *memoryKVStore {
	return &memoryKVStore{
		data:    make(map[string]string),
		expires: make(map[string]time.Time),
		now:     now,
	}
}

func (s *memoryKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	v, ok := s.data[key]
	exp, hasTTL := s.expires[key]
	s.mu.RUnlock()

	if ok && hasTTL && !s.now().Before(exp) {
		s.mu.Lock()
		// Re-check under the write lock; the key may have been set again
		if exp, hasTTL := s.expires[key]; hasTTL && !s.now().Before(exp) {
			delete(s.data, key)
			delete(s.expires, key)
		}
		s.mu.Unlock()
		return "", false, nil
	}
	return v, ok, nil
}

func (s *memoryKVStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	delete(s.expires, key)
	return nil
}

// SetWithTTL stores value until ttl elapses. Expired keys are swept on each call.
func (s *memoryKVStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Set(ctx, key, value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, exp := range s.expires {
		if !now.Before(exp) {
			delete(s.data, k)
			delete(s.expires, k)
		}
	}

	s.data[key] = value
	s.expires[key] = now.Add(ttl)
	return nil
}

func (s *memoryKVStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	delete(s.expires, key)
	return nil
}

func (s *memoryKVStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]string)
	s.expires = make(map[string]time.Time)
	return nil
}
