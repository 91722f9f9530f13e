package session

import (
	"context"
	"sync"
	"time"
)

type scopeValues struct {
	values    map[string]string
	updatedAt time.Time
}

type MemoryStore struct {
	mu     sync.RWMutex
	scopes map[string]*scopeValues
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scopes: make(map[string]*scopeValues), now: time.Now}
}

func (s *MemoryStore) Get(ctx context.Context, scope, key string) (string, bool, error) {
	if scope == "" {
		return "", false, ErrInvalidScope
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.scopes[scope]
	if !ok {
		return "", false, nil
	}
	value, ok := entry.values[key]
	return value, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, scope, key, value string) error {
	if scope == "" {
		return ErrInvalidScope
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.scopes[scope]
	if !ok {
		entry = &scopeValues{values: make(map[string]string)}
		s.scopes[scope] = entry
	}
	entry.values[key] = value
	entry.updatedAt = s.now()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, scope string, keys ...string) error {
	if scope == "" {
		return ErrInvalidScope
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.scopes[scope]
	if !ok {
		return nil
	}
	for _, key := range keys {
		delete(entry.values, key)
	}
	if len(entry.values) == 0 {
		delete(s.scopes, scope)
		return nil
	}
	entry.updatedAt = s.now()
	return nil
}

func (s *MemoryStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for scope, entry := range s.scopes {
		if entry.updatedAt.Before(before) {
			removed += int64(len(entry.values))
			delete(s.scopes, scope)
		}
	}
	return removed, nil
}
