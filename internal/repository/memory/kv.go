package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"topicrelay/internal/repository"
)

// DefaultSize is the entry capacity used when NewKVStore gets a non-positive size
const DefaultSize = 50000

// ErrFull is returned when a write needs room and only non-expiring entries remain
var ErrFull = errors.New("memory store is full")

// entry wraps a value with its expiry; a zero expiresAt never expires
type entry struct {
	value     string
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// KVStore implements repository.KVStore on a bounded LRU.
// At capacity a write makes room by dropping expired entries, then the least
// recently used entry that carries a TTL. Entries stored without a TTL are
// never evicted: once they fill the store, new keys are refused with ErrFull.
type KVStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, entry]
	size  int
	now   func() time.Time
}

// NewKVStore creates an in-memory store holding up to size entries
func NewKVStore(size int) (*KVStore, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &KVStore{cache: cache, size: size, now: time.Now}, nil
}

// SetClock replaces the store's time source
func (s *KVStore) SetClock(now func() time.Time) {
	s.now = now
}

// Get returns the live value stored under key
func (s *KVStore) Get(_ context.Context, key string) (string, error) {
	e, ok := s.cache.Get(key)
	if !ok {
		return "", repository.ErrNotFound
	}
	if e.expired(s.now()) {
		s.cache.Remove(key)
		return "", repository.ErrNotFound
	}
	return e.value, nil
}

// Put stores value under key
func (s *KVStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.makeRoom(key); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	s.cache.Add(key, e)
	return nil
}

// makeRoom frees one slot for a new key so the LRU never evicts on its own
func (s *KVStore) makeRoom(key string) error {
	if s.cache.Contains(key) || s.cache.Len() < s.size {
		return nil
	}

	now := s.now()
	keys := s.cache.Keys() // oldest first
	for _, k := range keys {
		if e, ok := s.cache.Peek(k); ok && e.expired(now) {
			s.cache.Remove(k)
			return nil
		}
	}
	for _, k := range keys {
		if e, ok := s.cache.Peek(k); ok && !e.expiresAt.IsZero() {
			s.cache.Remove(k)
			return nil
		}
	}
	return ErrFull
}

// Delete removes key if present
func (s *KVStore) Delete(_ context.Context, key string) error {
	s.cache.Remove(key)
	return nil
}

// List returns live keys starting with prefix
func (s *KVStore) List(_ context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = repository.DefaultListLimit
	}

	now := s.now()
	var keys []string
	for _, key := range s.cache.Keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		e, ok := s.cache.Peek(key)
		if !ok || e.expired(now) {
			continue
		}
		keys = append(keys, key)
	}

	sort.Strings(keys)
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

// Len reports the number of stored entries, expired ones included
func (s *KVStore) Len() int {
	return s.cache.Len()
}

// PurgeExpired removes every expired entry and reports how many were dropped
func (s *KVStore) PurgeExpired(_ context.Context) (int64, error) {
	now := s.now()
	var n int64
	for _, key := range s.cache.Keys() {
		if e, ok := s.cache.Peek(key); ok && e.expired(now) {
			s.cache.Remove(key)
			n++
		}
	}
	return n, nil
}
