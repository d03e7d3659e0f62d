package wishlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultRedisPrefix = "wishlist:count:"

type Entry struct {
	Count     int64     `json:"count"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Store keeps the last computed count per user. Entries live for the
// retention window after their last read or write.
type Store interface {
	Get(ctx context.Context, userID string) (Entry, bool)
	Set(ctx context.Context, userID string, entry Entry) error
	Delete(ctx context.Context, userID string) error
}

type memoryEntry struct {
	entry    Entry
	lastUsed time.Time
}

type MemoryStore struct {
	retain time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryStore(retain time.Duration) *MemoryStore {
	return &MemoryStore{
		retain:  retain,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[userID]
	if !ok {
		return Entry{}, false
	}
	if now.Sub(e.lastUsed) > s.retain {
		delete(s.entries, userID)
		return Entry{}, false
	}
	e.lastUsed = now
	s.entries[userID] = e
	return e.entry, true
}

func (s *MemoryStore) Set(_ context.Context, userID string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = memoryEntry{entry: entry, lastUsed: s.now()}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}

// Sweep evicts entries unused for longer than the retention window.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.entries {
		if now.Sub(e.lastUsed) > s.retain {
			delete(s.entries, id)
			evicted++
		}
	}
	return evicted
}

// RedisStore shares counts across replicas. Redis failures read as misses.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

type RedisStoreOption func(*RedisStore)

func WithPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

func NewRedisStore(client *redis.Client, retain time.Duration, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client: client,
		ttl:    retain,
		prefix: defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}

func (s *RedisStore) Get(ctx context.Context, userID string) (Entry, bool) {
	key := s.key(userID)
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false
	}
	if err != nil {
		// redis down: recompute instead of failing the badge
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return Entry{}, false
	}

	// Reading counts as use; push eviction out again.
	_ = s.client.Expire(ctx, key, s.ttl).Err()
	return entry, true
}

func (s *RedisStore) Set(ctx context.Context, userID string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal wishlist entry: %w", err)
	}
	if err := s.client.Set(ctx, s.key(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set wishlist count for %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("delete wishlist count for %s: %w", userID, err)
	}
	return nil
}
