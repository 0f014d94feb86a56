package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Store is a byte-oriented backend for the cache manager.
// Get returns ErrCacheMiss when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Purge drops every key written by this package.
	Purge(ctx context.Context) error
	// Layer names the backend in metrics ("memory", "redis").
	Layer() string
}

// MemoryStore is an in-process LRU backend. Entries live no longer than
// the process and no longer than the store-wide maximum age.
type MemoryStore struct {
	lru *expirable.LRU[string, memoryItem]
}

type memoryItem struct {
	data     []byte
	deadline time.Time
}

// NewMemoryStore creates an LRU store holding up to size entries for at most maxAge each.
func NewMemoryStore(size int, maxAge time.Duration) *MemoryStore {
	if size <= 0 {
		size = 1024
	}
	return &MemoryStore{lru: expirable.NewLRU[string, memoryItem](size, nil, maxAge)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	item, ok := s.lru.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	if time.Now().After(item.deadline) {
		s.lru.Remove(key)
		return nil, ErrCacheMiss
	}
	return item.data, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	s.lru.Add(key, memoryItem{data: data, deadline: time.Now().Add(ttl)})
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.lru.Remove(key)
	return nil
}

// Purge implements Store.
func (s *MemoryStore) Purge(_ context.Context) error {
	s.lru.Purge()
	return nil
}

// Layer implements Store.
func (s *MemoryStore) Layer() string { return "memory" }

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int { return s.lru.Len() }

// RedisStore shares cached responses between processes through Redis.
// Keys are namespaced with KeyPrefix so Purge only touches our data.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := s.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Purge implements Store by scanning the key namespace.
func (s *RedisStore) Purge(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, KeyPrefix+":*", 500).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := s.redis.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Layer implements Store.
func (s *RedisStore) Layer() string { return "redis" }
