package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client for testing. Integration tests
// in pkg/client run the same flows against a testcontainers Redis.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

// stores returns every backend the manager tests should run against.
func stores(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore(16, time.Hour) },
		"redis":  func(t *testing.T) Store { return NewRedisStore(setupTestRedis(t)) },
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil store")
		}
	}()
	NewManager(nil)
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil)
}

func TestManager_SetAndGet(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			manager := NewManager(newStore(t))
			ctx := context.Background()
			key := Key{Endpoint: "/pokemon/25"}

			entry := &Entry{
				Data:         []byte(`{"id": 25, "name": "pikachu"}`),
				ETag:         `W/"abc123"`,
				Expires:      time.Now().Add(5 * time.Minute),
				LastModified: time.Now().Add(-1 * time.Hour),
				CachedAt:     time.Now(),
			}

			if err := manager.Set(ctx, key, entry); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			retrieved, err := manager.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if string(retrieved.Data) != string(entry.Data) {
				t.Errorf("Data mismatch: got %s, want %s", retrieved.Data, entry.Data)
			}
			if retrieved.ETag != entry.ETag {
				t.Errorf("ETag mismatch: got %s, want %s", retrieved.ETag, entry.ETag)
			}
			if retrieved.IsExpired() {
				t.Error("retrieved entry should be fresh")
			}
		})
	}
}

func TestManager_Get_CacheMiss(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			manager := NewManager(newStore(t))
			_, err := manager.Get(context.Background(), Key{Endpoint: "/pokemon/9999"})
			if !errors.Is(err, ErrCacheMiss) {
				t.Errorf("Expected ErrCacheMiss, got %v", err)
			}
		})
	}
}

func TestManager_StaleEntries(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			manager := NewManager(newStore(t))
			ctx := context.Background()

			// Expired without validators: not cached at all.
			plain := Key{Endpoint: "/pokemon/1"}
			if err := manager.Set(ctx, plain, &Entry{Data: []byte("{}"), Expires: time.Now().Add(-time.Hour)}); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if _, err := manager.Get(ctx, plain); !errors.Is(err, ErrCacheMiss) {
				t.Errorf("Expected ErrCacheMiss for expired entry, got %v", err)
			}

			// Expired with an ETag: kept for revalidation within the stale window.
			tagged := Key{Endpoint: "/pokemon/2"}
			entry := &Entry{Data: []byte("{}"), ETag: `W/"v1"`, Expires: time.Now().Add(-time.Second)}
			if err := manager.Set(ctx, tagged, entry); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			got, err := manager.Get(ctx, tagged)
			if err != nil {
				t.Fatalf("Get of stale revalidatable entry failed: %v", err)
			}
			if !got.IsExpired() {
				t.Error("entry should be reported stale")
			}
		})
	}
}

func TestManager_DeleteAndPurge(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			manager := NewManager(newStore(t))
			ctx := context.Background()
			a := Key{Endpoint: "/pokemon/1"}
			b := Key{Endpoint: "/pokemon-species/1"}

			for _, k := range []Key{a, b} {
				if err := manager.Set(ctx, k, &Entry{Data: []byte("{}"), Expires: time.Now().Add(time.Minute)}); err != nil {
					t.Fatalf("Set failed: %v", err)
				}
			}

			if err := manager.Delete(ctx, a); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := manager.Get(ctx, a); !errors.Is(err, ErrCacheMiss) {
				t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
			}

			if err := manager.Purge(ctx); err != nil {
				t.Fatalf("Purge failed: %v", err)
			}
			if _, err := manager.Get(ctx, b); !errors.Is(err, ErrCacheMiss) {
				t.Errorf("Expected ErrCacheMiss after Purge, got %v", err)
			}
		})
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	manager := NewManager(NewMemoryStore(4, 0))
	if err := manager.Set(context.Background(), Key{Endpoint: "/pokemon/1"}, nil); err == nil {
		t.Error("Set with nil entry should return error")
	}
}

func TestManager_Get_InvalidEntry(t *testing.T) {
	store := NewMemoryStore(4, 0)
	manager := NewManager(store)
	ctx := context.Background()
	key := Key{Endpoint: "/pokemon/1"}

	if err := store.Set(ctx, key.String(), []byte("not json"), time.Minute); err != nil {
		t.Fatalf("store.Set failed: %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry, got %v", err)
	}
	if store.Len() != 0 {
		t.Error("corrupted entry should be removed")
	}
}

func TestMemoryStore_Eviction(t *testing.T) {
	store := NewMemoryStore(2, 0)
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		_ = store.Set(ctx, k, []byte(k), time.Minute)
	}
	if _, err := store.Get(ctx, "a"); !errors.Is(err, ErrCacheMiss) {
		t.Error("least recently used key should have been evicted")
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
}

func TestMemoryStore_PerEntryDeadline(t *testing.T) {
	store := NewMemoryStore(2, 0)
	ctx := context.Background()
	_ = store.Set(ctx, "short", []byte("x"), -time.Second)
	if _, err := store.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Error("entry past its deadline should be a miss")
	}
}
