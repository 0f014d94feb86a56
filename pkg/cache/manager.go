package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultStaleWindow is how long a stale but revalidatable entry is kept
// around so a conditional request can refresh it.
const DefaultStaleWindow = 10 * time.Minute

// Manager handles caching operations on top of a Store.
type Manager struct {
	store       Store
	staleWindow time.Duration
}

// NewManager creates a new cache manager.
func NewManager(store Store) *Manager {
	if store == nil {
		panic("cache store cannot be nil")
	}
	return &Manager{
		store:       store,
		staleWindow: DefaultStaleWindow,
	}
}

// Layer returns the backing store's layer name.
func (m *Manager) Layer() string { return m.store.Layer() }

// Get retrieves a cache entry by key. The entry may be stale; callers check
// IsExpired and revalidate. Returns ErrCacheMiss if the key doesn't exist.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.store.Get(ctx, key.String())
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		_ = m.Delete(ctx, key)
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	switch entry.FreshnessAt(time.Now()) {
	case Dead:
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	case Stale:
		CacheStaleHits.WithLabelValues(m.store.Layer()).Inc()
	default:
		CacheHits.WithLabelValues(m.store.Layer()).Inc()
	}
	return &entry, nil
}

// Set stores an entry. Fresh entries expire from the store after their TTL
// plus the stale window when they carry validators.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.StoreTTL(m.staleWindow)
	if ttl <= 0 {
		// Already expired and cannot be revalidated, don't cache
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.store.Set(ctx, key.String(), data, ttl); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return err
	}
	CacheWrites.WithLabelValues(m.store.Layer()).Inc()
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.store.Delete(ctx, key.String()); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return err
	}
	return nil
}

// Purge drops everything this process may have cached. Commands call it at
// startup so nothing cached by an earlier run is ever served.
func (m *Manager) Purge(ctx context.Context) error {
	if err := m.store.Purge(ctx); err != nil {
		CacheErrors.WithLabelValues("purge").Inc()
		return err
	}
	return nil
}
