package cache

import "time"

// Entry is one cached PokeAPI body plus the validators needed to revalidate
// it. Only 200 responses are cached, so no status is kept.
type Entry struct {
	Data         []byte    `json:"data"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified,omitzero"`
	Expires      time.Time `json:"expires"`
	CachedAt     time.Time `json:"cached_at"`
}

// Freshness classifies an entry at a point in time.
type Freshness int

const (
	// Fresh entries are served without contacting PokeAPI.
	Fresh Freshness = iota
	// Stale entries are revalidated with a conditional GET.
	Stale
	// Dead entries are expired and carry no validator; they are dropped.
	Dead
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "dead"
	}
}

// FreshnessAt reports how the entry may be used at now.
func (e *Entry) FreshnessAt(now time.Time) Freshness {
	switch {
	case now.Before(e.Expires):
		return Fresh
	case e.Revalidatable():
		return Stale
	default:
		return Dead
	}
}

// IsExpired reports whether the entry needs revalidation before use.
func (e *Entry) IsExpired() bool {
	return e.FreshnessAt(time.Now()) != Fresh
}

// TTL is the remaining freshness, 0 once expired.
func (e *Entry) TTL() time.Duration {
	return max(time.Until(e.Expires), 0)
}

// Revalidatable reports whether the entry carries an ETag or Last-Modified.
func (e *Entry) Revalidatable() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}

// StoreTTL is how long a store should keep the entry: its freshness, plus
// staleWindow when it can still be revalidated afterwards. 0 means do not store.
func (e *Entry) StoreTTL(staleWindow time.Duration) time.Duration {
	ttl := e.TTL()
	if e.Revalidatable() {
		ttl += staleWindow
	}
	return ttl
}
