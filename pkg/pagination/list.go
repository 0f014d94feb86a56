package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/pokedex-client/pkg/pokemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// PageSize is the fixed window requested per page.
const PageSize = 50

var (
	listItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pokedex_list_items",
		Help: "Number of deduplicated items held by the most recently updated list",
	})

	pageLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_list_page_loads_total",
		Help: "Total list page loads by result",
	}, []string{"result"})
)

// ListFetcher fetches one list page. *client.Client implements it.
type ListFetcher interface {
	FetchListPage(ctx context.Context, offset, limit int) (pokemon.ListPage, error)
}

// ListState is a point-in-time copy of a List.
type ListState struct {
	Items      []pokemon.ListItem
	Loading    bool
	Exhausted  bool
	NextOffset int
	Err        error
}

// List is the paginated Pokémon index query. It is safe for concurrent use;
// at most one page load is in flight at any time.
type List struct {
	fetcher ListFetcher
	logger  zerolog.Logger

	mu         sync.Mutex
	items      []pokemon.ListItem
	seen       map[int]struct{}
	nextOffset int
	exhausted  bool
	pending    bool
	inflight   chan struct{}
	err        error

	listeners   map[int]func(ListState)
	listenerID  int
	version     uint64 // bumped on every state transition
	delivered   uint64 // version last handed to listeners
	dispatching bool
}

// NewList creates an empty list positioned at offset 0.
func NewList(fetcher ListFetcher, logger zerolog.Logger) *List {
	if fetcher == nil {
		panic("pagination: fetcher cannot be nil")
	}
	return &List{
		fetcher:   fetcher,
		logger:    logger,
		seen:      make(map[int]struct{}),
		listeners: make(map[int]func(ListState)),
	}
}

// LoadNext fetches the next window and merges it. It returns the number of
// new items. A call made while a load is pending or after the index is
// exhausted is a no-op returning (0, nil).
func (l *List) LoadNext(ctx context.Context) (int, error) {
	added, _, err := l.loadNext(ctx)
	return added, err
}

// LoadMore is LoadNext under the name presentation code binds to.
func (l *List) LoadMore(ctx context.Context) (int, error) {
	return l.LoadNext(ctx)
}

// loadNext reports whether this call issued the fetch.
func (l *List) loadNext(ctx context.Context) (int, bool, error) {
	l.mu.Lock()
	if l.pending || l.exhausted {
		l.mu.Unlock()
		return 0, false, nil
	}
	l.pending = true
	l.inflight = make(chan struct{})
	l.version++
	offset := l.nextOffset
	l.mu.Unlock()
	l.notify()

	start := time.Now()
	page, err := l.fetcher.FetchListPage(ctx, offset, PageSize)

	l.mu.Lock()
	l.pending = false
	close(l.inflight)
	l.inflight = nil
	l.version++

	if err != nil {
		l.err = err
		l.mu.Unlock()
		pageLoads.WithLabelValues("error").Inc()
		l.logger.Warn().
			Err(err).
			Int("offset", offset).
			Msg("List page load failed")
		l.notify()
		return 0, true, fmt.Errorf("load page offset=%d: %w", offset, err)
	}

	added := 0
	for _, item := range page.Items {
		if _, dup := l.seen[item.ID]; dup {
			continue
		}
		l.seen[item.ID] = struct{}{}
		l.items = append(l.items, item)
		added++
	}
	l.nextOffset = offset + PageSize
	l.exhausted = !page.HasMore
	l.err = nil
	total := len(l.items)
	exhausted := l.exhausted
	l.mu.Unlock()

	pageLoads.WithLabelValues("ok").Inc()
	listItems.Set(float64(total))
	l.logger.Debug().
		Int("offset", offset).
		Int("added", added).
		Int("duplicates", len(page.Items)-added).
		Int("total", total).
		Bool("exhausted", exhausted).
		Dur("duration", time.Since(start)).
		Msg("List page merged")
	l.notify()

	return added, true, nil
}

// Drain loads pages until the index is exhausted.
func (l *List) Drain(ctx context.Context) error {
	return l.DrainUntil(ctx, 0)
}

// DrainUntil loads pages until the index is exhausted or at least max items
// are held. max <= 0 means no bound. A load started elsewhere is waited for.
func (l *List) DrainUntil(ctx context.Context, max int) error {
	start := time.Now()
	for {
		l.mu.Lock()
		done := l.exhausted || (max > 0 && len(l.items) >= max)
		wait := l.inflight
		l.mu.Unlock()

		if done {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if wait != nil {
			select {
			case <-wait:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		if _, _, err := l.loadNext(ctx); err != nil {
			return err
		}
	}

	snap := l.Snapshot()
	l.logger.Info().
		Int("items", len(snap.Items)).
		Bool("exhausted", snap.Exhausted).
		Dur("duration", time.Since(start)).
		Msg("List drained")
	return nil
}

// Snapshot returns a copy of the current state.
func (l *List) Snapshot() ListState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *List) snapshotLocked() ListState {
	return ListState{
		Items:      append([]pokemon.ListItem(nil), l.items...),
		Loading:    l.pending,
		Exhausted:  l.exhausted,
		NextOffset: l.nextOffset,
		Err:        l.err,
	}
}

// Subscribe registers fn to be called with a snapshot after state
// transitions, in order. The returned func removes the listener.
func (l *List) Subscribe(fn func(ListState)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listenerID++
	id := l.listenerID
	l.listeners[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.listeners, id)
		l.mu.Unlock()
	}
}

// notify calls listeners outside the lock with the latest snapshot. One
// goroutine delivers at a time and loops until no newer transition is left,
// so a listener never receives an older state after a newer one.
func (l *List) notify() {
	l.mu.Lock()
	if l.dispatching {
		l.mu.Unlock()
		return
	}
	l.dispatching = true
	for l.delivered != l.version {
		l.delivered = l.version
		if len(l.listeners) == 0 {
			continue
		}
		snap := l.snapshotLocked()
		fns := make([]func(ListState), 0, len(l.listeners))
		for _, fn := range l.listeners {
			fns = append(fns, fn)
		}
		l.mu.Unlock()

		for _, fn := range fns {
			fn(snap)
		}
		l.mu.Lock()
	}
	l.dispatching = false
	l.mu.Unlock()
}
