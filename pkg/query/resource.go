// Package query provides per-entity resource queries keyed by Pokémon id.
//
// A Resource tracks one id at a time. Changing the id cancels the request in
// flight and tags the new one with a fresh generation; only a completion
// whose generation is still current may write state, so a slow response for
// an earlier id can never overwrite the value for a later one.
package query

import (
	"context"
	"sync"

	"github.com/Sternrassler/pokedex-client/pkg/pokemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	staleResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_query_stale_responses_total",
		Help: "Completions dropped because a newer request superseded them",
	}, []string{"kind"})

	queryResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_query_results_total",
		Help: "Applied query completions by kind and result",
	}, []string{"kind", "result"})
)

// Fetcher loads the resource for one id.
type Fetcher[T any] func(ctx context.Context, id int) (T, error)

// DetailFetcher is implemented by *client.Client.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, id int) (pokemon.Detail, error)
}

// SpeciesFetcher is implemented by *client.Client.
type SpeciesFetcher interface {
	FetchSpecies(ctx context.Context, id int) (pokemon.Species, error)
}

// State is a point-in-time copy of a Resource.
type State[T any] struct {
	ID      int
	Value   *T
	Loading bool
	Err     error
}

// Resource is a cancellable, generation-tagged query for one entity.
type Resource[T any] struct {
	kind   string
	fetch  Fetcher[T]
	clone  func(T) T
	logger zerolog.Logger

	mu         sync.Mutex
	state      State[T]
	started    bool
	closed     bool
	generation uint64
	cancel     context.CancelFunc
	settled    chan struct{}

	listeners   map[int]func(State[T])
	listenerID  int
	version     uint64 // bumped on every state transition
	delivered   uint64 // version last handed to listeners
	dispatching bool
}

// New creates a resource query. clone may be nil for value types without
// shared backing storage.
func New[T any](kind string, fetch Fetcher[T], clone func(T) T, logger zerolog.Logger) *Resource[T] {
	if fetch == nil {
		panic("query: fetch cannot be nil")
	}
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Resource[T]{
		kind:      kind,
		fetch:     fetch,
		clone:     clone,
		logger:    logger.With().Str("kind", kind).Logger(),
		settled:   closedChan(),
		listeners: make(map[int]func(State[T])),
	}
}

// NewDetailQuery creates a query over /pokemon/{id}.
func NewDetailQuery(f DetailFetcher, logger zerolog.Logger) *Resource[pokemon.Detail] {
	return New("detail", f.FetchDetail, pokemon.Detail.Clone, logger)
}

// NewSpeciesQuery creates a query over /pokemon-species/{id}.
func NewSpeciesQuery(f SpeciesFetcher, logger zerolog.Logger) *Resource[pokemon.Species] {
	return New("species", f.FetchSpecies, pokemon.Species.Clone, logger)
}

// SetID points the query at id. The same id while loading or loaded is a
// no-op; the same id after a failure re-issues. A closed query ignores it.
func (r *Resource[T]) SetID(id int) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if r.started && r.state.ID == id && r.state.Err == nil {
		r.mu.Unlock()
		return
	}
	r.issueLocked(id)
	r.mu.Unlock()
	r.notify()
}

// Reload re-issues the request for the current id.
func (r *Resource[T]) Reload() {
	r.mu.Lock()
	if r.closed || !r.started {
		r.mu.Unlock()
		return
	}
	r.issueLocked(r.state.ID)
	r.mu.Unlock()
	r.notify()
}

// Close cancels any request in flight. Late completions are dropped.
func (r *Resource[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.generation++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.settleLocked()
}

// State returns a copy of the current state.
func (r *Resource[T]) State() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Wait blocks until the current generation settles or ctx is done, then
// returns the state.
func (r *Resource[T]) Wait(ctx context.Context) (State[T], error) {
	for {
		r.mu.Lock()
		settled := r.settled
		r.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return r.State(), ctx.Err()
		}

		r.mu.Lock()
		current := r.settled == settled
		s := r.snapshotLocked()
		r.mu.Unlock()
		if current {
			return s, nil
		}
		// superseded while waiting; follow the newer generation
	}
}

// Subscribe registers fn to be called with a snapshot after state
// transitions. Snapshots arrive in order and the last one delivered is the
// settled state. fn may call back into the query. The returned func removes
// the listener.
func (r *Resource[T]) Subscribe(fn func(State[T])) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listenerID++
	id := r.listenerID
	r.listeners[id] = fn
	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

func (r *Resource[T]) issueLocked(id int) {
	if r.cancel != nil {
		r.cancel()
	}
	r.settleLocked()

	r.generation++
	gen := r.generation
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.started = true
	r.settled = make(chan struct{})
	r.state = State[T]{ID: id, Loading: true}
	r.version++

	r.logger.Debug().
		Int("id", id).
		Uint64("generation", gen).
		Msg("Issuing query")

	go r.run(ctx, id, gen)
}

func (r *Resource[T]) run(ctx context.Context, id int, gen uint64) {
	value, err := r.fetch(ctx, id)

	r.mu.Lock()
	if gen != r.generation {
		r.mu.Unlock()
		staleResponses.WithLabelValues(r.kind).Inc()
		r.logger.Debug().
			Int("id", id).
			Uint64("generation", gen).
			Msg("Dropping superseded response")
		return
	}

	if err != nil {
		r.state = State[T]{ID: id, Err: err}
		queryResults.WithLabelValues(r.kind, "error").Inc()
		r.logger.Warn().
			Err(err).
			Int("id", id).
			Uint64("generation", gen).
			Msg("Query failed")
	} else {
		v := r.clone(value)
		r.state = State[T]{ID: id, Value: &v}
		queryResults.WithLabelValues(r.kind, "ok").Inc()
	}
	r.version++
	r.cancel()
	r.cancel = nil
	r.settleLocked()
	r.mu.Unlock()
	r.notify()
}

// settleLocked releases Wait callers of the current generation.
func (r *Resource[T]) settleLocked() {
	select {
	case <-r.settled:
	default:
		close(r.settled)
	}
}

func (r *Resource[T]) snapshotLocked() State[T] {
	s := r.state
	if s.Value != nil {
		v := r.clone(*s.Value)
		s.Value = &v
	}
	return s
}

// notify hands the latest snapshot to listeners. Only one goroutine
// delivers at a time; a transition made while it is busy is picked up by its
// next pass, so listeners see states in order and always end on the current
// one. Bursts may be coalesced into their latest state.
func (r *Resource[T]) notify() {
	r.mu.Lock()
	if r.dispatching {
		r.mu.Unlock()
		return
	}
	r.dispatching = true
	for r.delivered != r.version {
		r.delivered = r.version
		if len(r.listeners) == 0 {
			continue
		}
		snap := r.snapshotLocked()
		fns := make([]func(State[T]), 0, len(r.listeners))
		for _, fn := range r.listeners {
			fns = append(fns, fn)
		}
		r.mu.Unlock()

		for _, fn := range fns {
			fn(snap)
		}
		r.mu.Lock()
	}
	r.dispatching = false
	r.mu.Unlock()
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
