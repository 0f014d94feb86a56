package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/pokedex-client/pkg/pokemon"
	"github.com/rs/zerolog"
)

// gatedFetcher lets each test decide when and how each id resolves.
type gatedFetcher struct {
	mu    sync.Mutex
	gates map[int]chan result
	calls map[int]int
}

type result struct {
	detail pokemon.Detail
	err    error
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{gates: make(map[int]chan result), calls: make(map[int]int)}
}

func (g *gatedFetcher) gate(id int) chan result {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[id]
	if !ok {
		ch = make(chan result, 1)
		g.gates[id] = ch
	}
	return ch
}

// FetchDetail ignores ctx cancellation so superseded completions still arrive.
func (g *gatedFetcher) FetchDetail(_ context.Context, id int) (pokemon.Detail, error) {
	g.mu.Lock()
	g.calls[id]++
	g.mu.Unlock()
	res := <-g.gate(id)
	return res.detail, res.err
}

func (g *gatedFetcher) resolve(id int, name string) {
	g.gate(id) <- result{detail: pokemon.Detail{ID: id, Name: name, Types: []string{"electric"}}}
}

func (g *gatedFetcher) fail(id int, err error) {
	g.gate(id) <- result{err: err}
}

func (g *gatedFetcher) callCount(id int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[id]
}

func waitState[T any](t *testing.T, r *Resource[T]) State[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := r.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return s
}

func TestResource_LoadsValue(t *testing.T) {
	f := newGatedFetcher()
	q := NewDetailQuery(f, zerolog.Nop())
	defer q.Close()

	q.SetID(25)
	if s := q.State(); !s.Loading || s.ID != 25 || s.Value != nil {
		t.Errorf("state after SetID = %+v", s)
	}

	f.resolve(25, "pikachu")
	s := waitState(t, q)
	if s.Loading || s.Err != nil || s.Value == nil || s.Value.Name != "pikachu" {
		t.Errorf("settled state = %+v", s)
	}
}

func TestResource_SupersededResponseIsDropped(t *testing.T) {
	f := newGatedFetcher()
	q := NewDetailQuery(f, zerolog.Nop())
	defer q.Close()

	q.SetID(1)
	q.SetID(2)

	// R2 for B resolves first, then the slow R1 for A.
	f.resolve(2, "ivysaur")
	s := waitState(t, q)
	if s.Value == nil || s.Value.ID != 2 {
		t.Fatalf("state after R2 = %+v", s)
	}

	f.resolve(1, "bulbasaur")
	time.Sleep(50 * time.Millisecond)

	s = q.State()
	if s.ID != 2 || s.Value == nil || s.Value.Name != "ivysaur" || s.Loading {
		t.Errorf("state after late R1 = %+v, want id 2 ivysaur", s)
	}
}

func TestResource_SupersededErrorIsDropped(t *testing.T) {
	f := newGatedFetcher()
	q := NewDetailQuery(f, zerolog.Nop())
	defer q.Close()

	q.SetID(1)
	q.SetID(2)
	f.fail(1, errors.New("late failure"))
	time.Sleep(50 * time.Millisecond)

	if s := q.State(); !s.Loading || s.Err != nil || s.ID != 2 {
		t.Errorf("state after stale failure = %+v, want loading id 2", s)
	}
	f.resolve(2, "ivysaur")
	if s := waitState(t, q); s.Value == nil || s.Value.ID != 2 {
		t.Errorf("settled state = %+v", s)
	}
}

func TestResource_Error(t *testing.T) {
	f := newGatedFetcher()
	q := NewDetailQuery(f, zerolog.Nop())
	defer q.Close()

	boom := errors.New("502 from upstream")
	q.SetID(9)
	f.fail(9, boom)

	s := waitState(t, q)
	if !errors.Is(s.Err, boom) || s.Value != nil || s.Loading {
		t.Errorf("state = %+v, want error %v", s, boom)
	}
}

func TestResource_SameID(t *testing.T) {
	t.Run("no-op while loaded", func(t *testing.T) {
		f := newGatedFetcher()
		q := NewDetailQuery(f, zerolog.Nop())
		defer q.Close()

		q.SetID(4)
		f.resolve(4, "charmander")
		waitState(t, q)

		q.SetID(4)
		if f.callCount(4) != 1 {
			t.Errorf("fetch calls = %d, want 1", f.callCount(4))
		}
		if s := q.State(); s.Loading || s.Value == nil {
			t.Errorf("state = %+v", s)
		}
	})

	t.Run("re-issues after error", func(t *testing.T) {
		f := newGatedFetcher()
		q := NewDetailQuery(f, zerolog.Nop())
		defer q.Close()

		q.SetID(4)
		f.fail(4, errors.New("boom"))
		waitState(t, q)

		q.SetID(4)
		f.resolve(4, "charmander")
		s := waitState(t, q)
		if f.callCount(4) != 2 {
			t.Errorf("fetch calls = %d, want 2", f.callCount(4))
		}
		if s.Err != nil || s.Value == nil {
			t.Errorf("state = %+v", s)
		}
	})
}

func TestResource_Reload(t *testing.T) {
	f := newGatedFetcher()
	q := NewDetailQuery(f, zerolog.Nop())
	defer q.Close()

	q.Reload() // nothing to reload yet
	if f.callCount(0) != 0 {
		t.Error("Reload() before SetID should not fetch")
	}

	q.SetID(6)
	f.resolve(6, "charizard")
	waitState(t, q)

	q.Reload()
	if s := q.State(); !s.Loading {
		t.Errorf("state after Reload = %+v, want loading", s)
	}
	f.resolve(6, "charizard-mega")
	if s := waitState(t, q); s.Value == nil || s.Value.Name != "charizard-mega" {
		t.Errorf("reloaded state = %+v", s)
	}
}

func TestResource_CloseMakesLateResultsInert(t *testing.T) {
	f := newGatedFetcher()
	q := NewDetailQuery(f, zerolog.Nop())

	var (
		mu    sync.Mutex
		calls int
	)
	q.Subscribe(func(State[pokemon.Detail]) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	q.SetID(3)
	q.Close()
	f.resolve(3, "venusaur")
	time.Sleep(50 * time.Millisecond)

	if s := q.State(); s.Value != nil {
		t.Errorf("closed query received value: %+v", s)
	}

	q.SetID(5)
	if f.callCount(5) != 0 {
		t.Error("SetID() after Close should not fetch")
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("listener calls = %d, want 1 (loading only)", calls)
	}
}

func TestResource_CancelsSupersededContext(t *testing.T) {
	cancelled := make(chan int, 1)
	q := New("detail", func(ctx context.Context, id int) (pokemon.Detail, error) {
		if id == 1 {
			<-ctx.Done()
			cancelled <- id
			return pokemon.Detail{}, ctx.Err()
		}
		return pokemon.Detail{ID: id}, nil
	}, pokemon.Detail.Clone, zerolog.Nop())
	defer q.Close()

	q.SetID(1)
	q.SetID(2)

	select {
	case id := <-cancelled:
		if id != 1 {
			t.Errorf("cancelled id = %d, want 1", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("superseded request context was not cancelled")
	}
	if s := waitState(t, q); s.Err != nil || s.Value == nil || s.Value.ID != 2 {
		t.Errorf("state = %+v", s)
	}
}

func TestResource_StateIsCopy(t *testing.T) {
	f := newGatedFetcher()
	q := NewDetailQuery(f, zerolog.Nop())
	defer q.Close()

	q.SetID(25)
	f.resolve(25, "pikachu")
	s := waitState(t, q)
	s.Value.Types[0] = "mutated"

	if got := q.State().Value.Types[0]; got != "electric" {
		t.Errorf("internal state mutated: types[0] = %q", got)
	}
}

func TestSpeciesQuery(t *testing.T) {
	q := NewSpeciesQuery(speciesFunc(func(_ context.Context, id int) (pokemon.Species, error) {
		return pokemon.Species{ID: id, Genus: "Mouse Pokémon", EggGroups: []string{"field"}}, nil
	}), zerolog.Nop())
	defer q.Close()

	q.SetID(25)
	s := waitState(t, q)
	if s.Value == nil || s.Value.Genus != "Mouse Pokémon" {
		t.Errorf("state = %+v", s)
	}
}

type speciesFunc func(ctx context.Context, id int) (pokemon.Species, error)

func (f speciesFunc) FetchSpecies(ctx context.Context, id int) (pokemon.Species, error) {
	return f(ctx, id)
}

func TestResource_SubscribersEndOnSettledState(t *testing.T) {
	for trial := 0; trial < 20; trial++ {
		q := New("detail", func(_ context.Context, id int) (pokemon.Detail, error) {
			return pokemon.Detail{ID: id}, nil
		}, pokemon.Detail.Clone, zerolog.Nop())

		var stalled atomic.Bool
		q.Subscribe(func(s State[pokemon.Detail]) {
			if s.Loading && stalled.CompareAndSwap(false, true) {
				time.Sleep(20 * time.Millisecond)
			}
		})
		var (
			mu     sync.Mutex
			states []State[pokemon.Detail]
		)
		q.Subscribe(func(s State[pokemon.Detail]) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		})

		q.SetID(25)
		if s := waitState(t, q); s.Value == nil {
			t.Fatalf("trial %d: query did not settle with a value: %+v", trial, s)
		}

		deadline := time.Now().Add(time.Second)
		for {
			mu.Lock()
			settled := len(states) > 0 && states[len(states)-1].Value != nil
			mu.Unlock()
			if settled {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("trial %d: last delivered state is still loading", trial)
			}
			time.Sleep(2 * time.Millisecond)
		}

		mu.Lock()
		for i := 1; i < len(states); i++ {
			if states[i].Loading && !states[i-1].Loading {
				t.Errorf("trial %d: Loading delivered after %+v", trial, states[i-1])
			}
		}
		mu.Unlock()
		q.Close()
	}
}

func TestResource_ListenerMayCallBack(t *testing.T) {
	f := newGatedFetcher()
	q := NewDetailQuery(f, zerolog.Nop())
	defer q.Close()

	// Switching ids from inside a listener must not deadlock.
	var switched atomic.Bool
	q.Subscribe(func(s State[pokemon.Detail]) {
		if s.Value != nil && s.ID == 1 && switched.CompareAndSwap(false, true) {
			q.SetID(2)
		}
	})

	q.SetID(1)
	f.resolve(1, "bulbasaur")
	deadline := time.Now().Add(2 * time.Second)
	for q.State().ID != 2 {
		if time.Now().After(deadline) {
			t.Fatal("listener's SetID never took effect")
		}
		time.Sleep(2 * time.Millisecond)
	}
	f.resolve(2, "ivysaur")
	if s := waitState(t, q); s.Value == nil || s.Value.Name != "ivysaur" {
		t.Errorf("state = %+v, want ivysaur", s)
	}
}
