package export

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Sternrassler/pokedex-client/pkg/pokemon"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of Pokémon fetched in parallel.
const DefaultConcurrency = 8

// Source is the slice of *client.Client the exporter needs.
type Source interface {
	FetchDetail(ctx context.Context, id int) (pokemon.Detail, error)
	FetchSpecies(ctx context.Context, id int) (pokemon.Species, error)
}

// Config holds exporter configuration.
type Config struct {
	// Concurrency bounds parallel fetches
	Concurrency int

	// Species adds species columns (one extra request per entry)
	Species bool
}

// DefaultConfig returns the default exporter configuration.
func DefaultConfig() Config {
	return Config{Concurrency: DefaultConcurrency, Species: true}
}

// Failure records an entry that could not be exported.
type Failure struct {
	ID  int
	Err error
}

// Exporter turns list items into rows.
type Exporter struct {
	source Source
	config Config
	logger zerolog.Logger
}

// NewExporter creates an exporter.
func NewExporter(source Source, cfg Config, logger zerolog.Logger) *Exporter {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Exporter{source: source, config: cfg, logger: logger}
}

// Collect fetches every item and returns rows ordered by id. Entries that
// fail are skipped and reported; only ctx cancellation aborts the run.
func (e *Exporter) Collect(ctx context.Context, items []pokemon.ListItem) ([]Row, []Failure, error) {
	start := time.Now()

	var (
		mu       sync.Mutex
		rows     = make([]Row, 0, len(items))
		failures []Failure
		done     int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Concurrency)

	for _, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			row, err := e.fetchRow(gctx, item.ID)

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures = append(failures, Failure{ID: item.ID, Err: err})
				e.logger.Warn().Err(err).Int("id", item.ID).Msg("Export entry failed")
				return nil
			}
			rows = append(rows, row)

			if done%50 == 0 {
				e.logger.Info().
					Int("fetched", done).
					Int("total", len(items)).
					Float64("progress_pct", float64(done)/float64(len(items))*100).
					Msg("Export progress")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("collect rows: %w", err)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	sort.Slice(failures, func(i, j int) bool { return failures[i].ID < failures[j].ID })

	e.logger.Info().
		Int("rows", len(rows)).
		Int("failures", len(failures)).
		Dur("duration", time.Since(start)).
		Msg("Rows collected")
	return rows, failures, nil
}

func (e *Exporter) fetchRow(ctx context.Context, id int) (Row, error) {
	if !e.config.Species {
		detail, err := e.source.FetchDetail(ctx, id)
		if err != nil {
			return Row{}, err
		}
		return NewRow(detail, nil), nil
	}

	var (
		detail  pokemon.Detail
		species pokemon.Species
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail, err = e.source.FetchDetail(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		species, err = e.source.FetchSpecies(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return Row{}, err
	}
	return NewRow(detail, &species), nil
}

// Render writes rows into one finished file per format.
func Render(rows []Row, formats []Format) ([]Writer, error) {
	writers := make([]Writer, 0, len(formats))
	for _, format := range formats {
		w, err := NewWriter(format)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("write %s row %d: %w", format, row.ID, err)
			}
		}
		if err := w.Finish(); err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}
	return writers, nil
}
