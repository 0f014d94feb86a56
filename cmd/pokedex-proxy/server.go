package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/pokedex-client/pkg/client"
	"github.com/Sternrassler/pokedex-client/pkg/logging"
	"github.com/Sternrassler/pokedex-client/pkg/metrics"
	"github.com/Sternrassler/pokedex-client/pkg/pagination"
	"github.com/Sternrassler/pokedex-client/pkg/pokemon"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	requestIDHeader = "X-Request-ID"
	requestTimeout  = 30 * time.Second
	maxListLimit    = 200
)

// fetcher is the slice of *client.Client the handlers use.
type fetcher interface {
	FetchListPage(ctx context.Context, offset, limit int) (pokemon.ListPage, error)
	FetchDetail(ctx context.Context, id int) (pokemon.Detail, error)
	FetchSpecies(ctx context.Context, id int) (pokemon.Species, error)
}

// newServer builds the proxy's routes. ready may be nil.
func newServer(f fetcher, ready func(context.Context) error, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler(ready))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /pokemon", listHandler(f))
	mux.HandleFunc("GET /pokemon/{id}", detailHandler(f))
	mux.HandleFunc("GET /pokemon-species/{id}", speciesHandler(f))
	mux.HandleFunc("GET /pokedex/{id}", pokedexHandler(f))
	return requestLogger(logger, mux)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(ready func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				logging.FromContext(r.Context()).Warn().Err(err).Msg("Readiness check failed")
				http.Error(w, "cache backend unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func listHandler(f fetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, err := queryInt(r, "offset", 0)
		if err != nil || offset < 0 {
			writeError(w, r, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		limit, err := queryInt(r, "limit", pagination.PageSize)
		if err != nil || limit <= 0 || limit > maxListLimit {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		page, err := f.FetchListPage(ctx, offset, limit)
		if err != nil {
			writeUpstreamError(w, r, err)
			return
		}

		items := make([]listEntry, 0, len(page.Items))
		for _, item := range page.Items {
			items = append(items, listEntry{
				ListItem:    item,
				DisplayName: pokemon.DisplayName(item.Name),
				Number:      pokemon.DisplayNumber(item.ID),
				Sprite:      item.SpriteURL(),
			})
		}
		writeJSON(w, http.StatusOK, listResponse{
			Items:      items,
			HasMore:    page.HasMore,
			Offset:     offset,
			NextOffset: offset + limit,
		})
	}
}

func detailHandler(f fetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		detail, err := f.FetchDetail(ctx, id)
		if err != nil {
			writeUpstreamError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newDetailView(detail))
	}
}

func speciesHandler(f fetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		species, err := f.FetchSpecies(ctx, id)
		if err != nil {
			writeUpstreamError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newSpeciesView(species))
	}
}

// pokedexHandler fetches detail and species concurrently; either failure
// cancels the other.
func pokedexHandler(f fetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		var (
			detail  pokemon.Detail
			species pokemon.Species
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			detail, err = f.FetchDetail(gctx, id)
			return err
		})
		g.Go(func() error {
			var err error
			species, err = f.FetchSpecies(gctx, id)
			return err
		})
		if err := g.Wait(); err != nil {
			writeUpstreamError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, pokedexEntry{
			Detail:  newDetailView(detail),
			Species: newSpeciesView(species),
		})
	}
}

type listEntry struct {
	pokemon.ListItem
	DisplayName string `json:"display_name"`
	Number      string `json:"number"`
	Sprite      string `json:"sprite"`
}

type listResponse struct {
	Items      []listEntry `json:"items"`
	HasMore    bool        `json:"has_more"`
	Offset     int         `json:"offset"`
	NextOffset int         `json:"next_offset"`
}

type statView struct {
	pokemon.Stat
	Tier pokemon.StatTier `json:"tier"`
}

type detailView struct {
	pokemon.Detail
	Stats       []statView `json:"stats"`
	DisplayName string     `json:"display_name"`
	Number      string     `json:"number"`
	PrimaryType string     `json:"primary_type"`
	WeightKg    float64    `json:"weight_kg"`
	HeightM     float64    `json:"height_m"`
	StatTotal   int        `json:"stat_total"`
}

func newDetailView(d pokemon.Detail) detailView {
	stats := make([]statView, 0, len(d.Stats))
	for _, s := range d.Stats {
		stats = append(stats, statView{Stat: s, Tier: pokemon.TierFor(s.Value)})
	}
	return detailView{
		Detail:      d,
		Stats:       stats,
		DisplayName: pokemon.DisplayName(d.Name),
		Number:      pokemon.DisplayNumber(d.ID),
		PrimaryType: d.PrimaryType(),
		WeightKg:    d.WeightKg(),
		HeightM:     d.HeightM(),
		StatTotal:   d.StatTotal(),
	}
}

type speciesView struct {
	pokemon.Species
	Gender         string `json:"gender"`
	HabitatLabel   string `json:"habitat_label"`
	EggGroupsLabel string `json:"egg_groups_label"`
}

func newSpeciesView(s pokemon.Species) speciesView {
	return speciesView{
		Species:        s,
		Gender:         s.Gender().Label(),
		HabitatLabel:   s.HabitatLabel(),
		EggGroupsLabel: s.EggGroupsLabel(),
	}
}

type pokedexEntry struct {
	Detail  detailView  `json:"detail"`
	Species speciesView `json:"species"`
}

type errorResponse struct {
	Error          string `json:"error"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// writeUpstreamError maps fetch failures: NetworkFailure is 502 carrying the
// upstream status, an expired deadline is 504.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context())

	var nf *client.NetworkFailure
	switch {
	case errors.As(err, &nf):
		logger.Warn().
			Err(err).
			Int("upstream_status", nf.StatusCode).
			Str("error_class", string(nf.ErrorClass)).
			Msg("Upstream request failed")
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:          err.Error(),
			UpstreamStatus: nf.StatusCode,
			RequestID:      w.Header().Get(requestIDHeader),
		})
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn().Err(err).Msg("Upstream request timed out")
		writeError(w, r, http.StatusGatewayTimeout, "upstream request timed out")
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to write
		logger.Debug().Err(err).Msg("Request cancelled")
	default:
		logger.Error().Err(err).Msg("Request failed")
		writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: w.Header().Get(requestIDHeader)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// A failed write means the client is gone.
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogger assigns a request id, stores a request-scoped logger in the
// context and logs each completed request.
func requestLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		ctx := logging.WithRequestID(r.Context(), logger, requestID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		logging.FromContext(ctx).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
