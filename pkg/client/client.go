// Package client provides the PokeAPI HTTP boundary and the resource
// fetchers built on it: list pages, Pokémon details and species.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/pokedex-client/pkg/cache"
	"github.com/Sternrassler/pokedex-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultBaseURL is the public PokeAPI v2 root.
const DefaultBaseURL = "https://pokeapi.co/api/v2"

// Prometheus metrics for PokeAPI client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokeapi_requests_total",
		Help: "Total PokeAPI requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pokeapi_request_duration_seconds",
		Help:    "PokeAPI request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokeapi_errors_total",
		Help: "Total PokeAPI errors by class",
	}, []string{"class"})

	coalescedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokeapi_coalesced_requests_total",
		Help: "Total GETs that shared an identical in-flight request",
	})
)

// Client is the PokeAPI client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      *cache.Manager
	limiter    *ratelimit.Limiter
	group      singleflight.Group
	config     Config
	logger     zerolog.Logger

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context shared by every caller of one coalesced GET. It is
// cancelled once the last caller has gone, which aborts the round trip and
// frees its request slot.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API, without trailing slash
	BaseURL string

	// User-Agent header sent with every request (REQUIRED)
	UserAgent string

	// Timeout bounds a single round trip
	Timeout time.Duration

	// MaxConcurrency caps requests in flight
	MaxConcurrency int

	// Cache is optional; nil disables response caching
	Cache *cache.Manager
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		UserAgent:      userAgent,
		Timeout:        30 * time.Second,
		MaxConcurrency: ratelimit.DefaultMaxConcurrency,
	}
}

// New creates a new PokeAPI client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "pokeapi-client").Logger()
	limiter := ratelimit.NewLimiter(cfg.MaxConcurrency, logger)

	logger.Debug().
		Str("base_url", cfg.BaseURL).
		Int("max_concurrency", limiter.Max()).
		Bool("cache", cfg.Cache != nil).
		Msg("PokeAPI client created")

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cache:   cfg.Cache,
		limiter: limiter,
		config:  cfg,
		logger:  logger,
		flights: make(map[string]*flight),
	}, nil
}

// Get performs a GET against an API path and returns the response body.
// Identical concurrent GETs share one round trip; each caller still honours
// its own ctx and stops waiting when it is done. The round trip is aborted
// only when every caller has stopped waiting.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	key := cache.Key{Endpoint: endpoint, QueryParams: query}.String()

	f := c.join(key)
	defer c.leave(key, f)

	ch := c.group.DoChan(key, func() (any, error) {
		return c.do(f.ctx, endpoint, query)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			coalescedTotal.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) join(key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flights[key]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		f = &flight{ctx: ctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++
	return f
}

// leave drops one caller. The last one cancels the shared context and makes
// the group forget the call, so a later GET starts a fresh round trip instead
// of joining the aborted one.
func (c *Client) leave(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	delete(c.flights, key)
	c.group.Forget(key)
	f.cancel()
}

// do executes exactly one round trip, or none on a fresh cache hit.
// It never retries.
func (c *Client) do(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	label := endpointLabel(endpoint)
	cacheKey := cache.Key{Endpoint: endpoint, QueryParams: query}

	var cached *cache.Entry
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil && !entry.IsExpired():
			c.logger.Debug().Str("endpoint", endpoint).Str("cache", "hit").Msg("Serving from cache")
			requestsTotal.WithLabelValues(label, "cache").Inc()
			return entry.Data, nil
		case err == nil:
			cached = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	if cache.ShouldMakeConditionalRequest(cached) {
		cache.AddConditionalHeaders(req, cached)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cached.ETag).
			Msg("Making conditional request")
	}

	release, err := c.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(label).Observe(time.Since(startTime).Seconds())
	}()

	c.logger.Debug().Str("endpoint", endpoint).Msg("Executing PokeAPI request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.logger.Debug().Str("endpoint", endpoint).Msg("Request abandoned by every caller")
			return nil, ctxErr
		}
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(label, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, &NetworkFailure{
			Endpoint:   endpoint,
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(label, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		cache.NotModifiedResponses.Inc()
		cache.Refresh(cached, resp.Header)
		if err := c.cache.Set(ctx, cacheKey, cached); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		return cached.Data, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("PokeAPI request error")
		return nil, &NetworkFailure{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    resp.Status,
		}
	}

	entry, err := cache.ResponseToEntry(resp)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &NetworkFailure{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read body",
			Err:        err,
		}
	}

	if c.cache != nil && resp.StatusCode == http.StatusOK {
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return entry.Data, nil
}

// endpointLabel collapses ids so metric cardinality stays bounded:
// "/pokemon/25" -> "/pokemon/{id}".
func endpointLabel(endpoint string) string {
	parts := strings.Split(strings.Trim(endpoint, "/"), "/")
	if len(parts) > 1 {
		return "/" + parts[0] + "/{id}"
	}
	return "/" + parts[0]
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
