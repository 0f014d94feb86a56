// Package ratelimit bounds the number of PokeAPI requests in flight so a
// burst of queries stays within the upstream fair-use policy.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrency is used when a non-positive limit is configured.
const DefaultMaxConcurrency = 8

// slowAcquire is the wait after which a slot acquisition is logged.
const slowAcquire = 500 * time.Millisecond

// Prometheus metrics for request gating.
var (
	inflightRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pokeapi_inflight_requests",
		Help: "Number of PokeAPI requests currently in flight",
	})

	acquireWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pokeapi_gate_wait_seconds",
		Help:    "Time spent waiting for a free request slot",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// Limiter gates upstream requests with a weighted semaphore.
type Limiter struct {
	sem    *semaphore.Weighted
	max    int64
	logger zerolog.Logger
}

// NewLimiter creates a limiter allowing up to maxConcurrency requests at once.
func NewLimiter(maxConcurrency int, logger zerolog.Logger) *Limiter {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Limiter{
		sem:    semaphore.NewWeighted(int64(maxConcurrency)),
		max:    int64(maxConcurrency),
		logger: logger,
	}
}

// Max returns the configured concurrency limit.
func (l *Limiter) Max() int { return int(l.max) }

// Acquire blocks until a slot is free or ctx is done. The returned release
// function must be called exactly once.
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	start := time.Now()
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire request slot: %w", err)
	}

	waited := time.Since(start)
	acquireWaitSeconds.Observe(waited.Seconds())
	if waited > slowAcquire {
		l.logger.Warn().
			Dur("wait", waited).
			Int64("max_concurrency", l.max).
			Msg("Request waited for a free slot")
	}

	inflightRequests.Inc()
	var released bool
	return func() {
		if released {
			return
		}
		released = true
		inflightRequests.Dec()
		l.sem.Release(1)
	}, nil
}
