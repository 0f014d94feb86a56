// Command pokedex-proxy serves normalized PokeAPI resources over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/pokedex-client/pkg/cache"
	"github.com/Sternrassler/pokedex-client/pkg/client"
	"github.com/Sternrassler/pokedex-client/pkg/logging"
	"github.com/redis/go-redis/v9"
)

const defaultUserAgent = "pokedex-proxy/0.1.0 (+https://github.com/Sternrassler/pokedex-client)"

func main() {
	logging.Setup(logging.ConfigFromEnv(os.Getenv))
	logger := logging.NewLogger("pokedex-proxy")

	port := getEnv("PORT", "8080")
	baseURL := getEnv("POKEAPI_BASE_URL", client.DefaultBaseURL)
	userAgent := getEnv("USER_AGENT", defaultUserAgent)
	redisURL := getEnv("REDIS_URL", "")
	cacheSize := getEnvInt("CACHE_SIZE", 2048)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, ready, closeStore, err := openStore(ctx, redisURL, cacheSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open cache store")
	}
	defer closeStore()

	manager := cache.NewManager(store)
	// Nothing cached by an earlier run is served.
	if err := manager.Purge(ctx); err != nil {
		logger.Fatal().Err(err).Str("layer", manager.Layer()).Msg("Failed to purge cache")
	}

	cfg := client.DefaultConfig(userAgent)
	cfg.BaseURL = baseURL
	cfg.Cache = manager
	pokeClient, err := client.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create PokeAPI client")
	}
	defer pokeClient.Close()

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newServer(pokeClient, ready, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	logger.Info().
		Str("addr", srv.Addr).
		Str("base_url", baseURL).
		Str("cache_layer", manager.Layer()).
		Str("user_agent", userAgent).
		Msg("Starting Pokédex proxy")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Server failed")
	}
	logger.Info().Msg("Server stopped")
}

// openStore returns a redis store when redisURL is set, otherwise an
// in-process LRU. ready reports backend health for /ready.
func openStore(ctx context.Context, redisURL string, size int) (cache.Store, func(context.Context) error, func(), error) {
	if redisURL == "" {
		store := cache.NewMemoryStore(size, 24*time.Hour)
		return store, func(context.Context) error { return nil }, func() {}, nil
	}

	var opts *redis.Options
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: redisURL}
	}

	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, nil, err
	}

	ready := func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	return cache.NewRedisStore(redisClient), ready, func() { redisClient.Close() }, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}
