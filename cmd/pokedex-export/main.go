// Command pokedex-export walks the Pokédex through the list query, fetches
// every entry and writes Parquet and/or CSV files, optionally to S3.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Sternrassler/pokedex-client/pkg/cache"
	"github.com/Sternrassler/pokedex-client/pkg/client"
	"github.com/Sternrassler/pokedex-client/pkg/export"
	"github.com/Sternrassler/pokedex-client/pkg/logging"
	"github.com/Sternrassler/pokedex-client/pkg/pagination"
	"github.com/rs/zerolog"
)

const defaultUserAgent = "pokedex-export/0.1.0 (+https://github.com/Sternrassler/pokedex-client)"

type options struct {
	out         string
	format      string
	bucket      string
	prefix      string
	region      string
	endpoint    string
	limit       int
	concurrency int
	species     bool
	baseURL     string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("pokedex-export", flag.ContinueOnError)
	fs.StringVar(&opts.out, "out", ".", "output directory (empty disables local files)")
	fs.StringVar(&opts.format, "format", "both", "parquet, csv or both")
	fs.StringVar(&opts.bucket, "bucket", os.Getenv("BUCKET_NAME"), "S3 bucket; upload is skipped when empty")
	fs.StringVar(&opts.prefix, "prefix", "pokemon", "S3 key prefix")
	fs.StringVar(&opts.region, "region", os.Getenv("AWS_REGION"), "AWS region")
	fs.StringVar(&opts.endpoint, "endpoint", "", "S3-compatible endpoint URL")
	fs.IntVar(&opts.limit, "limit", 0, "maximum entries to export (0 = all)")
	fs.IntVar(&opts.concurrency, "concurrency", export.DefaultConcurrency, "parallel fetches")
	fs.BoolVar(&opts.species, "species", true, "include species columns")
	fs.StringVar(&opts.baseURL, "base-url", client.DefaultBaseURL, "PokeAPI base URL")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.limit < 0 {
		return options{}, fmt.Errorf("-limit must be >= 0")
	}
	if opts.concurrency <= 0 {
		return options{}, fmt.Errorf("-concurrency must be > 0")
	}
	if _, err := export.ParseFormats(opts.format); err != nil {
		return options{}, err
	}
	if opts.out == "" && opts.bucket == "" {
		return options{}, fmt.Errorf("nothing to do: set -out or -bucket")
	}
	return opts, nil
}

func main() {
	logging.Setup(logging.ConfigFromEnv(os.Getenv))
	logger := logging.NewLogger("pokedex-export")

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid flags")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error().Err(err).Msg("Export failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger zerolog.Logger) error {
	start := time.Now()
	formats, _ := export.ParseFormats(opts.format)

	cfg := client.DefaultConfig(defaultUserAgent)
	cfg.BaseURL = opts.baseURL
	cfg.MaxConcurrency = opts.concurrency
	cfg.Cache = cache.NewManager(cache.NewMemoryStore(4096, time.Hour))
	pokeClient, err := client.New(cfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer pokeClient.Close()

	list := pagination.NewList(pokeClient, logging.NewLogger("list"))
	if err := list.DrainUntil(ctx, opts.limit); err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	items := list.Snapshot().Items
	if opts.limit > 0 && len(items) > opts.limit {
		items = items[:opts.limit]
	}
	if len(items) == 0 {
		logger.Warn().Msg("Index is empty, nothing to export")
		return nil
	}

	exporter := export.NewExporter(pokeClient, export.Config{
		Concurrency: opts.concurrency,
		Species:     opts.species,
	}, logging.NewLogger("exporter"))
	rows, failures, err := exporter.Collect(ctx, items)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("all %d entries failed", len(failures))
	}

	writers, err := export.Render(rows, formats)
	if err != nil {
		return err
	}

	first, last := int(rows[0].ID), int(rows[len(rows)-1].ID)

	if opts.out != "" {
		if err := os.MkdirAll(opts.out, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		for _, w := range writers {
			name := filepath.Join(opts.out, filepath.Base(export.ObjectKey("", first, last, w.Format())))
			if err := os.WriteFile(name, w.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
			logger.Info().Str("file", name).Int("bytes", w.Size()).Msg("Wrote export file")
		}
	}

	if opts.bucket != "" {
		uploader, err := export.NewS3Uploader(ctx, export.S3Config{
			Bucket:    opts.bucket,
			Region:    opts.region,
			Endpoint:  opts.endpoint,
			PathStyle: opts.endpoint != "",
		})
		if err != nil {
			return err
		}
		for _, w := range writers {
			key := export.ObjectKey(opts.prefix, first, last, w.Format())
			if err := uploader.Put(ctx, key, export.ContentType(w.Format()), w.Bytes()); err != nil {
				return err
			}
			logger.Info().Str("bucket", opts.bucket).Str("key", key).Int("bytes", w.Size()).Msg("Uploaded export file")
		}
	}

	logger.Info().
		Int("rows", len(rows)).
		Int("failures", len(failures)).
		Dur("duration", time.Since(start)).
		Msg("Export complete")

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d entries failed (first: id %d: %v)", len(failures), len(items), failures[0].ID, failures[0].Err)
	}
	return nil
}
