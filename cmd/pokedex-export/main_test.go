package main

import (
	"context"
	"encoding/csv"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sternrassler/pokedex-client/internal/testutil"
	"github.com/rs/zerolog"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "defaults", args: []string{"-bucket="}},
		{name: "csv only", args: []string{"-format", "csv", "-limit", "10"}},
		{name: "bad format", args: []string{"-format", "xml"}, wantErr: "unknown format"},
		{name: "negative limit", args: []string{"-limit", "-1"}, wantErr: "-limit"},
		{name: "zero concurrency", args: []string{"-concurrency", "0"}, wantErr: "-concurrency"},
		{name: "no destination", args: []string{"-out", "", "-bucket", ""}, wantErr: "nothing to do"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("parseFlags() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("parseFlags() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestRun_WritesFiles(t *testing.T) {
	mock := testutil.NewMockPokeAPI(75)
	defer mock.Close()

	out := t.TempDir()
	opts := options{
		out:         out,
		format:      "both",
		limit:       60,
		concurrency: 4,
		species:     true,
		baseURL:     mock.URL(),
	}
	if err := run(context.Background(), opts, zerolog.Nop()); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	for _, name := range []string{"1_60.parquet", "1_60.csv"} {
		info, err := os.Stat(filepath.Join(out, name))
		if err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}

	f, err := os.Open(filepath.Join(out, "1_60.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 61 {
		t.Errorf("csv records = %d, want header + 60", len(records))
	}

	// Two list pages, then one detail and one species request per entry.
	if got := mock.PathCount("/pokemon"); got != 2 {
		t.Errorf("list requests = %d, want 2", got)
	}
}

func TestRun_ReportsFailures(t *testing.T) {
	mock := testutil.NewMockPokeAPI(5)
	defer mock.Close()
	mock.SetResponse("/pokemon/3", testutil.MockResponse{StatusCode: http.StatusInternalServerError})

	opts := options{
		out:         t.TempDir(),
		format:      "csv",
		concurrency: 2,
		baseURL:     mock.URL(),
	}
	err := run(context.Background(), opts, zerolog.Nop())
	if err == nil || !strings.Contains(err.Error(), "1 of 5 entries failed") {
		t.Fatalf("run() error = %v, want partial failure", err)
	}
	if _, statErr := os.Stat(filepath.Join(opts.out, "1_5.csv")); statErr != nil {
		t.Errorf("partial export not written: %v", statErr)
	}
}
