package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	// Register the module's metrics.
	_ "github.com/Sternrassler/pokedex-client/pkg/cache"
	_ "github.com/Sternrassler/pokedex-client/pkg/client"
	_ "github.com/Sternrassler/pokedex-client/pkg/pagination"
	_ "github.com/Sternrassler/pokedex-client/pkg/ratelimit"
)

func TestHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)

	// Unlabelled metrics are exported from registration on.
	for _, name := range []string{
		"pokeapi_cache_misses_total",
		"pokeapi_304_responses_total",
		"pokeapi_conditional_requests_total",
		"pokeapi_coalesced_requests_total",
		"pokeapi_inflight_requests",
		"pokeapi_gate_wait_seconds",
		"pokedex_list_items",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
