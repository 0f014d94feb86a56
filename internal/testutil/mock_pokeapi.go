// Package testutil provides testing utilities for the Pokédex client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines a canned response for one path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockPokeAPI is a configurable PokeAPI stand-in. By default it serves a
// generated Pokédex of Total entries: list pages, details and species.
type MockPokeAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Total is the number of Pokémon the default handlers expose.
	Total int

	// Tracking
	requestCount     int
	conditionalCount int
	pathCounts       map[string]int
	lastHeader       http.Header
}

// NewMockPokeAPI creates a mock server exposing total Pokémon.
func NewMockPokeAPI(total int) *MockPokeAPI {
	mock := &MockPokeAPI{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		pathCounts: make(map[string]int),
		Total:      total,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.lastHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.conditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockPokeAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockPokeAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockPokeAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.conditionalCount = 0
	m.pathCounts = make(map[string]int)
	m.lastHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockPokeAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockPokeAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockPokeAPI) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests for one path.
func (m *MockPokeAPI) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// ConditionalCount returns the number of conditional requests.
func (m *MockPokeAPI) ConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// LastHeader returns the headers of the most recent request.
func (m *MockPokeAPI) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// defaultHandler serves the generated Pokédex with PokeAPI-like caching headers.
func (m *MockPokeAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/pokemon":
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit <= 0 {
			limit = 20
		}
		m.writeJSON(w, r, ListPageJSON(m.URL(), m.Total, offset, limit))
	case strings.HasPrefix(path, "/pokemon/"):
		id, ok := m.parseID(strings.TrimPrefix(path, "/pokemon/"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		m.writeJSON(w, r, DetailJSON(id))
	case strings.HasPrefix(path, "/pokemon-species/"):
		id, ok := m.parseID(strings.TrimPrefix(path, "/pokemon-species/"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		m.writeJSON(w, r, SpeciesJSON(id))
	default:
		http.NotFound(w, r)
	}
}

func (m *MockPokeAPI) parseID(s string) (int, bool) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 || id > m.Total {
		return 0, false
	}
	return id, true
}

func (m *MockPokeAPI) writeJSON(w http.ResponseWriter, r *http.Request, body string) {
	etag := fmt.Sprintf(`W/"%x"`, len(body)*31+strings.Count(body, "a"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400, s-maxage=86400")
	w.Header().Set("ETag", etag)

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

// Name returns the generated name for an id.
func Name(id int) string {
	return fmt.Sprintf("pokemon-%d", id)
}

// ListPageJSON renders a /pokemon list payload over a Pokédex of total entries.
func ListPageJSON(baseURL string, total, offset, limit int) string {
	type result struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	payload := struct {
		Count    int      `json:"count"`
		Next     *string  `json:"next"`
		Previous *string  `json:"previous"`
		Results  []result `json:"results"`
	}{Count: total, Results: []result{}}

	for id := offset + 1; id <= total && id <= offset+limit; id++ {
		payload.Results = append(payload.Results, result{
			Name: Name(id),
			URL:  fmt.Sprintf("%s/pokemon/%d/", baseURL, id),
		})
	}
	if offset+limit < total {
		next := fmt.Sprintf("%s/pokemon?offset=%d&limit=%d", baseURL, offset+limit, limit)
		payload.Next = &next
	}

	data, _ := json.Marshal(payload)
	return string(data)
}

// DetailJSON renders a /pokemon/{id} payload.
func DetailJSON(id int) string {
	return fmt.Sprintf(`{
		"id": %[1]d,
		"name": %[2]q,
		"height": %[3]d,
		"weight": %[4]d,
		"types": [{"slot": 1, "type": {"name": "grass", "url": ""}}, {"slot": 2, "type": {"name": "poison", "url": ""}}],
		"stats": [{"base_stat": 45, "stat": {"name": "hp"}}, {"base_stat": 49, "stat": {"name": "attack"}}],
		"abilities": [{"ability": {"name": "overgrow"}, "is_hidden": false}],
		"sprites": {"front_default": null, "other": {"official-artwork": {"front_default": "https://img.example/%[1]d.png"}}}
	}`, id, Name(id), 5+id, 60+id)
}

// SpeciesJSON renders a /pokemon-species/{id} payload.
func SpeciesJSON(id int) string {
	return fmt.Sprintf(`{
		"id": %[1]d,
		"name": %[2]q,
		"genera": [{"genus": "Seed Pokémon", "language": {"name": "en"}}],
		"flavor_text_entries": [{"flavor_text": "Entry\nnumber\f%[1]d.", "language": {"name": "en"}, "version": {"name": "red"}}],
		"generation": {"name": "generation-i"},
		"habitat": {"name": "grassland"},
		"capture_rate": 45,
		"base_happiness": 50,
		"growth_rate": {"name": "medium-slow"},
		"egg_groups": [{"name": "monster"}, {"name": "plant"}],
		"gender_rate": 1
	}`, id, Name(id))
}
