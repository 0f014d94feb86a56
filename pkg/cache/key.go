package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every key this package writes.
const KeyPrefix = "pokeapi"

// Key identifies a cached PokeAPI response.
type Key struct {
	// Endpoint is the resource path (e.g., "/pokemon/25")
	Endpoint string

	// QueryParams are the query parameters (e.g., offset and limit)
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: pokeapi:endpoint:query1=val1:query2=val2
//
// Example:
//
//	pokeapi:pokemon:limit=50:offset=0
func (k Key) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Query params sorted for determinism
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.QueryParams[key], ",")))
		}
	}

	return strings.Join(parts, ":")
}
