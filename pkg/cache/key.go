package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CacheKey identifies a cached API response: the request path plus its
// query parameters. Resource fetches and list pages share this key space,
// so a page is keyed by its URL exactly like a resource.
type CacheKey struct {
	// Endpoint is the request path (e.g., "/api/v2/pokemon-species/1/")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"offset": "20", "limit": "20"})
	QueryParams url.Values
}

// KeyFromURL builds the cache key for an absolute or relative request URL.
func KeyFromURL(rawURL string) (CacheKey, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return CacheKey{}, fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	return CacheKey{
		Endpoint:    u.Path,
		QueryParams: u.Query(),
	}, nil
}

// String generates a deterministic cache key string.
// Format: pokeapi:endpoint:query1=val1:query2=val2
//
// Example:
//
//	pokeapi:api/v2/pokemon:limit=20:offset=40
func (k CacheKey) String() string {
	parts := []string{"pokeapi"}

	// Normalize path so "/a/b/" and "a/b" collide
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
			values := append([]string(nil), k.QueryParams[key]...)
			sort.Strings(values)
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(values, ",")))
		}
	}

	return strings.Join(parts, ":")
}
