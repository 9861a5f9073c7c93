// Package cache provides the caching tiers in front of the PokeAPI transport.
//
// # Memory layer
//
// Layer maps a key to an in-flight or completed result:
//
//   - At most one producer runs per key; concurrent callers join it
//   - Successful results are memoized until evicted (Policy: size, TTL)
//   - Failures are returned to every joined caller and then forgotten, so the
//     next call retries
//
//	layer := cache.NewLayer[any](cache.Policy{MaxEntries: 1000}, logger)
//	f := layer.GetOrFetch(ctx, key.String(), func(ctx context.Context) (any, error) {
//		return fetchAndDecode(ctx)
//	})
//	v, err := f.Await(ctx)
//
// # Payload store
//
// Manager keeps raw response bodies in Redis so separate processes (or a
// restarted one) do not refetch static catalog data:
//
//	manager := cache.NewManager(redisClient)
//	key, _ := cache.KeyFromURL("https://pokeapi.co/api/v2/pokemon/25/")
//	if err := manager.Set(ctx, key, cache.NewEntry(body, 24*time.Hour)); err != nil {
//		return err
//	}
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from the API
//	}
//
// # Keys
//
// CacheKey is the request path plus sorted query parameters. Pages are keyed
// by their URL, so "?offset=20&limit=20" and "?limit=20&offset=20" share an
// entry.
//
// # Metrics
//
//   - pokeapi_cache_hits_total{layer} - Cache hits ("memory", "redis")
//   - pokeapi_cache_misses_total{layer} - Cache misses
//   - pokeapi_cache_inflight_joins_total - Fetches deduplicated onto an in-flight one
//   - pokeapi_cache_evictions_total - Entries removed from the memory layer
//   - pokeapi_cache_size_bytes{layer="redis"} - Bytes written to Redis
//   - pokeapi_cache_errors_total{operation} - Payload store errors
package cache
