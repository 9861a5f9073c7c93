//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Sternrassler/pokeapi-client/internal/testutil"
	"github.com/Sternrassler/pokeapi-client/pkg/cache"
	"github.com/Sternrassler/pokeapi-client/pkg/client"
	"github.com/Sternrassler/pokeapi-client/pkg/locale"
	"github.com/Sternrassler/pokeapi-client/pkg/pagination"
	"github.com/Sternrassler/pokeapi-client/pkg/resource"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	t.Cleanup(func() {
		redisClient.Close()
		container.Terminate(ctx)
	})

	return redisClient
}

// newClient returns a client that talks to mock and stores payloads in redisClient.
func newClient(t *testing.T, mock *testutil.MockAPI, redisClient *redis.Client, payloadTTL time.Duration) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig("TestApp/1.0.0 (integration@test.com)")
	cfg.BaseURL = mock.BaseURL()
	cfg.RateLimit = 0
	cfg.InitialBackoff = time.Millisecond
	cfg.Redis = redisClient
	cfg.PayloadTTL = payloadTTL

	c, err := client.New(cfg, client.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func setupPokedex(mock *testutil.MockAPI) {
	base := mock.BaseURL()
	mock.SetResource("pokemon", "1", map[string]any{
		"id":   1,
		"name": "bulbasaur",
		"species": map[string]string{
			"name": "bulbasaur",
			"url":  base + "/pokemon-species/1/",
		},
	})
	mock.SetResource("pokemon-species", "bulbasaur", map[string]any{
		"id":   1,
		"name": "bulbasaur",
		"names": []map[string]any{
			{"name": "Bulbasaur", "language": map[string]string{"name": "en", "url": base + "/language/9/"}},
			{"name": "フシギダネ", "language": map[string]string{"name": "ja", "url": base + "/language/11/"}},
		},
	})
}

// TestPayloadStoreSharedAcrossClients tests the full flow: memory miss, payload
// store miss, HTTP request, store write, then a fresh client served from Redis.
func TestPayloadStoreSharedAcrossClients(t *testing.T) {
	redisClient := setupRedis(t)
	mock := testutil.NewMockAPI()
	defer mock.Close()
	setupPokedex(mock)

	ctx := context.Background()

	first := newClient(t, mock, redisClient, time.Hour)
	p, err := client.Fetch[resource.Pokemon](ctx, first, resource.KindPokemon, "1")
	if err != nil {
		t.Fatalf("first client fetch failed: %v", err)
	}
	if p.Data.Name != "bulbasaur" {
		t.Errorf("Name = %q, want bulbasaur", p.Data.Name)
	}

	second := newClient(t, mock, redisClient, time.Hour)
	p2, err := client.Fetch[resource.Pokemon](ctx, second, resource.KindPokemon, "1")
	if err != nil {
		t.Fatalf("second client fetch failed: %v", err)
	}
	if p2.Data.Species.Name != "bulbasaur" {
		t.Errorf("Species = %q, want bulbasaur", p2.Data.Species.Name)
	}

	if got := mock.RequestCount(); got != 1 {
		t.Errorf("upstream requests = %d, want 1 (second client served from Redis)", got)
	}
}

// TestFollowThroughPayloadStore tests that a followed reference lands in Redis
// under the same key a direct fetch by name uses.
func TestFollowThroughPayloadStore(t *testing.T) {
	redisClient := setupRedis(t)
	mock := testutil.NewMockAPI()
	defer mock.Close()
	setupPokedex(mock)

	ctx := context.Background()
	extract := func(p *resource.Resource[resource.Pokemon]) *resource.NamedReference {
		return &p.Data.Species
	}

	first := newClient(t, mock, redisClient, time.Hour)
	species := client.FollowAsync[resource.Pokemon, resource.PokemonSpecies](ctx, first,
		client.FetchAsync[resource.Pokemon](ctx, first, resource.KindPokemon, "1"),
		resource.KindPokemonSpecies, extract)
	s, err := species.Await(ctx)
	if err != nil {
		t.Fatalf("follow failed: %v", err)
	}
	if got := locale.DisplayName(s, "ja", ""); got != "フシギダネ" {
		t.Errorf("ja name = %q, want フシギダネ", got)
	}

	second := newClient(t, mock, redisClient, time.Hour)
	if _, err := client.Fetch[resource.PokemonSpecies](ctx, second, resource.KindPokemonSpecies, "bulbasaur"); err != nil {
		t.Fatalf("direct fetch failed: %v", err)
	}

	if got := mock.RequestCountFor(testutil.ResourcePath("pokemon-species", "bulbasaur")); got != 1 {
		t.Errorf("species requests = %d, want 1", got)
	}
}

// TestDrainWithPayloadStore tests that listing pages are stored by URL and a
// second traversal from another client issues no requests.
func TestDrainWithPayloadStore(t *testing.T) {
	redisClient := setupRedis(t)
	mock := testutil.NewMockAPI()
	defer mock.Close()

	names := make([]string, 45)
	for i := range names {
		names[i] = fmt.Sprintf("version-%02d", i+1)
	}
	mock.SetListing("version", names)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		c := newClient(t, mock, redisClient, time.Hour)
		items, err := pagination.Collect(client.Drain[resource.NamedReference](ctx, c, resource.KindVersion))
		if err != nil {
			t.Fatalf("pass %d: drain failed: %v", i, err)
		}
		if len(items) != 45 {
			t.Fatalf("pass %d: got %d items, want 45", i, len(items))
		}
		if items[0].Name != names[0] || items[44].Name != names[44] {
			t.Errorf("pass %d: order broken: first %q last %q", i, items[0].Name, items[44].Name)
		}
	}

	if got := mock.RequestCount(); got != 3 {
		t.Errorf("upstream requests = %d, want 3 (one per page)", got)
	}
}

// TestExpiredPayloadRefetched tests that a payload past its TTL is not served.
func TestExpiredPayloadRefetched(t *testing.T) {
	redisClient := setupRedis(t)
	mock := testutil.NewMockAPI()
	defer mock.Close()
	setupPokedex(mock)

	ctx := context.Background()

	first := newClient(t, mock, redisClient, 200*time.Millisecond)
	if _, err := client.Fetch[resource.Pokemon](ctx, first, resource.KindPokemon, "1"); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}

	time.Sleep(500 * time.Millisecond)

	second := newClient(t, mock, redisClient, 200*time.Millisecond)
	if _, err := client.Fetch[resource.Pokemon](ctx, second, resource.KindPokemon, "1"); err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}

	if got := mock.RequestCount(); got != 2 {
		t.Errorf("upstream requests = %d, want 2 after expiry", got)
	}
}

// TestPayloadStoreFailureFallsBack tests that a broken Redis connection does
// not fail fetches.
func TestPayloadStoreFailureFallsBack(t *testing.T) {
	redisClient := setupRedis(t)
	mock := testutil.NewMockAPI()
	defer mock.Close()
	setupPokedex(mock)

	c := newClient(t, mock, redisClient, time.Hour)
	redisClient.Close()

	p, err := client.Fetch[resource.Pokemon](context.Background(), c, resource.KindPokemon, "1")
	if err != nil {
		t.Fatalf("fetch with closed Redis failed: %v", err)
	}
	if p.Data.ID != 1 {
		t.Errorf("ID = %d, want 1", p.Data.ID)
	}
}

// TestInvalidateClearsBothTiers tests that an invalidated URL is fetched again.
func TestInvalidateClearsBothTiers(t *testing.T) {
	redisClient := setupRedis(t)
	mock := testutil.NewMockAPI()
	defer mock.Close()
	setupPokedex(mock)

	ctx := context.Background()
	c := newClient(t, mock, redisClient, time.Hour)

	if _, err := client.Fetch[resource.Pokemon](ctx, c, resource.KindPokemon, "1"); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	if err := c.Invalidate(ctx, c.ResourceURL(resource.ByID(resource.KindPokemon, 1))); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, err := client.Fetch[resource.Pokemon](ctx, c, resource.KindPokemon, "1"); err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}

	if got := mock.RequestCount(); got != 2 {
		t.Errorf("upstream requests = %d, want 2", got)
	}
}

// TestManagerOperations tests the Redis payload store against a real server.
func TestManagerOperations(t *testing.T) {
	redisClient := setupRedis(t)
	manager := cache.NewManager(redisClient)
	ctx := context.Background()

	key, err := cache.KeyFromURL("https://pokeapi.co/api/v2/pokemon/?offset=20&limit=20")
	if err != nil {
		t.Fatalf("KeyFromURL failed: %v", err)
	}

	if _, err := manager.Get(ctx, key); !errors.Is(err, cache.ErrCacheMiss) {
		t.Fatalf("Get on empty store = %v, want ErrCacheMiss", err)
	}

	if err := manager.Set(ctx, key, cache.NewEntry([]byte(`{"count":1302}`), time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	entry, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(entry.Data) != `{"count":1302}` {
		t.Errorf("Data = %s", entry.Data)
	}

	newExpires := time.Now().Add(time.Hour)
	if err := manager.UpdateTTL(ctx, key, newExpires); err != nil {
		t.Fatalf("UpdateTTL failed: %v", err)
	}
	ttl, err := redisClient.TTL(ctx, key.String()).Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl < 59*time.Minute {
		t.Errorf("Redis TTL = %v, want about 1h", ttl)
	}

	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("Get after Delete = %v, want ErrCacheMiss", err)
	}
}
