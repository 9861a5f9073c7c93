package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/pokeapi-client/internal/testutil"
	"github.com/Sternrassler/pokeapi-client/pkg/async"
	"github.com/Sternrassler/pokeapi-client/pkg/cache"
	"github.com/Sternrassler/pokeapi-client/pkg/resource"
)

const bulbasaurJSON = `{
	"id": 1,
	"name": "bulbasaur",
	"base_experience": 64,
	"species": {"name": "bulbasaur", "url": "https://pokeapi.co/api/v2/pokemon-species/1/"}
}`

func TestFetch_Decodes(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse(testutil.ResourcePath("pokemon", "1"), testutil.NewJSONResponse(bulbasaurJSON))

	c := newTestClient(t, mock)
	r, err := Fetch[resource.Pokemon](context.Background(), c, resource.KindPokemon, "1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if r.Data.Name != "bulbasaur" || r.Data.BaseExperience != 64 {
		t.Errorf("Data = %+v", r.Data)
	}
	if r.Key != resource.ByID(resource.KindPokemon, 1) {
		t.Errorf("Key = %+v", r.Key)
	}
	if r.URL != mock.BaseURL()+"/pokemon/1/" {
		t.Errorf("URL = %q", r.URL)
	}
}

func TestFetch_DeduplicatesConcurrentCalls(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	resp := testutil.NewJSONResponse(bulbasaurJSON)
	resp.Delay = 50 * time.Millisecond
	mock.SetResponse(testutil.ResourcePath("pokemon", "1"), resp)

	c := newTestClient(t, mock)
	ctx := context.Background()

	const n = 25
	results := make([]*resource.Resource[resource.Pokemon], n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := Fetch[resource.Pokemon](ctx, c, resource.KindPokemon, "1")
			if err != nil {
				t.Errorf("Fetch() error = %v", err)
				return
			}
			results[i] = r
		}(i)
	}
	wg.Wait()

	if got := mock.RequestCount(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
	for i, r := range results {
		if r != results[0] {
			t.Errorf("result %d is a different resource value", i)
		}
	}
}

func TestFetch_ConcurrentCallersShareError(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	resp := testutil.NewNotFoundResponse()
	resp.Delay = 50 * time.Millisecond
	mock.SetResponse(testutil.ResourcePath("pokemon", "missingno"), resp)

	c := newTestClient(t, mock)
	ctx := context.Background()

	futures := make([]*async.Future[*resource.Resource[resource.Pokemon]], 10)
	for i := range futures {
		futures[i] = FetchAsync[resource.Pokemon](ctx, c, resource.KindPokemon, "missingno")
	}

	var first error
	for i, f := range futures {
		_, err := f.Await(ctx)
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) || fetchErr.StatusCode != http.StatusNotFound {
			t.Fatalf("future %d error = %v, want 404 FetchError", i, err)
		}
		if first == nil {
			first = err
		} else if err != first {
			t.Errorf("future %d observed a different error value", i)
		}
	}
	if got := mock.RequestCount(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestFetch_Memoizes(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse(testutil.ResourcePath("pokemon", "1"), testutil.NewJSONResponse(bulbasaurJSON))

	c := newTestClient(t, mock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := Fetch[resource.Pokemon](ctx, c, resource.KindPokemon, "1"); err != nil {
			t.Fatalf("Fetch() #%d error = %v", i, err)
		}
	}
	// "001" normalizes to the same key
	if _, err := FetchKey[resource.Pokemon](ctx, c, resource.ParseKey(resource.KindPokemon, "001")); err != nil {
		t.Fatalf("FetchKey() error = %v", err)
	}

	if got := mock.RequestCount(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
	if c.State(c.ResourceURL(resource.ByID(resource.KindPokemon, 1))) != cache.StateReady {
		t.Error("resource should be memoized")
	}
}

func TestFetch_NamesAreCaseSensitive(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse(testutil.ResourcePath("pokemon", "bulbasaur"), testutil.NewJSONResponse(bulbasaurJSON))

	c := newTestClient(t, mock)
	ctx := context.Background()

	if _, err := Fetch[resource.Pokemon](ctx, c, resource.KindPokemon, "bulbasaur"); err != nil {
		t.Fatalf("Fetch(bulbasaur) error = %v", err)
	}
	_, err := Fetch[resource.Pokemon](ctx, c, resource.KindPokemon, "Bulbasaur")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || !fetchErr.NotFound() {
		t.Errorf("Fetch(Bulbasaur) error = %v, want 404", err)
	}
	if got := mock.RequestCount(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

func TestFetch_FailureIsRetriedOnNextCall(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetHandler(testutil.ResourcePath("pokemon", "1"), testutil.NewFlakyHandler(1,
		testutil.NewNotFoundResponse(),
		testutil.NewJSONResponse(bulbasaurJSON),
	))

	c := newTestClient(t, mock)
	ctx := context.Background()

	if _, err := Fetch[resource.Pokemon](ctx, c, resource.KindPokemon, "1"); err == nil {
		t.Fatal("first Fetch() should fail")
	}
	waitForClientState(t, c, c.ResourceURL(resource.ByID(resource.KindPokemon, 1)), cache.StateAbsent)

	r, err := Fetch[resource.Pokemon](ctx, c, resource.KindPokemon, "1")
	if err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}
	if r.Data.Name != "bulbasaur" {
		t.Errorf("Name = %q", r.Data.Name)
	}
	if got := mock.RequestCount(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

func TestFetch_DecodeError(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse(testutil.ResourcePath("pokemon", "1"), testutil.NewJSONResponse(`{"id": "not a number"`))

	c := newTestClient(t, mock)
	_, err := Fetch[resource.Pokemon](context.Background(), c, resource.KindPokemon, "1")

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error = %v, want *DecodeError", err)
	}
	if decodeErr.Type != "resource.Pokemon" {
		t.Errorf("Type = %q, want resource.Pokemon", decodeErr.Type)
	}
	waitForClientState(t, c, decodeErr.URL, cache.StateAbsent)
}

func TestFetchKey_InvalidKey(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	c := newTestClient(t, mock)
	_, err := FetchKey[resource.Pokemon](context.Background(), c, resource.ByID(resource.KindPokemon, 0))
	if !errors.Is(err, resource.ErrInvalidKey) {
		t.Errorf("error = %v, want ErrInvalidKey", err)
	}
	if got := mock.RequestCount(); got != 0 {
		t.Errorf("requests = %d, want 0", got)
	}
}

func TestFetch_TypeMismatchIsCacheStateError(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse(testutil.ResourcePath("pokemon", "1"), testutil.NewJSONResponse(bulbasaurJSON))

	c := newTestClient(t, mock)
	ctx := context.Background()

	if _, err := Fetch[resource.Pokemon](ctx, c, resource.KindPokemon, "1"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	_, err := Fetch[resource.Version](ctx, c, resource.KindPokemon, "1")

	var stateErr *CacheStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("error = %v, want *CacheStateError", err)
	}
	if !strings.Contains(stateErr.Want, "resource.Version") {
		t.Errorf("Want = %q", stateErr.Want)
	}
}

func TestFetchAsync_CallerCancellation(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	resp := testutil.NewJSONResponse(bulbasaurJSON)
	resp.Delay = 50 * time.Millisecond
	mock.SetResponse(testutil.ResourcePath("pokemon", "1"), resp)

	c := newTestClient(t, mock)
	ctx, cancel := context.WithCancel(context.Background())

	f := FetchAsync[resource.Pokemon](ctx, c, resource.KindPokemon, "1")
	cancel()
	if _, err := f.Await(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Await() error = %v, want context.Canceled", err)
	}

	// The abandoned request still completes and populates the cache.
	r, err := Fetch[resource.Pokemon](context.Background(), c, resource.KindPokemon, "1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if r.Data.ID != 1 {
		t.Errorf("ID = %d", r.Data.ID)
	}
	if got := mock.RequestCount(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestFetch_CustomTransportAndDecoder(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	var calls atomic.Int32
	transport := TransportFunc(func(ctx context.Context, url string) ([]byte, error) {
		calls.Add(1)
		if url == mock.BaseURL()+"/pokemon/2/" {
			return nil, errors.New("socket closed")
		}
		return []byte("pikachu"), nil
	})
	decoder := DecoderFunc(func(data []byte, v any) error {
		*(v.(*string)) = string(data)
		return nil
	})

	c := newTestClient(t, mock, WithTransport(transport), WithDecoder(decoder))
	ctx := context.Background()

	r, err := Fetch[string](ctx, c, resource.KindPokemon, "25")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if r.Data != "pikachu" {
		t.Errorf("Data = %q", r.Data)
	}

	// Raw transport errors are reported as FetchError
	_, err = Fetch[string](ctx, c, resource.KindPokemon, "2")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Class != ErrorClassNetwork {
		t.Errorf("error = %v, want network FetchError", err)
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("transport calls = %d, want 2", got)
	}
	if got := mock.RequestCount(); got != 0 {
		t.Errorf("mock requests = %d, want 0", got)
	}
}

// memoryStore is an in-process PayloadStore.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]*cache.CacheEntry
	getErr  error
	sets    int
	deletes int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]*cache.CacheEntry)}
}

func (s *memoryStore) Get(ctx context.Context, key cache.CacheKey) (*cache.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	entry, ok := s.entries[key.String()]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return entry, nil
}

func (s *memoryStore) Set(ctx context.Context, key cache.CacheKey, entry *cache.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key.String()] = entry
	s.sets++
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, key cache.CacheKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key.String())
	s.deletes++
	return nil
}

func TestFetch_PayloadStore(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse(testutil.ResourcePath("pokemon", "1"), testutil.NewJSONResponse(bulbasaurJSON))

	store := newMemoryStore()
	ctx := context.Background()

	// First client populates the store
	first := newTestClient(t, mock, WithPayloadStore(store))
	if _, err := Fetch[resource.Pokemon](ctx, first, resource.KindPokemon, "1"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if store.sets != 1 {
		t.Errorf("store sets = %d, want 1", store.sets)
	}

	// A second client with an empty memory layer is served from the store
	second := newTestClient(t, mock, WithPayloadStore(store))
	r, err := Fetch[resource.Pokemon](ctx, second, resource.KindPokemon, "1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if r.Data.Name != "bulbasaur" {
		t.Errorf("Name = %q", r.Data.Name)
	}
	if got := mock.RequestCount(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestFetch_PayloadStoreErrorFallsThrough(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse(testutil.ResourcePath("pokemon", "1"), testutil.NewJSONResponse(bulbasaurJSON))

	store := newMemoryStore()
	store.getErr = errors.New("redis: connection refused")

	c := newTestClient(t, mock, WithPayloadStore(store))
	if _, err := Fetch[resource.Pokemon](context.Background(), c, resource.KindPokemon, "1"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := mock.RequestCount(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestFetch_UndecodablePayloadNotStored(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	var calls atomic.Int32
	transport := TransportFunc(func(ctx context.Context, url string) ([]byte, error) {
		if calls.Add(1) == 1 {
			return []byte(`{"id": 1, "name": "bulba`), nil
		}
		return []byte(bulbasaurJSON), nil
	})

	store := newMemoryStore()
	c := newTestClient(t, mock, WithTransport(transport), WithPayloadStore(store))
	ctx := context.Background()

	_, err := Fetch[resource.Pokemon](ctx, c, resource.KindPokemon, "1")
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("first Fetch() error = %v, want DecodeError", err)
	}
	if store.sets != 0 {
		t.Errorf("store sets after decode failure = %d, want 0", store.sets)
	}

	r, err := Fetch[resource.Pokemon](ctx, c, resource.KindPokemon, "1")
	if err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}
	if r.Data.Name != "bulbasaur" {
		t.Errorf("Name = %q, want bulbasaur", r.Data.Name)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("transport calls = %d, want 2", got)
	}
	if store.sets != 1 {
		t.Errorf("store sets = %d, want 1", store.sets)
	}
}

func TestFetch_CorruptStoredPayloadEvicted(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse(testutil.ResourcePath("pokemon", "1"), testutil.NewJSONResponse(bulbasaurJSON))

	key, err := cache.KeyFromURL(mock.BaseURL() + "/pokemon/1/")
	if err != nil {
		t.Fatalf("KeyFromURL() error = %v", err)
	}

	store := newMemoryStore()
	store.entries[key.String()] = cache.NewEntry([]byte("<html>502 Bad Gateway</html>"), time.Hour)
	c := newTestClient(t, mock, WithPayloadStore(store))

	r, err := Fetch[resource.Pokemon](context.Background(), c, resource.KindPokemon, "1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if r.Data.ID != 1 {
		t.Errorf("ID = %d, want 1", r.Data.ID)
	}
	if got := mock.RequestCount(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
	if store.deletes != 1 {
		t.Errorf("store deletes = %d, want 1", store.deletes)
	}
	if got := string(store.entries[key.String()].Data); got != bulbasaurJSON {
		t.Errorf("stored payload = %q, want the refetched body", got)
	}
}

func TestClient_Invalidate(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse(testutil.ResourcePath("pokemon", "1"), testutil.NewJSONResponse(bulbasaurJSON))

	store := newMemoryStore()
	c := newTestClient(t, mock, WithPayloadStore(store))
	ctx := context.Background()

	if _, err := Fetch[resource.Pokemon](ctx, c, resource.KindPokemon, "1"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if err := c.Invalidate(ctx, c.ResourceURL(resource.ByID(resource.KindPokemon, 1))); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if _, err := Fetch[resource.Pokemon](ctx, c, resource.KindPokemon, "1"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := mock.RequestCount(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

// waitForClientState polls until the background fetch of rawURL settled.
func waitForClientState(t *testing.T, c *Client, rawURL string, want cache.EntryState) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.State(rawURL) == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("State(%q) = %v, want %v", rawURL, c.State(rawURL), want)
}
