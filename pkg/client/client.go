// Package client provides the PokeAPI resource client: fetch by key,
// reference following and lazy list pagination over a deduplicating cache.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/pokeapi-client/pkg/cache"
	"github.com/Sternrassler/pokeapi-client/pkg/logging"
	"github.com/Sternrassler/pokeapi-client/pkg/pagination"
	"github.com/Sternrassler/pokeapi-client/pkg/ratelimit"
	"github.com/Sternrassler/pokeapi-client/pkg/resource"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public PokeAPI v2 endpoint.
const DefaultBaseURL = "https://pokeapi.co/api/v2"

// maxPageSize is the largest limit the API accepts for a list page.
const maxPageSize = 1000

// Client is the main PokeAPI client. It is safe for concurrent use.
type Client struct {
	config    Config
	baseURL   string
	transport Transport
	decoder   Decoder
	store     cache.PayloadStore
	layer     *cache.Layer[any]
	batch     *pagination.BatchResolver
	logger    zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the prefix resource URLs are built from
	BaseURL string

	// User-Agent header. PokeAPI asks clients to identify themselves.
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Timeout per HTTP attempt
	Timeout time.Duration

	// Cache is the eviction policy of the in-memory layer
	Cache cache.Policy

	// PageSize is the limit used by FetchPage and Drain
	PageSize int

	// Rate Limiting
	RateLimit float64 // Requests per second, <= 0 disables limiting
	RateBurst int

	// Retry
	MaxRetries     int // Retries after the first attempt
	InitialBackoff time.Duration

	// Concurrency of ResolveAll
	MaxConcurrency int

	// Redis enables the shared payload store (optional)
	Redis      *redis.Client
	PayloadTTL time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		Cache: cache.Policy{
			MaxEntries: 10000,
			TTL:        24 * time.Hour,
		},
		PageSize:       20,
		RateLimit:      10,
		RateBurst:      10,
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxConcurrency: 5,
		PayloadTTL:     24 * time.Hour,
	}
}

// Validate reports the first problem that makes cfg unusable.
func (cfg Config) Validate() error {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: base url must be an absolute http(s) url (got %q)", ErrInvalidConfig, cfg.BaseURL)
	}
	if cfg.UserAgent == "" {
		return fmt.Errorf("%w: user-agent is required", ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be > 0 (got %s)", ErrInvalidConfig, cfg.Timeout)
	}
	if cfg.PageSize < 1 || cfg.PageSize > maxPageSize {
		return fmt.Errorf("%w: page size must be in 1..%d (got %d)", ErrInvalidConfig, maxPageSize, cfg.PageSize)
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must be >= 0 (got %d)", ErrInvalidConfig, cfg.MaxRetries)
	}
	if cfg.Cache.MaxEntries < 0 || cfg.Cache.TTL < 0 {
		return fmt.Errorf("%w: cache policy must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Option customizes a Client.
type Option func(*Client)

// WithTransport replaces the default HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithDecoder replaces the default JSON decoder.
func WithDecoder(d Decoder) Option {
	return func(c *Client) { c.decoder = d }
}

// WithPayloadStore sets the store consulted before the transport. It takes
// precedence over Config.Redis.
func WithPayloadStore(s cache.PayloadStore) Option {
	return func(c *Client) { c.store = s }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new PokeAPI client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:  cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		decoder: JSONDecoder{},
		logger:  logging.NewLogger("pokeapi-client"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		c.transport = NewHTTPTransport(cfg, c.logger)
	}
	if c.store == nil && cfg.Redis != nil {
		c.store = cache.NewManager(cfg.Redis)
	}

	c.layer = cache.NewLayer[any](cfg.Cache, c.logger)
	c.batch = pagination.NewBatchResolver(pagination.Config{
		MaxConcurrency: cfg.MaxConcurrency,
		Timeout:        cfg.Timeout * time.Duration(cfg.MaxRetries+1),
	}, c.logger)

	c.logger.Debug().
		Str("base_url", c.baseURL).
		Bool("payload_store", c.store != nil).
		Int("page_size", cfg.PageSize).
		Msg("Client created")

	return c, nil
}

// Config returns the configuration the client was created with.
func (c *Client) Config() Config {
	return c.config
}

// ResourceURL returns the canonical URL of key.
func (c *Client) ResourceURL(key resource.Key) string {
	return c.baseURL + "/" + key.Path()
}

// PageURL returns the URL of the 1-based page of a listing.
func (c *Client) PageURL(kind resource.Kind, page int) string {
	q := url.Values{}
	q.Set("offset", strconv.Itoa((page-1)*c.config.PageSize))
	q.Set("limit", strconv.Itoa(c.config.PageSize))
	return c.baseURL + "/" + string(kind) + "/?" + q.Encode()
}

// State reports whether rawURL is absent, in flight or memoized.
func (c *Client) State(rawURL string) cache.EntryState {
	key, err := cache.KeyFromURL(rawURL)
	if err != nil {
		return cache.StateAbsent
	}
	return c.layer.State(key.String())
}

// RateLimit returns the limiter state of the default HTTP transport. It
// reports false when a custom Transport is in use.
func (c *Client) RateLimit() (ratelimit.State, bool) {
	t, ok := c.transport.(*HTTPTransport)
	if !ok {
		return ratelimit.State{}, false
	}
	return t.Limiter().State(), true
}

// Stats returns the memory cache counters.
func (c *Client) Stats() cache.Stats {
	return c.layer.Stats()
}

// Invalidate drops rawURL from the memory layer and the payload store.
func (c *Client) Invalidate(ctx context.Context, rawURL string) error {
	key, err := cache.KeyFromURL(rawURL)
	if err != nil {
		return err
	}
	c.layer.Forget(key.String())
	if c.store != nil {
		return c.store.Delete(ctx, key)
	}
	return nil
}

// Close releases the memoized values. A Redis client passed in Config is
// owned by the caller and stays open.
func (c *Client) Close() error {
	c.layer.Purge()
	return nil
}

// payload returns the raw body of rawURL and whether it came from the
// payload store. Nothing is written to the store here; see keep.
func (c *Client) payload(ctx context.Context, key cache.CacheKey, rawURL string) ([]byte, bool, error) {
	if c.store != nil {
		entry, err := c.store.Get(ctx, key)
		switch {
		case err == nil:
			c.logger.Debug().Str("url", rawURL).Msg("Payload store hit")
			return entry.Data, true, nil
		case errors.Is(err, cache.ErrCacheMiss):
		default:
			c.logger.Warn().Err(err).Str("url", rawURL).Msg("Payload store get error")
		}
	}

	data, err := c.download(ctx, rawURL)
	return data, false, err
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	data, err := c.transport.Get(ctx, rawURL)
	if err != nil {
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			err = &FetchError{URL: rawURL, Class: ErrorClassNetwork, Err: err}
		}
		return nil, err
	}
	return data, nil
}

// keep writes a payload that decoded successfully to the store.
func (c *Client) keep(ctx context.Context, key cache.CacheKey, rawURL string, data []byte) {
	if c.store == nil {
		return
	}
	if err := c.store.Set(ctx, key, cache.NewEntry(data, c.config.PayloadTTL)); err != nil {
		c.logger.Warn().Err(err).Str("url", rawURL).Msg("Payload store set error")
	}
}

// evict drops a stored payload that no longer decodes.
func (c *Client) evict(ctx context.Context, key cache.CacheKey, rawURL string, cause error) {
	c.logger.Warn().Err(cause).Str("url", rawURL).Msg("Evicting undecodable stored payload")
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn().Err(err).Str("url", rawURL).Msg("Payload store delete error")
	}
}
