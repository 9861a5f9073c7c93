package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Config holds batch resolver configuration
type Config struct {
	// MaxConcurrency is the maximum number of items resolved in parallel
	MaxConcurrency int
	// Timeout per item
	Timeout time.Duration
}

// DefaultConfig returns the default batch configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 10,
		Timeout:        15 * time.Second,
	}
}

// BatchResolver runs a function over many inputs with bounded concurrency.
type BatchResolver struct {
	config Config
	logger zerolog.Logger
}

// NewBatchResolver creates a new batch resolver
func NewBatchResolver(config Config, logger zerolog.Logger) *BatchResolver {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &BatchResolver{config: config, logger: logger}
}

// ResolveAll applies fn to every item and returns the results in input
// order. The first error cancels the remaining work and is returned.
func ResolveAll[In, Out any](ctx context.Context, r *BatchResolver, items []In, fn func(ctx context.Context, item In) (Out, error)) ([]Out, error) {
	start := time.Now()
	results := make([]Out, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.MaxConcurrency)

	for i, item := range items {
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(gctx, r.config.Timeout)
			defer cancel()

			out, err := fn(itemCtx, item)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		r.logger.Warn().
			Err(err).
			Int("items", len(items)).
			Msg("Batch resolve failed")
		return nil, err
	}

	r.logger.Debug().
		Int("items", len(items)).
		Int("max_concurrency", r.config.MaxConcurrency).
		Dur("duration", time.Since(start)).
		Msg("Batch resolve complete")

	return results, nil
}
