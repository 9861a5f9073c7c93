package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/Sternrassler/pokeapi-client/pkg/resource"
	"github.com/rs/zerolog"
)

// ErrCycle is returned when a page links back to a page already visited in
// the same traversal.
var ErrCycle = errors.New("pagination: next link revisits a page")

// PageFetcher loads a single page by URL.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, url string) (*resource.Page[T], error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc[T any] func(ctx context.Context, url string) (*resource.Page[T], error)

// FetchPage calls f.
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, url string) (*resource.Page[T], error) {
	return f(ctx, url)
}

// DrainOption configures a traversal.
type DrainOption func(*drainOptions)

type drainOptions struct {
	logger zerolog.Logger
}

// WithLogger sets the logger page failures and count changes are reported
// to. Without it Drain logs nothing.
func WithLogger(logger zerolog.Logger) DrainOption {
	return func(o *drainOptions) {
		o.logger = logger
	}
}

// Drain returns a lazy sequence over every item of a listing, starting at
// firstURL and following next links until a page has none.
//
// A page is fetched only when the consumer asks for an item past the end of
// the previous one; breaking out of the loop stops the traversal. Items are
// yielded in page order and, within a page, in the order received. A failed
// page fetch yields the error once and ends the sequence. Every range over
// the returned sequence starts a fresh traversal from firstURL.
func Drain[T any](ctx context.Context, fetcher PageFetcher[T], firstURL string, opts ...DrainOption) iter.Seq2[T, error] {
	o := drainOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger

	return func(yield func(T, error) bool) {
		var zero T
		visited := make(map[string]struct{})
		count := -1

		for url, pageNum := firstURL, 1; url != ""; pageNum++ {
			if _, seen := visited[url]; seen {
				yield(zero, fmt.Errorf("%w: %s", ErrCycle, url))
				return
			}
			visited[url] = struct{}{}

			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}

			page, err := fetcher.FetchPage(ctx, url)
			if err != nil {
				log.Warn().
					Err(err).
					Str("url", url).
					Int("page", pageNum).
					Msg("Page fetch failed")
				yield(zero, fmt.Errorf("fetch page %d: %w", pageNum, err))
				return
			}

			if count >= 0 && page.Count != count {
				log.Warn().
					Str("url", url).
					Int("count", page.Count).
					Int("previous_count", count).
					Msg("Listing count changed during traversal")
			}
			count = page.Count

			for _, item := range page.Results {
				if !yield(item, nil) {
					return
				}
			}

			url = page.Next
		}
	}
}

// Collect drains seq into a slice, stopping at the first error. The items
// read before the error are returned with it.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var items []T
	for item, err := range seq {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}
