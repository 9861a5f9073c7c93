package client

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/Sternrassler/pokeapi-client/pkg/async"
	"github.com/Sternrassler/pokeapi-client/pkg/pagination"
	"github.com/Sternrassler/pokeapi-client/pkg/resource"
)

// ErrInvalidPage is returned for page numbers below 1 or an empty kind.
var ErrInvalidPage = errors.New("invalid page")

// FetchPage loads the 1-based page of the kind listing.
func FetchPage[T any](ctx context.Context, c *Client, kind resource.Kind, pageNumber int) (*resource.Page[T], error) {
	return FetchPageAsync[T](ctx, c, kind, pageNumber).Await(ctx)
}

// FetchPageAsync starts loading the 1-based page of the kind listing.
func FetchPageAsync[T any](ctx context.Context, c *Client, kind resource.Kind, pageNumber int) *async.Future[*resource.Page[T]] {
	if kind == "" || pageNumber < 1 {
		return async.Failed[*resource.Page[T]](fmt.Errorf("%w: %q page %d", ErrInvalidPage, kind, pageNumber))
	}
	return FetchPageURLAsync[T](ctx, c, c.PageURL(kind, pageNumber))
}

// FetchPageURL loads the page at rawURL, typically a Next link.
func FetchPageURL[T any](ctx context.Context, c *Client, rawURL string) (*resource.Page[T], error) {
	return FetchPageURLAsync[T](ctx, c, rawURL).Await(ctx)
}

// FetchPageURLAsync starts loading the page at rawURL. Pages are cached by
// URL like any resource, so the same item type must be used for a URL
// across calls.
func FetchPageURLAsync[T any](ctx context.Context, c *Client, rawURL string) *async.Future[*resource.Page[T]] {
	return load(ctx, c, rawURL, func(data []byte) (*resource.Page[T], error) {
		page, err := decode[resource.Page[T]](c, rawURL, data)
		if err != nil {
			return nil, err
		}
		return &page, nil
	})
}

// Drain returns a lazy sequence over every item of the kind listing, in
// page order. Pages are fetched through the cache as the consumer advances.
// The sequence ends after the last page or after yielding the first error.
func Drain[T any](ctx context.Context, c *Client, kind resource.Kind) iter.Seq2[T, error] {
	return DrainURL[T](ctx, c, c.PageURL(kind, 1))
}

// DrainURL is Drain starting at an arbitrary page URL.
func DrainURL[T any](ctx context.Context, c *Client, firstURL string) iter.Seq2[T, error] {
	fetcher := pagination.PageFetcherFunc[T](func(ctx context.Context, url string) (*resource.Page[T], error) {
		return FetchPageURL[T](ctx, c, url)
	})
	return pagination.Drain[T](ctx, fetcher, firstURL, pagination.WithLogger(c.logger))
}
