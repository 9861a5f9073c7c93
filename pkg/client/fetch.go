package client

import (
	"context"
	"fmt"
	"reflect"

	"github.com/Sternrassler/pokeapi-client/pkg/async"
	"github.com/Sternrassler/pokeapi-client/pkg/cache"
	"github.com/Sternrassler/pokeapi-client/pkg/resource"
)

// Fetch loads the resource of kind identified by idOrName. Numeric
// identifiers address by id, anything else by case-sensitive name.
func Fetch[T any](ctx context.Context, c *Client, kind resource.Kind, idOrName string) (*resource.Resource[T], error) {
	return FetchAsync[T](ctx, c, kind, idOrName).Await(ctx)
}

// FetchKey loads the resource identified by key.
func FetchKey[T any](ctx context.Context, c *Client, key resource.Key) (*resource.Resource[T], error) {
	return FetchKeyAsync[T](ctx, c, key).Await(ctx)
}

// FetchAsync starts loading a resource and returns without blocking.
func FetchAsync[T any](ctx context.Context, c *Client, kind resource.Kind, idOrName string) *async.Future[*resource.Resource[T]] {
	return FetchKeyAsync[T](ctx, c, resource.ParseKey(kind, idOrName))
}

// FetchKeyAsync starts loading the resource identified by key. Concurrent
// calls for the same key share one request; a completed resource is served
// from the cache until evicted.
func FetchKeyAsync[T any](ctx context.Context, c *Client, key resource.Key) *async.Future[*resource.Resource[T]] {
	if err := key.Validate(); err != nil {
		return async.Failed[*resource.Resource[T]](err)
	}

	rawURL := c.ResourceURL(key)
	return load(ctx, c, rawURL, func(data []byte) (*resource.Resource[T], error) {
		v, err := decode[T](c, rawURL, data)
		if err != nil {
			return nil, err
		}
		return &resource.Resource[T]{Key: key, URL: rawURL, Data: v}, nil
	})
}

// load runs the cached fetch of rawURL and narrows the shared untyped
// result to V.
func load[V any](ctx context.Context, c *Client, rawURL string, build func(data []byte) (V, error)) *async.Future[V] {
	key, err := cache.KeyFromURL(rawURL)
	if err != nil {
		return async.Failed[V](&FetchError{URL: rawURL, Class: ErrorClassClient, Err: err})
	}
	id := key.String()

	shared := c.layer.GetOrFetch(ctx, id, func(ctx context.Context) (any, error) {
		return produce(ctx, c, key, rawURL, build)
	})

	select {
	case <-shared.Done():
		v, err := narrow[V](id, shared)
		if err != nil {
			return async.Failed[V](err)
		}
		return async.Resolved(v)
	default:
	}

	return async.Then(ctx, shared, func(ctx context.Context, _ any) (V, error) {
		return narrow[V](id, shared)
	})
}

// produce fetches and decodes rawURL. Only payloads that decode are written
// to the payload store; a stored payload that fails to decode is evicted and
// fetched again from the network.
func produce[V any](ctx context.Context, c *Client, key cache.CacheKey, rawURL string, build func(data []byte) (V, error)) (V, error) {
	data, stored, err := c.payload(ctx, key, rawURL)
	if err != nil {
		var zero V
		return zero, err
	}

	v, err := build(data)
	if err != nil && stored {
		c.evict(ctx, key, rawURL, err)
		if data, err = c.download(ctx, rawURL); err != nil {
			var zero V
			return zero, err
		}
		stored = false
		v, err = build(data)
	}
	if err != nil {
		return v, err
	}

	if !stored {
		c.keep(ctx, key, rawURL, data)
	}
	return v, nil
}

// narrow reads a completed shared future as V.
func narrow[V any](id string, f *async.Future[any]) (V, error) {
	var zero V
	v, err := f.Await(context.Background())
	if err != nil {
		return zero, err
	}
	typed, ok := v.(V)
	if !ok {
		return zero, &CacheStateError{Key: id, Want: typeName[V](), Got: fmt.Sprintf("%T", v)}
	}
	return typed, nil
}

func decode[T any](c *Client, rawURL string, data []byte) (T, error) {
	var v T
	if err := c.decoder.Decode(data, &v); err != nil {
		var zero T
		return zero, &DecodeError{Type: typeName[T](), URL: rawURL, Err: err}
	}
	return v, nil
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
