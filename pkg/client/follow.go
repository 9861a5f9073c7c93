package client

import (
	"context"

	"github.com/Sternrassler/pokeapi-client/pkg/async"
	"github.com/Sternrassler/pokeapi-client/pkg/pagination"
	"github.com/Sternrassler/pokeapi-client/pkg/resource"
)

// Extractor picks a reference out of a loaded resource. It returns nil when
// the resource has none.
type Extractor[S any] func(src *resource.Resource[S]) *resource.NamedReference

// Follow loads the resource src refers to through extract. The target is
// fetched by name on the regular cache path, so following the same
// reference again, or fetching the target directly by name, does not issue
// another request. An empty kind is taken from the reference URL.
func Follow[S, T any](ctx context.Context, c *Client, src *resource.Resource[S], kind resource.Kind, extract Extractor[S]) (*resource.Resource[T], error) {
	return followAsync[S, T](ctx, c, src, kind, extract).Await(ctx)
}

// FollowAsync chains Follow after src completes. An error of src is passed
// through without calling extract.
func FollowAsync[S, T any](ctx context.Context, c *Client, src *async.Future[*resource.Resource[S]], kind resource.Kind, extract Extractor[S]) *async.Future[*resource.Resource[T]] {
	return async.Then(ctx, src, func(ctx context.Context, r *resource.Resource[S]) (*resource.Resource[T], error) {
		return followAsync[S, T](ctx, c, r, kind, extract).Await(ctx)
	})
}

func followAsync[S, T any](ctx context.Context, c *Client, src *resource.Resource[S], kind resource.Kind, extract Extractor[S]) *async.Future[*resource.Resource[T]] {
	if src == nil {
		return async.Failed[*resource.Resource[T]](&NoReferenceError{Source: "<nil>", Target: string(kind)})
	}
	ref := extract(src)
	if ref == nil || ref.Name == "" {
		return async.Failed[*resource.Resource[T]](&NoReferenceError{
			Source: src.Key.String(),
			Target: string(kind),
		})
	}
	if kind == "" {
		kind = ref.Kind()
	}

	c.logger.Debug().
		Str("source", src.Key.String()).
		Str("kind", string(kind)).
		Str("name", ref.Name).
		Msg("Following reference")

	return FetchAsync[T](ctx, c, kind, ref.Name)
}

// ResolveAll fetches every referenced resource with bounded concurrency and
// returns them in the order of refs. The first failure is returned.
func ResolveAll[T any](ctx context.Context, c *Client, kind resource.Kind, refs []resource.NamedReference) ([]*resource.Resource[T], error) {
	return pagination.ResolveAll(ctx, c.batch, refs, func(ctx context.Context, ref resource.NamedReference) (*resource.Resource[T], error) {
		k := kind
		if k == "" {
			k = ref.Kind()
		}
		return Fetch[T](ctx, c, k, ref.Name)
	})
}
