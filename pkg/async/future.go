// Package async provides a single-assignment asynchronous result used to
// compose fetches without blocking inside the client.
package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPanic wraps a panic recovered from a Future's function.
var ErrPanic = errors.New("async: function panicked")

// Future is the result of an operation that completes exactly once with a
// value or an error. Any number of goroutines may wait on the same Future and
// all observe the same outcome.
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// Go runs fn on its own goroutine and returns a Future for its result.
//
// fn receives a context that keeps ctx's values but not its cancellation:
// callers that stop waiting do not abort work other callers may share.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.complete(zero, fmt.Errorf("%w: %v", ErrPanic, r))
			}
		}()
		v, err := fn(runCtx)
		f.complete(v, err)
	}()
	return f
}

// Resolved returns an already completed Future holding v.
func Resolved[T any](v T) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), value: v}
	close(f.done)
	return f
}

// Failed returns an already completed Future holding err.
func Failed[T any](err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), err: err}
	close(f.done)
	return f
}

// Pending returns an incomplete Future and the function that completes it.
// Only the first call to complete has an effect.
func Pending[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.complete
}

func (f *Future[T]) complete(v T, err error) {
	f.once.Do(func() {
		f.value, f.err = v, err
		close(f.done)
	})
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the Future completes or ctx is done. Returning because
// of ctx leaves the underlying work running.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then returns a Future that runs fn with f's value once f succeeds. An error
// from f is propagated without calling fn.
func Then[S, T any](ctx context.Context, f *Future[S], fn func(ctx context.Context, v S) (T, error)) *Future[T] {
	return Go(ctx, func(ctx context.Context) (T, error) {
		v, err := f.Await(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		return fn(ctx, v)
	})
}
