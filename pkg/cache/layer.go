package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/pokeapi-client/pkg/async"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

// Policy bounds the memory layer. Zero values disable the bound.
type Policy struct {
	// MaxEntries caps the number of ready entries (least recently used are evicted)
	MaxEntries int

	// TTL is how long a ready entry is served before it is fetched again
	TTL time.Duration
}

// EntryState is the observable state of a key in the memory layer.
type EntryState int

const (
	// StateAbsent means no entry exists. Failed fetches return to this state.
	StateAbsent EntryState = iota

	// StatePending means a fetch is in flight.
	StatePending

	// StateReady means a value is memoized.
	StateReady
)

func (s EntryState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	default:
		return "absent"
	}
}

// Stats are counters of a Layer since creation.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Joins     uint64 `json:"joins"`
	Evictions uint64 `json:"evictions"`
}

// Producer fetches the value of a key on a miss.
type Producer[V any] func(ctx context.Context) (V, error)

// Layer maps keys to in-flight or completed results. It runs at most one
// producer per key at a time, memoizes successes and never stores failures.
//
// In-flight fetches are tracked in a sync.Map so entry creation is an atomic
// per-key insert; completed values live in an LRU governed by Policy. No
// lock is held while a producer runs.
type Layer[V any] struct {
	ready   *expirable.LRU[string, V]
	pending sync.Map // string -> *async.Future[V]
	logger  zerolog.Logger

	hits      atomic.Uint64
	misses    atomic.Uint64
	joins     atomic.Uint64
	evictions atomic.Uint64
}

// NewLayer creates a memory layer with the given eviction policy.
func NewLayer[V any](policy Policy, logger zerolog.Logger) *Layer[V] {
	l := &Layer[V]{logger: logger}
	l.ready = expirable.NewLRU[string, V](policy.MaxEntries, l.onEvict, policy.TTL)
	return l
}

func (l *Layer[V]) onEvict(key string, _ V) {
	l.evictions.Add(1)
	CacheEvictions.Inc()
	l.logger.Debug().Str("key", key).Msg("Cache entry evicted")
}

// GetOrFetch returns the result for key, invoking producer only if the key is
// neither memoized nor already being fetched. Every caller joining the same
// in-flight fetch observes the same outcome.
//
// The producer runs on its own goroutine, detached from ctx cancellation, so
// a caller that stops waiting does not fail the other callers.
func (l *Layer[V]) GetOrFetch(ctx context.Context, key string, producer Producer[V]) *async.Future[V] {
	if v, ok := l.ready.Get(key); ok {
		l.hit(key)
		return async.Resolved(v)
	}

	fut, complete := async.Pending[V]()
	actual, loaded := l.pending.LoadOrStore(key, fut)
	if loaded {
		l.joins.Add(1)
		CacheJoins.Inc()
		l.logger.Debug().Str("key", key).Msg("Joined in-flight fetch")
		return actual.(*async.Future[V])
	}

	// A fetch may have completed between the lookup above and our insert.
	if v, ok := l.ready.Get(key); ok {
		l.pending.CompareAndDelete(key, fut)
		complete(v, nil)
		l.hit(key)
		return fut
	}

	l.misses.Add(1)
	CacheMisses.WithLabelValues("memory").Inc()
	l.logger.Debug().Str("key", key).Msg("Cache miss")

	runCtx := context.WithoutCancel(ctx)
	go func() {
		v, err := l.produce(runCtx, producer)
		if err == nil {
			// Promote before releasing the pending slot so a caller that
			// misses the pending entry finds the ready one.
			l.ready.Add(key, v)
		}
		l.pending.CompareAndDelete(key, fut)
		complete(v, err)
	}()

	return fut
}

func (l *Layer[V]) produce(ctx context.Context, producer Producer[V]) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", async.ErrPanic, r)
		}
	}()
	return producer(ctx)
}

func (l *Layer[V]) hit(key string) {
	l.hits.Add(1)
	CacheHits.WithLabelValues("memory").Inc()
	l.logger.Debug().Str("key", key).Msg("Cache hit")
}

// State reports whether key is absent, in flight or memoized.
func (l *Layer[V]) State(key string) EntryState {
	if _, ok := l.pending.Load(key); ok {
		return StatePending
	}
	if _, ok := l.ready.Peek(key); ok {
		return StateReady
	}
	return StateAbsent
}

// Forget drops the memoized value for key. An in-flight fetch is unaffected.
func (l *Layer[V]) Forget(key string) {
	l.ready.Remove(key)
}

// Purge drops every memoized value.
func (l *Layer[V]) Purge() {
	l.ready.Purge()
}

// Len returns the number of memoized values (including expired ones not yet
// reaped).
func (l *Layer[V]) Len() int {
	return l.ready.Len()
}

// Stats returns a snapshot of the layer counters.
func (l *Layer[V]) Stats() Stats {
	return Stats{
		Hits:      l.hits.Load(),
		Misses:    l.misses.Load(),
		Joins:     l.joins.Load(),
		Evictions: l.evictions.Load(),
	}
}
