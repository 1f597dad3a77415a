package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the value for a key from the backing store.
type FetchFunc[T any] func(ctx context.Context, key string) (T, error)

// Loader is a read-through cache: GetOrFetch serves from the cache and
// falls back to the fetch function, Invalidate drops a key after a
// write. It replaces ad hoc module-level record snapshots with an
// explicitly owned object.
type Loader[T any] struct {
	cache Cache[T]
	fetch FetchFunc[T]
	group singleflight.Group
}

func NewLoader[T any](c Cache[T], fetch FetchFunc[T]) *Loader[T] {
	return &Loader[T]{cache: c, fetch: fetch}
}

// GetOrFetch returns the cached value for key, fetching and caching it
// on a miss. Concurrent misses for the same key share one fetch, so the
// aggregator is never handed a half-updated collection.
func (l *Loader[T]) GetOrFetch(ctx context.Context, key string) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}
	v, err, _ := l.group.Do(key, func() (any, error) {
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		fetched, err := l.fetch(ctx, key)
		if err != nil {
			return fetched, err
		}
		l.cache.Set(key, fetched)
		return fetched, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops the cached value for key.
func (l *Loader[T]) Invalidate(key string) {
	l.cache.Delete(key)
	l.group.Forget(key)
}
