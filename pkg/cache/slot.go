package cache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoadTimeout bounds a shared load, which runs detached from the caller's
// context.
const LoadTimeout = 30 * time.Second

// Loader produces a fresh read model from the data source.
type Loader[T any] func(ctx context.Context) (T, error)

// Slot is a typed read-through handle on one fixed key of one region.
type Slot[T any] struct {
	store *Store
	key   string
	group singleflight.Group
}

// NewSlot binds a typed slot to key in store. The key must be declared in
// the region config; this is checked here so a typo fails at wiring time.
func NewSlot[T any](store *Store, key string) (*Slot[T], error) {
	if _, ok := store.keys[key]; !ok {
		return nil, fmt.Errorf("%w: region %q key %q", ErrUndeclaredKey, store.region, key)
	}
	return &Slot[T]{store: store, key: key}, nil
}

// MustNewSlot is like NewSlot but panics on error.
func MustNewSlot[T any](store *Store, key string) *Slot[T] {
	s, err := NewSlot[T](store, key)
	if err != nil {
		panic(err)
	}
	return s
}

// GetOrLoad returns the cached value or loads, stores and returns a fresh one.
//
// Concurrent misses share a single loader call. A load that started before an
// Invalidate of the same key returns its result to its callers but does not
// populate the cache, and callers arriving after the Invalidate start a new
// load. Loader errors are returned unchanged and nothing is cached.
//
// The loader runs detached from ctx, bounded by LoadTimeout. A caller whose
// ctx ends stops waiting with ctx.Err(); the load continues for the others.
func (s *Slot[T]) GetOrLoad(ctx context.Context, load Loader[T]) (T, error) {
	if v, ok := s.store.Get(s.key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
		s.store.logger.Warn().Str("key", s.key).Msgf("Cached value has type %T, reloading", v)
	}

	gen := s.store.generation(s.key)
	flight := fmt.Sprintf("%s/%s#%d", s.store.region, s.key, gen)

	ch := s.group.DoChan(flight, func() (_ any, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("cache loader panicked: %v", p)
				s.store.recordLoad(err)
			}
		}()

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LoadTimeout)
		defer cancel()

		value, err := load(loadCtx)
		s.store.recordLoad(err)
		if err != nil {
			return nil, err
		}
		stored, putErr := s.store.putIfGeneration(s.key, value, gen)
		if putErr != nil {
			return nil, putErr
		}
		if !stored {
			s.store.logger.Debug().Str("key", s.key).Msg("Key invalidated during load, result not cached")
		}
		return value, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			s.store.logger.Debug().Err(res.Err).Str("key", s.key).Bool("shared", res.Shared).Msg("Read-through load failed")
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Peek returns the cached value without loading.
func (s *Slot[T]) Peek() (T, bool) {
	v, ok := s.store.Get(s.key)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// Invalidate evicts the slot's key.
func (s *Slot[T]) Invalidate() {
	s.store.Invalidate(s.key)
}
