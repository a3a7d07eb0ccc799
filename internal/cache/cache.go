// Package cache holds single values fetched from slow collaborators.
package cache

import (
	"context"
	"sync"
	"time"
)

// Value caches one fetched value for TTL. A zero TTL never expires.
// Concurrent Get calls during a fetch wait for that fetch.
type Value[T any] struct {
	TTL time.Duration
	Now func() time.Time

	mu        sync.Mutex
	value     T
	fetchedAt time.Time
	valid     bool
}

// Get returns the cached value, calling fetch when it is missing or stale.
// Fetch errors are returned and leave the previous entry untouched.
func (v *Value[T]) Get(ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.freshLocked() {
		return v.value, nil
	}

	fetched, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	v.value = fetched
	v.fetchedAt = v.now()
	v.valid = true
	return fetched, nil
}

// Peek returns the cached value when it is still fresh.
func (v *Value[T]) Peek() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.freshLocked() {
		var zero T
		return zero, false
	}
	return v.value, true
}

// FetchedAt reports when the current entry was stored.
func (v *Value[T]) FetchedAt() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fetchedAt
}

// Invalidate drops the cached entry.
func (v *Value[T]) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	var zero T
	v.value = zero
	v.valid = false
	v.fetchedAt = time.Time{}
}

func (v *Value[T]) freshLocked() bool {
	if !v.valid {
		return false
	}
	if v.TTL <= 0 {
		return true
	}
	return v.now().Sub(v.fetchedAt) < v.TTL
}

func (v *Value[T]) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}
