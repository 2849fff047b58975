// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package concurrent provides data structures which are safe for concurrent use.
package concurrent

import (
	"runtime"
	"sync"
	"weak"
)

// WeakCache maps the identity of a *K to a value of type V.
//
// Keys are held weakly: once a key becomes unreachable its entry is
// removed, so the cache never keeps a key alive. Values must not
// reference their key, otherwise the key can never be collected.
type WeakCache[K, V any] struct {
	mu   sync.Mutex
	data map[weak.Pointer[K]]V
}

// NewWeakCache initializes a [WeakCache].
func NewWeakCache[K, V any]() *WeakCache[K, V] {
	return &WeakCache[K, V]{
		data: make(map[weak.Pointer[K]]V),
	}
}

// Get returns the value cached for k, if any.
func (c *WeakCache[K, V]) Get(k *K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.data[weak.Make(k)]
	return v, ok
}

// GetOr returns the value cached for k or computes it with f.
// Errors returned by f are not cached.
//
// f runs without the lock held, so it may use the cache itself. When
// concurrent calls compute a value for the same k, the first one stored
// is returned to all of them.
func (c *WeakCache[K, V]) GetOr(k *K, f func() (V, error)) (V, error) {
	if v, ok := c.Get(k); ok {
		return v, nil
	}

	v, err := f()
	if err != nil {
		return v, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	wp := weak.Make(k)
	if cur, ok := c.data[wp]; ok {
		return cur, nil
	}
	c.data[wp] = v
	runtime.AddCleanup(k, c.evict, wp)
	return v, nil
}

// Len reports the number of live entries.
func (c *WeakCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.data)
}

func (c *WeakCache[K, V]) evict(wp weak.Pointer[K]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, wp)
}
