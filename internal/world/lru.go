package world

import (
	"container/list"
	"fmt"
)

// LRU is a fixed-capacity cache with strict least-recently-used eviction.
// Any Get or Put moves the entry to most-recently-used. It is not
// goroutine-safe; owners guard it with their own mutex.
type LRU[K comparable, V any] struct {
	capacity int
	onEvict  func(K, V)

	ll    *list.List
	items map[K]*list.Element
}

type lruEntry[K comparable, V any] struct {
	key K
	val V
}

// NewLRU creates a cache holding at most capacity entries. onEvict, if
// non-nil, is called with each entry dropped under capacity pressure (but
// not for Pop).
func NewLRU[K comparable, V any](capacity int, onEvict func(K, V)) (*LRU[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("lru capacity must be greater than zero, got %d", capacity)
	}
	return &LRU[K, V]{
		capacity: capacity,
		onEvict:  onEvict,
		ll:       list.New(),
		items:    make(map[K]*list.Element),
	}, nil
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*lruEntry[K, V]).val, true
}

// Put inserts or replaces an entry and marks it most recently used,
// evicting the least-recently-used entries if over capacity.
func (c *LRU[K, V]) Put(key K, val V) {
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*lruEntry[K, V]).val = val
		return
	}

	el := c.ll.PushFront(&lruEntry[K, V]{key: key, val: val})
	c.items[key] = el

	for c.ll.Len() > c.capacity {
		c.evictOldest()
	}
}

// Pop removes and returns an entry without invoking the eviction callback.
func (c *LRU[K, V]) Pop(key K) (V, bool) {
	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.ll.Remove(el)
	delete(c.items, key)
	return el.Value.(*lruEntry[K, V]).val, true
}

// Contains reports presence without touching recency.
func (c *LRU[K, V]) Contains(key K) bool {
	_, ok := c.items[key]
	return ok
}

// Len returns the number of resident entries.
func (c *LRU[K, V]) Len() int {
	return c.ll.Len()
}

func (c *LRU[K, V]) evictOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	ent := el.Value.(*lruEntry[K, V])
	delete(c.items, ent.key)
	if c.onEvict != nil {
		c.onEvict(ent.key, ent.val)
	}
}
