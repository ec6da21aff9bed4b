// Package cache provides a thread-safe LRU cache for compiled Luppolo programs.
//
// The engine uses it when the WithCaching option is enabled, so the same
// source is parsed, optimized and threaded only once. Cached programs are
// shared between callers and must be treated as read-only.
//
// # Example
//
//	c := cache.New(256)
//	prog, err := c.GetOrCompile(cache.Key(src, true), compile)
package cache

import (
	"container/list"
	"sync"

	"github.com/sandrolain/luppolo/pkg/types"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 256

// Key builds the cache key of a compilation. Optimized and plain builds of
// the same source are different programs.
func Key(source string, optimize bool) string {
	if optimize {
		return "O:" + source
	}
	return "-:" + source
}

// entry is the list element payload.
type entry struct {
	key  string
	prog types.Program
}

// Cache maps compilation keys to threaded programs, evicting the least
// recently used program when full.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

// New returns an empty cache holding at most capacity programs
// (DefaultCapacity when capacity <= 0).
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get retrieves a program and marks it most recently used.
func (c *Cache) Get(key string) (types.Program, bool) {
	c.mu.RLock()
	el, ok := c.items[key]
	// The front element needs no promotion, so the write lock is skipped.
	alreadyFront := ok && c.ll.Front() == el
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !alreadyFront {
		// Re-check under the write lock in case of a concurrent eviction.
		c.mu.Lock()
		el, ok = c.items[key]
		if ok {
			c.ll.MoveToFront(el)
		}
		c.mu.Unlock()

		if !ok {
			return nil, false
		}
	}
	return el.Value.(*entry).prog, true
}

// Set inserts or replaces a program.
func (c *Cache) Set(key string, prog types.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).prog = prog
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}

	el := c.ll.PushFront(&entry{key: key, prog: prog})
	c.items[key] = el
}

// GetOrCompile returns the cached program for key, or calls compile and
// caches its result. Errors are not cached.
func (c *Cache) GetOrCompile(key string, compile func() (types.Program, error)) (types.Program, error) {
	if prog, ok := c.Get(key); ok {
		return prog, nil
	}
	prog, err := compile()
	if err != nil {
		return nil, err
	}
	c.Set(key, prog)
	return prog, nil
}

// Len reports how many programs are cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	n := len(c.items)
	c.mu.RUnlock()
	return n
}

// Capacity reports the size limit.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Invalidate drops the program stored under key, if any.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// evictLocked drops the back of the list. c.mu must be write-locked.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
