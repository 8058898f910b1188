// internal/cache/ttl.go
//
// Small TTL-bounded LRU cache used for hot-path lookups such as API key
// validation results.  Entries expire individually; LRU pressure keeps the
// total size bounded.  Safe for concurrent use.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// TTL is a least-recently-used cache whose entries also carry an absolute
// expiry.  Keys must be comparable; values can be any.
type TTL struct {
	mu   sync.Mutex
	cap  int
	ll   *list.List
	dict map[any]*list.Element
}

type item struct {
	key any
	val any
	exp time.Time
}

// New returns a TTL cache with the given capacity.  Panics on cap < 1.
func New(capacity int) *TTL {
	if capacity < 1 {
		panic("cache: capacity must be >= 1")
	}
	return &TTL{
		cap:  capacity,
		ll:   list.New(),
		dict: make(map[any]*list.Element, capacity),
	}
}

// Get retrieves a live value and marks it MRU.  Expired entries are removed
// on access and reported as a miss.
func (c *TTL) Get(key any) (val any, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ele, hit := c.dict[key]
	if !hit {
		return nil, false
	}
	it := ele.Value.(item)
	if time.Now().After(it.exp) {
		c.ll.Remove(ele)
		delete(c.dict, key)
		return nil, false
	}
	c.ll.MoveToFront(ele)
	return it.val, true
}

// Set inserts or updates a value with the given lifetime.
func (c *TTL) Set(key, val any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	exp := time.Now().Add(ttl)
	if ele, hit := c.dict[key]; hit {
		ele.Value = item{key, val, exp}
		c.ll.MoveToFront(ele)
		return
	}
	ele := c.ll.PushFront(item{key, val, exp})
	c.dict[key] = ele
	if c.ll.Len() > c.cap {
		last := c.ll.Back()
		c.ll.Remove(last)
		delete(c.dict, last.Value.(item).key)
	}
}

// Delete removes a key if present.
func (c *TTL) Delete(key any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, hit := c.dict[key]; hit {
		c.ll.Remove(ele)
		delete(c.dict, key)
	}
}

// Len reports current size, including entries that have expired but not yet
// been touched.
func (c *TTL) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
