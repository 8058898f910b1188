// internal/ratelimit/memory.go
//
// In-process counter store on a sharded concurrent map.  The default
// backend: the platform runs single-process, so process-local counters are
// exact.  Entries expire lazily — an Incr that finds a stale bucket resets
// it, and a periodic sweep drops buckets nothing touches anymore.
package ratelimit

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type memEntry struct {
	count int64
	exp   int64 // UnixNano
}

// MemoryStore implements Store with xsync.MapOf.  Compute gives atomic
// read-modify-write per key, so increments are never lost.
type MemoryStore struct {
	m    *xsync.MapOf[string, memEntry]
	now  func() time.Time
	done chan struct{}
}

// NewMemoryStore starts the lazy-sweep loop and returns the store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		m:    xsync.NewMapOf[string, memEntry](),
		now:  time.Now,
		done: make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Incr bumps the bucket, resetting it first when its window has elapsed.
func (s *MemoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	nowNano := s.now().UnixNano()
	ent, _ := s.m.Compute(key, func(old memEntry, loaded bool) (memEntry, bool) {
		if !loaded || nowNano >= old.exp {
			return memEntry{count: 1, exp: nowNano + ttl.Nanoseconds()}, false
		}
		return memEntry{count: old.count + 1, exp: old.exp}, false
	})
	return ent.count, nil
}

// Decr compensates a rejected increment.  A bucket that expired in between
// is left alone.
func (s *MemoryStore) Decr(_ context.Context, key string) error {
	nowNano := s.now().UnixNano()
	s.m.Compute(key, func(old memEntry, loaded bool) (memEntry, bool) {
		if !loaded {
			return old, true // nothing to decrement
		}
		if nowNano >= old.exp || old.count <= 0 {
			return old, false
		}
		return memEntry{count: old.count - 1, exp: old.exp}, false
	})
	return nil
}

// Close stops the sweep loop.
func (s *MemoryStore) Close() { close(s.done) }

func (s *MemoryStore) sweep() {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			nowNano := s.now().UnixNano()
			s.m.Range(func(key string, ent memEntry) bool {
				if nowNano >= ent.exp {
					s.m.Delete(key)
				}
				return true
			})
		}
	}
}
