// evictor.go houses the eviction loop for Registry.  Every EvictInterval it
// scans the map and removes:
//
//   - handles idle longer than idleTTL
//   - least-recently-used handles when map size exceeds maxHandles
//
// Each eviction closes the handle cleanly and updates Prometheus counters.
package tenant

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/yanizio/webbloc/internal/metrics"
)

func (r *Registry) evictLoop() {
	for range r.evictTicker.C {
		r.evictPass(time.Now())
	}
}

// evictPass is a single sweep, split out so tests can drive it without the
// ticker.
func (r *Registry) evictPass(now time.Time) {
	nowNano := now.UnixNano()
	var count int

	// Idle pass.
	r.m.Range(func(key, value any) bool {
		count++
		ent := value.(*entry)
		idle := time.Duration(nowNano - atomic.LoadInt64(&ent.lastSeen))
		if r.idleTTL > 0 && idle > r.idleTTL {
			if _, ok := r.m.LoadAndDelete(key); ok {
				_ = ent.handle.close()
				count--
				r.log.Infow("tenant handle evicted",
					"tenant", key, "idle", idle.Truncate(time.Second))
				metrics.TenantEvictTotal.Inc()
				metrics.ActiveHandles.Dec()
			}
		}
		return true
	})

	// LRU pass.
	if r.maxHandles <= 0 || count <= r.maxHandles {
		return
	}
	type kv struct {
		key uint64
		at  int64
	}
	all := make([]kv, 0, count)
	r.m.Range(func(key, value any) bool {
		ent := value.(*entry)
		all = append(all, kv{key: key.(uint64), at: atomic.LoadInt64(&ent.lastSeen)})
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
	for i := 0; i < len(all)-r.maxHandles; i++ {
		if v, ok := r.m.LoadAndDelete(all[i].key); ok {
			_ = v.(*entry).handle.close()
			r.log.Infow("tenant handle evicted", "tenant", all[i].key, "reason", "lru")
			metrics.TenantEvictTotal.Inc()
			metrics.ActiveHandles.Dec()
		}
	}
}
