// internal/tenant/registry.go
//
// Connection registry: one cached Handle per tenant, opened lazily.
//
// Context
// -------
// The process may host thousands of tenants; holding an open pool for each
// is unacceptable.  The registry keeps live handles in a sync.Map, touches
// a lastSeen timestamp on every hit, and lets the evictor close idle or
// least-recently-used entries (see evictor.go).
//
// The first Acquire for a tenant may also have to provision the database
// file.  Both the open and the provisioning run inside a singleflight
// group keyed by tenant ID, so two concurrent requests observing "file
// absent" produce exactly one creation sequence; the loser waits for the
// winner's handle.  No map-wide lock is ever held across file I/O — only
// the sync.Map store itself is synchronised.
package tenant

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/webbloc/internal/database"
	"github.com/yanizio/webbloc/internal/metrics"
)

// Static defaults.  Override via config.
const (
	IdleTTL       = 30 * time.Minute
	MaxHandles    = 100
	EvictInterval = 5 * time.Minute
)

// Registry caches tenant handles and provisions missing databases on first
// access.
type Registry struct {
	paths Paths
	boot  *Bootstrapper
	opts  database.Options
	log   *zap.SugaredLogger

	sfg         singleflight.Group
	m           sync.Map // uint64 → *entry
	idleTTL     time.Duration
	maxHandles  int
	evictTicker *time.Ticker
	closed      atomic.Bool
}

// NewRegistry constructs a Registry and starts the background evictor.
func NewRegistry(paths Paths, boot *Bootstrapper, opts database.Options,
	idleTTL time.Duration, maxHandles int, log *zap.SugaredLogger) *Registry {

	r := &Registry{
		paths:      paths,
		boot:       boot,
		opts:       opts,
		log:        log,
		idleTTL:    idleTTL,
		maxHandles: maxHandles,
	}
	r.evictTicker = time.NewTicker(EvictInterval)
	go r.evictLoop()
	return r
}

// Acquire returns the Handle for tenantID, opening — and if necessary
// provisioning — the database on demand.  The context bounds the open; a
// caller that gives up stops waiting, but the winner of the singleflight
// still finishes and caches the handle for the next request.
func (r *Registry) Acquire(ctx context.Context, tenantID uint64) (*Handle, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	if v, ok := r.m.Load(tenantID); ok {
		ent := v.(*entry)
		atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
		return ent.handle, nil
	}

	key := fmt.Sprintf("%d", tenantID)
	ch := r.sfg.DoChan(key, func() (interface{}, error) {
		// Double-check after the singleflight barrier.
		if v, ok := r.m.Load(tenantID); ok {
			ent := v.(*entry)
			atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
			return ent.handle, nil
		}
		h, err := r.open(ctx, tenantID)
		if err != nil {
			metrics.TenantOpenErrorsTotal.Inc()
			return nil, err
		}
		r.m.Store(tenantID, &entry{handle: h, lastSeen: time.Now().UnixNano()})
		metrics.TenantOpenTotal.Inc()
		metrics.ActiveHandles.Inc()
		return h, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Handle), nil
	}
}

// open provisions the file when absent, then opens the long-lived pool.  A
// pool that fails after opening is closed, never cached.
func (r *Registry) open(ctx context.Context, tenantID uint64) (*Handle, error) {
	path := r.paths.DB(tenantID)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := r.boot.Provision(ctx, path); err != nil {
			return nil, err
		}
		metrics.TenantProvisionTotal.Inc()
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	db, err := database.OpenWithOptions(ctx, path, r.opts)
	if err != nil {
		return nil, err
	}
	return &Handle{TenantID: tenantID, Path: path, db: db}, nil
}

// Invalidate drops the cached handle for tenantID after a connection-level
// failure.  The current caller still sees its operation fail; the next
// Acquire reopens from scratch, which is how the registry recovers from
// externally deleted or corrupted files.
func (r *Registry) Invalidate(tenantID uint64) {
	if v, ok := r.m.LoadAndDelete(tenantID); ok {
		ent := v.(*entry)
		if err := ent.handle.close(); err != nil {
			r.log.Warnw("close invalidated handle", "tenant", tenantID, "err", err)
		}
		metrics.ActiveHandles.Dec()
		metrics.TenantInvalidateTotal.Inc()
	}
}

// Purge removes and closes the cached handle without the failure
// book-keeping.  Used before delete/restore so no stale handle can write to
// a removed or replaced file.
func (r *Registry) Purge(tenantID uint64) {
	if v, ok := r.m.LoadAndDelete(tenantID); ok {
		_ = v.(*entry).handle.close()
		metrics.ActiveHandles.Dec()
	}
}

// Close stops the evictor and closes every cached handle.  Acquire returns
// ErrClosed afterwards.
func (r *Registry) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}
	r.evictTicker.Stop()
	r.m.Range(func(key, value any) bool {
		_ = value.(*entry).handle.close()
		r.m.Delete(key)
		metrics.ActiveHandles.Dec()
		return true
	})
}
