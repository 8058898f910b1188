// internal/tenant/entry.go
//
// Registry cache entry and the Handle aggregate.
//
// Context
// -------
// A live Handle bundles the open *sqlx.DB for one tenant's database file
// with the per-tenant write lock.  The registry stores a pointer to Handle
// inside `entry`, along with a `lastSeen` UnixNano timestamp used by the
// evictor for idle and LRU eviction.
//
// Notes
// -----
//   - SQLite tolerates concurrent readers under WAL but only one writer per
//     file; Write serialises mutating callers, Read admits them in
//     parallel, and Exclusive (vacuum, backup) shuts out both.
//   - Close is invoked only by the registry (eviction, invalidation, or
//     shutdown); callers must never close a Handle themselves.
package tenant

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"
)

type entry struct {
	handle   *Handle
	lastSeen int64 // UnixNano, touched atomically on every hit
}

// Handle is an open, reusable connection to one tenant's database.
type Handle struct {
	TenantID uint64
	Path     string

	db *sqlx.DB
	mu sync.RWMutex
}

// DB exposes the underlying pool for callers that manage their own
// transaction scope.  Prefer Read/Write, which take the tenant lock.
func (h *Handle) DB() *sqlx.DB { return h.db }

// Read runs fn while holding the shared lock.  Readers proceed concurrently
// with other readers but never alongside a writer or an exclusive
// operation.
func (h *Handle) Read(ctx context.Context, fn func(*sqlx.DB) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return fn(h.db)
}

// Write runs fn while holding the exclusive lock, serialising mutating
// operations against this tenant.
func (h *Handle) Write(ctx context.Context, fn func(*sqlx.DB) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.db)
}

// Exclusive is Write under a different name, used by vacuum, backup, and
// restore so call sites read as what they are.
func (h *Handle) Exclusive(ctx context.Context, fn func(*sqlx.DB) error) error {
	return h.Write(ctx, fn)
}

func (h *Handle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db.Close()
}
