// internal/tenant/schema.go
//
// Schema bootstrapper for per-tenant databases.
//
// Context
// -------
// Provision creates the database file for a tenant and applies the fixed
// two-table schema (users, web_blocs) plus indexes.  The sequence is
// all-or-nothing: any failure removes the partial file and its WAL/SHM side
// files before the error is returned, so a later attempt starts clean and
// the registry never caches a half-built database.
//
// Schema reference (2025-08)
//
//	users      (id PK, name, email UNIQUE, password_hash, verified_at,
//	            metadata JSON, created_at, updated_at)
//	web_blocs  (id PK, type, user_id FK→users nullable, page_url,
//	            data JSON, metadata JSON, status, parent_id FK→web_blocs
//	            nullable, sort_order, created_at, updated_at)
//
// Notes
// -----
// • parent_id is self-referential; the FK guarantees the parent row exists
//   before a child is inserted, so the structure is a forest by
//   construction.
// • journal_mode=WAL is persistent in the file once set here; the other
//   pragmas are reapplied per connection by internal/database.
package tenant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/yanizio/webbloc/internal/database"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    name          TEXT    NOT NULL,
    email         TEXT    NOT NULL UNIQUE,
    password_hash TEXT    NOT NULL,
    verified_at   TIMESTAMP,
    metadata      TEXT    NOT NULL DEFAULT '{}',
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS web_blocs (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    type       TEXT    NOT NULL,
    user_id    INTEGER REFERENCES users(id) ON DELETE SET NULL,
    page_url   TEXT    NOT NULL,
    data       TEXT    NOT NULL DEFAULT '{}',
    metadata   TEXT    NOT NULL DEFAULT '{}',
    status     TEXT    NOT NULL DEFAULT 'active',
    parent_id  INTEGER REFERENCES web_blocs(id) ON DELETE CASCADE,
    sort_order INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_web_blocs_type       ON web_blocs (type);
CREATE INDEX IF NOT EXISTS idx_web_blocs_page_url   ON web_blocs (page_url);
CREATE INDEX IF NOT EXISTS idx_web_blocs_user_id    ON web_blocs (user_id);
CREATE INDEX IF NOT EXISTS idx_web_blocs_parent_id  ON web_blocs (parent_id);
CREATE INDEX IF NOT EXISTS idx_web_blocs_created_at ON web_blocs (created_at);
CREATE INDEX IF NOT EXISTS idx_web_blocs_status     ON web_blocs (status);
`

// Bootstrapper provisions empty tenant databases.
type Bootstrapper struct {
	opts database.Options
	log  *zap.SugaredLogger
}

// NewBootstrapper returns a Bootstrapper using opts for the bootstrap
// connection.
func NewBootstrapper(opts database.Options, log *zap.SugaredLogger) *Bootstrapper {
	return &Bootstrapper{opts: opts, log: log}
}

// Provision creates the parent directory and the database file at path, then
// applies pragmas and the schema over a short-lived bootstrap connection
// which is closed explicitly before returning.  On failure the partial file
// is removed and the returned error wraps ErrProvisioningFailed.
func (b *Bootstrapper) Provision(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %v", ErrProvisioningFailed, err)
	}

	db, err := database.OpenWithOptions(ctx, path, b.opts)
	if err != nil {
		b.cleanup(path)
		return fmt.Errorf("%w: open: %v", ErrProvisioningFailed, err)
	}

	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()
		b.cleanup(path)
		return fmt.Errorf("%w: schema: %v", ErrProvisioningFailed, err)
	}

	if err := db.Close(); err != nil {
		b.cleanup(path)
		return fmt.Errorf("%w: close bootstrap: %v", ErrProvisioningFailed, err)
	}

	b.log.Infow("tenant database provisioned", "path", path)
	return nil
}

// cleanup removes the primary file and side files, best effort.  Failures
// are logged, not returned; there is nothing more a caller could do.
func (b *Bootstrapper) cleanup(path string) {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			b.log.Warnw("partial database cleanup failed", "path", p, "err", err)
		}
	}
}
