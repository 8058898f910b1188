// Package database centralises sqlx connection helpers for the embedded
// SQLite driver.  Every database in the system — the platform control-plane
// file and each tenant file — is opened through this package so that pool
// sizing and pragma application stay in one place.
//
// Public entry points:
//
//	Open(ctx, path)                – quick helper with conservative pool sizes.
//	OpenWithOptions(ctx, path, o)  – fine-grained control, used by the tenant
//	                                 registry to keep per-tenant resource usage
//	                                 small.
//
// Both helpers Ping the database before returning so callers can fail fast
// during bootstrap.  Callers should Close() the returned *sqlx.DB when no
// longer needed.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go driver, registers as "sqlite"
)

// Options tunes the connection pool and SQLite behaviour for one database.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
	// CacheKiB is handed to PRAGMA cache_size as a negative value, which
	// SQLite interprets as KiB rather than pages.
	CacheKiB int
}

// DefaultOptions suit a small, long-lived per-tenant pool.  SQLite allows a
// single writer per file, so a large pool buys nothing; a handful of
// connections covers concurrent readers under WAL.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		BusyTimeout:     5 * time.Second,
		CacheKiB:        8192,
	}
}

// Open returns a *sqlx.DB with the default options.  Suitable for the
// platform database or for test setups.
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, path, DefaultOptions())
}

// OpenWithOptions opens path, tunes the pool, and verifies liveness.  The
// session pragmas ride in the DSN so the driver applies them to every
// connection the pool opens, not just the first; foreign-key enforcement in
// particular is connection-scoped in SQLite.
func OpenWithOptions(ctx context.Context, path string, opts Options) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", DSN(path, opts))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return db, nil
}

// DSN builds the connection string: WAL journaling, relaxed fsync,
// foreign-key enforcement, a busy timeout, and a larger page cache.  WAL
// lets readers proceed while one writer holds the file; NORMAL synchronous
// is the usual pairing with WAL (durable across app crash, not across power
// loss).
func DSN(path string, opts Options) string {
	return fmt.Sprintf("file:%s"+
		"?_pragma=journal_mode(WAL)"+
		"&_pragma=synchronous(NORMAL)"+
		"&_pragma=foreign_keys(1)"+
		"&_pragma=busy_timeout(%d)"+
		"&_pragma=cache_size(-%d)",
		path, opts.BusyTimeout.Milliseconds(), opts.CacheKiB)
}
