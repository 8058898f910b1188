// internal/website/repository.go
//
// Websites-table query helpers.
//
// Workflow
// --------
//  1. Callers supply a *sqlx.DB that is already connected to the platform
//     database.
//  2. Each helper executes exactly one parameterised statement.
//  3. Errors are returned verbatim so the caller can wrap or log them using
//     the project logger.
package website

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no website row matches the lookup.
var ErrNotFound = errors.New("website not found")

const schemaDDL = `
CREATE TABLE IF NOT EXISTS websites (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    domain      TEXT    NOT NULL UNIQUE,
    name        TEXT    NOT NULL DEFAULT '',
    status      TEXT    NOT NULL DEFAULT 'pending',
    db_path     TEXT    NOT NULL DEFAULT '',
    db_exists   INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_websites_status ON websites (status);
`

// EnsureSchema creates the websites table when absent.  Called once during
// bootstrap, before any query helper.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schemaDDL)
	return err
}

// ByID fetches a single website row.
func ByID(ctx context.Context, db *sqlx.DB, id uint64) (*Record, error) {
	const q = `
        SELECT id, domain, name, status, db_path, db_exists,
               created_at, updated_at
        FROM   websites
        WHERE  id = ?
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ByDomain fetches a single website row by its registered domain.
func ByDomain(ctx context.Context, db *sqlx.DB, domain string) (*Record, error) {
	const q = `
        SELECT id, domain, name, status, db_path, db_exists,
               created_at, updated_at
        FROM   websites
        WHERE  domain = ?
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, domain); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// AllActive returns every website in active status.  Intended for admin
// dashboards or batch operations, not the request path.
func AllActive(ctx context.Context, db *sqlx.DB) ([]Record, error) {
	const q = `
        SELECT id, domain, name, status, db_path, db_exists,
               created_at, updated_at
        FROM   websites
        WHERE  status = ?`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q, StatusActive); err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert persists a new website and returns its assigned ID.
func Insert(ctx context.Context, db *sqlx.DB, domain, name, status string) (uint64, error) {
	const q = `INSERT INTO websites (domain, name, status) VALUES (?, ?, ?)`
	res, err := db.ExecContext(ctx, q, domain, name, status)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// SetStatus moves a website to a new lifecycle status.
func SetStatus(ctx context.Context, db *sqlx.DB, id uint64, status string) error {
	const q = `UPDATE websites
                  SET status = ?, updated_at = CURRENT_TIMESTAMP
                WHERE id = ?`
	_, err := db.ExecContext(ctx, q, status, id)
	return err
}

// MarkDatabase records the provisioned database path and existence flag.
func MarkDatabase(ctx context.Context, db *sqlx.DB, id uint64, path string, exists bool) error {
	const q = `UPDATE websites
                  SET db_path = ?, db_exists = ?, updated_at = CURRENT_TIMESTAMP
                WHERE id = ?`
	_, err := db.ExecContext(ctx, q, path, exists, id)
	return err
}
