// internal/apikey/repository.go
//
// api_keys table query helpers (platform control-plane database).
package apikey

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS api_keys (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    website_id        INTEGER NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
    public_id         TEXT    NOT NULL UNIQUE,
    secret_hash       TEXT    NOT NULL,
    status            TEXT    NOT NULL DEFAULT 'active',
    permissions       TEXT    NOT NULL DEFAULT '[]',
    allowed_types     TEXT    NOT NULL DEFAULT '[]',
    allowed_domains   TEXT    NOT NULL DEFAULT '[]',
    allowed_ips       TEXT    NOT NULL DEFAULT '[]',
    rate_minute       INTEGER NOT NULL DEFAULT 60,
    rate_hour         INTEGER NOT NULL DEFAULT 1000,
    rate_day          INTEGER NOT NULL DEFAULT 10000,
    require_signature INTEGER NOT NULL DEFAULT 0,
    signature_algo    TEXT    NOT NULL DEFAULT '',
    total_requests    INTEGER NOT NULL DEFAULT 0,
    success_requests  INTEGER NOT NULL DEFAULT 0,
    failed_requests   INTEGER NOT NULL DEFAULT 0,
    day_requests      INTEGER NOT NULL DEFAULT 0,
    day_date          TEXT    NOT NULL DEFAULT '',
    month_requests    INTEGER NOT NULL DEFAULT 0,
    month_date        TEXT    NOT NULL DEFAULT '',
    last_used_at      TIMESTAMP,
    expires_at        TIMESTAMP,
    created_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_api_keys_website_id ON api_keys (website_id);
`

const recordColumns = `
        id, website_id, public_id, secret_hash, status,
        permissions, allowed_types, allowed_domains, allowed_ips,
        rate_minute, rate_hour, rate_day,
        require_signature, signature_algo,
        total_requests, success_requests, failed_requests,
        day_requests, day_date, month_requests, month_date, last_used_at,
        expires_at, created_at, updated_at`

// EnsureSchema creates the api_keys table when absent.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schemaDDL)
	return err
}

// ByPublicID fetches a key row by its public identifier.  ErrKeyNotFound
// when no row matches.
func ByPublicID(ctx context.Context, db *sqlx.DB, publicID string) (*Record, error) {
	q := `SELECT` + recordColumns + `
        FROM   api_keys
        WHERE  public_id = ?
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, publicID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ByWebsite lists every key owned by a website, newest first.
func ByWebsite(ctx context.Context, db *sqlx.DB, websiteID uint64) ([]Record, error) {
	q := `SELECT` + recordColumns + `
        FROM   api_keys
        WHERE  website_id = ?
        ORDER  BY created_at DESC`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q, websiteID); err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert persists a freshly issued record and returns its assigned ID.
func Insert(ctx context.Context, db *sqlx.DB, rec *Record) (uint64, error) {
	const q = `
        INSERT INTO api_keys (
            website_id, public_id, secret_hash, status,
            permissions, allowed_types, allowed_domains, allowed_ips,
            rate_minute, rate_hour, rate_day,
            require_signature, signature_algo, expires_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := db.ExecContext(ctx, q,
		rec.WebsiteID, rec.PublicID, rec.SecretHash, rec.Status,
		rec.Permissions, rec.AllowedTypes, rec.AllowedDomains, rec.AllowedIPs,
		rec.RateMinute, rec.RateHour, rec.RateDay,
		rec.RequireSignature, rec.SignatureAlgo, rec.ExpiresAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	rec.ID = uint64(id)
	return rec.ID, nil
}

// SetStatus moves a key to a new status (suspend, reactivate, revoke).
func SetStatus(ctx context.Context, db *sqlx.DB, id uint64, status string) error {
	const q = `UPDATE api_keys
                  SET status = ?, updated_at = CURRENT_TIMESTAMP
                WHERE id = ?`
	_, err := db.ExecContext(ctx, q, status, id)
	return err
}
