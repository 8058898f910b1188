// internal/website/model.go
//
// `websites` table row model (platform control-plane database).
//
// Context
// -------
// The Record struct mirrors one row in the persistent **websites** table,
// capturing the tenant's domain, lifecycle status, and the derived location
// of its isolated database file.  It is used by the API key store to gate
// requests on tenant status and by admin tooling that lists or edits
// websites.
//
// Schema reference (2025-08)
//
//	CREATE TABLE websites (
//	    id          INTEGER PRIMARY KEY AUTOINCREMENT,
//	    domain      TEXT    NOT NULL UNIQUE,
//	    name        TEXT    NOT NULL DEFAULT '',
//	    status      TEXT    NOT NULL DEFAULT 'pending',
//	    db_path     TEXT    NOT NULL DEFAULT '',
//	    db_exists   INTEGER NOT NULL DEFAULT 0,
//	    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
//	);
//
// Notes
// -----
// • Status transitions are driven by admin actions and the verification
//   expiry job, both outside the core; the core only reads Status.
// • This struct contains no behaviour — pure data model for sqlx scans.
package website

import "time"

// Lifecycle statuses for a website.
const (
	StatusPending             = "pending"
	StatusActive              = "active"
	StatusSuspended           = "suspended"
	StatusVerificationExpired = "verification_expired"
)

// Record mirrors one row in the `websites` table.
type Record struct {
	ID        uint64    `db:"id"`
	Domain    string    `db:"domain"`
	Name      string    `db:"name"`
	Status    string    `db:"status"`
	DBPath    string    `db:"db_path"`
	DBExists  bool      `db:"db_exists"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Active reports whether the website may serve gated requests.
func (r *Record) Active() bool { return r.Status == StatusActive }
