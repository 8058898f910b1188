// internal/webbloc/model.go
//
// Row models for the two tables inside every tenant database.
package webbloc

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Statuses a content item moves through.
const (
	StatusActive  = "active"
	StatusPending = "pending"
	StatusHidden  = "hidden"
)

// JSONMap is a JSON object stored in a TEXT column.
type JSONMap map[string]any

func (m *JSONMap) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("webbloc: cannot scan %T into JSONMap", src)
	}
}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

// WebBloc mirrors one row in `web_blocs`: a typed, page-scoped record with
// an optional parent for threading.
type WebBloc struct {
	ID        uint64    `db:"id"         json:"id"`
	Type      string    `db:"type"       json:"type"`
	UserID    *uint64   `db:"user_id"    json:"user_id,omitempty"`
	PageURL   string    `db:"page_url"   json:"page_url"`
	Data      JSONMap   `db:"data"       json:"data"`
	Metadata  JSONMap   `db:"metadata"   json:"metadata,omitempty"`
	Status    string    `db:"status"     json:"status"`
	ParentID  *uint64   `db:"parent_id"  json:"parent_id,omitempty"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// User mirrors one row in `users`.  The password hash never serialises out
// of the API.
type User struct {
	ID           uint64     `db:"id"            json:"id"`
	Name         string     `db:"name"          json:"name"`
	Email        string     `db:"email"         json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	VerifiedAt   *time.Time `db:"verified_at"   json:"verified_at,omitempty"`
	Metadata     JSONMap    `db:"metadata"      json:"metadata,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
}
