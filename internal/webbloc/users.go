// internal/webbloc/users.go
//
// Tenant-local user helpers.  Passwords are stored as bcrypt hashes; the
// plaintext never leaves the register/authenticate call frames.
package webbloc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/yanizio/webbloc/internal/tenant"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrBadCredentials is returned when the password does not match.
	ErrBadCredentials = errors.New("invalid credentials")
)

// RegisterUser creates a tenant-local user and returns it.  Email
// uniqueness is enforced by the schema.
func RegisterUser(ctx context.Context, h *tenant.Handle, name, email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	const q = `INSERT INTO users (name, email, password_hash) VALUES (?, ?, ?)`
	var id int64
	err = h.Write(ctx, func(db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, q, name, email, string(hash))
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	return UserByID(ctx, h, uint64(id))
}

// UserByID fetches one user row.
func UserByID(ctx context.Context, h *tenant.Handle, id uint64) (*User, error) {
	const q = `
        SELECT id, name, email, password_hash, verified_at, metadata,
               created_at, updated_at
        FROM   users
        WHERE  id = ?
        LIMIT  1`
	var u User
	err := h.Read(ctx, func(db *sqlx.DB) error {
		return db.GetContext(ctx, &u, q, id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserByEmail fetches one user row by unique email.
func UserByEmail(ctx context.Context, h *tenant.Handle, email string) (*User, error) {
	const q = `
        SELECT id, name, email, password_hash, verified_at, metadata,
               created_at, updated_at
        FROM   users
        WHERE  email = ?
        LIMIT  1`
	var u User
	err := h.Read(ctx, func(db *sqlx.DB) error {
		return db.GetContext(ctx, &u, q, email)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Authenticate verifies email + password.  Unknown email and wrong password
// are both ErrBadCredentials so callers cannot probe for registered
// addresses.
func Authenticate(ctx context.Context, h *tenant.Handle, email, password string) (*User, error) {
	u, err := UserByEmail(ctx, h, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}
