// internal/webbloc/repository.go
//
// Content-item helpers over a tenant handle.
//
// Context
// -------
// These functions accept a *tenant.Handle and run under its read or write
// lock, so mutating operations against one tenant are serialised while
// reads proceed concurrently.  Parent/child integrity is enforced by the
// schema's self-referential foreign key: inserting a child whose parent
// does not exist fails at the database, and the error is surfaced
// unchanged.
package webbloc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/webbloc/internal/tenant"
)

// ErrNotFound is returned when no content item matches the lookup.
var ErrNotFound = errors.New("webbloc not found")

// Create inserts a content item and fills in its assigned ID.
func Create(ctx context.Context, h *tenant.Handle, b *WebBloc) error {
	if b.Status == "" {
		b.Status = StatusActive
	}
	const q = `
        INSERT INTO web_blocs
            (type, user_id, page_url, data, metadata, status, parent_id, sort_order)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	return h.Write(ctx, func(db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, q,
			b.Type, b.UserID, b.PageURL, b.Data, b.Metadata,
			b.Status, b.ParentID, b.SortOrder)
		if err != nil {
			return fmt.Errorf("create webbloc: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		b.ID = uint64(id)
		return nil
	})
}

// ByID fetches one content item.
func ByID(ctx context.Context, h *tenant.Handle, id uint64) (*WebBloc, error) {
	const q = `
        SELECT id, type, user_id, page_url, data, metadata, status,
               parent_id, sort_order, created_at, updated_at
        FROM   web_blocs
        WHERE  id = ?
        LIMIT  1`
	var b WebBloc
	err := h.Read(ctx, func(db *sqlx.DB) error {
		return db.GetContext(ctx, &b, q, id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListByPage returns active top-level items of one type on one page, newest
// first.  typ may be empty to list all types.
func ListByPage(ctx context.Context, h *tenant.Handle, pageURL, typ string, limit, offset int) ([]WebBloc, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `
        SELECT id, type, user_id, page_url, data, metadata, status,
               parent_id, sort_order, created_at, updated_at
        FROM   web_blocs
        WHERE  page_url = ?
          AND  status   = ?
          AND  parent_id IS NULL`
	args := []any{pageURL, StatusActive}
	if typ != "" {
		q += ` AND type = ?`
		args = append(args, typ)
	}
	q += ` ORDER BY sort_order, created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var rows []WebBloc
	err := h.Read(ctx, func(db *sqlx.DB) error {
		return db.SelectContext(ctx, &rows, q, args...)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Children returns the direct replies of one item, oldest first.
func Children(ctx context.Context, h *tenant.Handle, parentID uint64) ([]WebBloc, error) {
	const q = `
        SELECT id, type, user_id, page_url, data, metadata, status,
               parent_id, sort_order, created_at, updated_at
        FROM   web_blocs
        WHERE  parent_id = ?
          AND  status    = ?
        ORDER  BY created_at ASC`
	var rows []WebBloc
	err := h.Read(ctx, func(db *sqlx.DB) error {
		return db.SelectContext(ctx, &rows, q, parentID, StatusActive)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SetStatus moves a content item to a new status (moderation).
func SetStatus(ctx context.Context, h *tenant.Handle, id uint64, status string) error {
	const q = `UPDATE web_blocs
                  SET status = ?, updated_at = CURRENT_TIMESTAMP
                WHERE id = ?`
	return h.Write(ctx, func(db *sqlx.DB) error {
		_, err := db.ExecContext(ctx, q, status, id)
		return err
	})
}

// Delete removes a content item.  Children cascade at the schema level.
func Delete(ctx context.Context, h *tenant.Handle, id uint64) error {
	const q = `DELETE FROM web_blocs WHERE id = ?`
	return h.Write(ctx, func(db *sqlx.DB) error {
		_, err := db.ExecContext(ctx, q, id)
		return err
	})
}
