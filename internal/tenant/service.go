// internal/tenant/service.go
//
// Public facade over Paths, Bootstrapper, and Registry.
//
// Context
// -------
// The dashboard, the admin CLI, and the content layer consume tenant
// databases only through Service: create, acquire, delete, backup, restore,
// vacuum, stats.  Every operation takes the tenant ID as an explicit
// parameter — there is no ambient "current tenant" anywhere in the process,
// which is what keeps cross-tenant contamination structurally impossible.
//
// Notes
// -----
//   - Delete is idempotent: removing a tenant that was never provisioned is
//     success, and failing to remove a WAL side file is logged but does not
//     fail the deletion (the primary file is the correctness-defining
//     piece).
//   - Backup and restore are plain byte copies taken under the tenant's
//     exclusive lock, after a WAL checkpoint, so the copy is a consistent
//     snapshot.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Stats summarises one tenant database for dashboards.
type Stats struct {
	TenantID  uint64    `json:"tenant_id"`
	SizeBytes int64     `json:"size_bytes"`
	UserCount int64     `json:"user_count"`
	WebBlocs  int64     `json:"web_blocs"`
	LastModAt time.Time `json:"last_modified_at"`
}

// Service is the tenant database lifecycle facade.
type Service struct {
	paths Paths
	boot  *Bootstrapper
	reg   *Registry
	log   *zap.SugaredLogger
}

// NewService wires the facade.  The registry must have been built with the
// same Paths.
func NewService(paths Paths, boot *Bootstrapper, reg *Registry, log *zap.SugaredLogger) *Service {
	return &Service{paths: paths, boot: boot, reg: reg, log: log}
}

// PathFor exposes the deterministic path mapping.  Pure, no I/O.
func (s *Service) PathFor(tenantID uint64) string { return s.paths.DB(tenantID) }

// Exists reports whether the tenant's database file is present.
func (s *Service) Exists(tenantID uint64) bool {
	_, err := os.Stat(s.paths.DB(tenantID))
	return err == nil
}

// Create provisions the tenant database.  With force it replaces an
// existing file (purging any cached handle first); without force an
// existing file is ErrAlreadyExists.
func (s *Service) Create(ctx context.Context, tenantID uint64, force bool) error {
	if s.Exists(tenantID) {
		if !force {
			return ErrAlreadyExists
		}
		if err := s.Delete(ctx, tenantID); err != nil {
			return err
		}
	}
	return s.boot.Provision(ctx, s.paths.DB(tenantID))
}

// Acquire returns the cached (or freshly opened, or freshly provisioned)
// handle for the tenant.
func (s *Service) Acquire(ctx context.Context, tenantID uint64) (*Handle, error) {
	return s.reg.Acquire(ctx, tenantID)
}

// ReportFailure classifies a failed operation on h.  When the handle no
// longer answers a ping the registry entry is dropped so the next Acquire
// reopens; query-logic errors leave the handle in place.  The original
// operation has already failed either way — there is no silent retry across
// a mutation boundary.
func (s *Service) ReportFailure(ctx context.Context, h *Handle, opErr error) {
	if opErr == nil || h == nil {
		return
	}
	if err := h.db.PingContext(ctx); err != nil {
		s.log.Warnw("tenant handle failed health check, evicting",
			"tenant", h.TenantID, "op_err", opErr, "ping_err", err)
		s.reg.Invalidate(h.TenantID)
	}
}

// Delete purges the cached handle, then removes the primary file and the
// WAL/SHM side files.  Absent files are success.
func (s *Service) Delete(ctx context.Context, tenantID uint64) error {
	s.reg.Purge(tenantID)

	primary := s.paths.DB(tenantID)
	if err := os.Remove(primary); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete tenant %d: %w", tenantID, err)
	}
	// Side files are best effort; the primary removal above is what makes
	// the tenant gone.
	for _, p := range []string{s.paths.WAL(tenantID), s.paths.SHM(tenantID)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.log.Warnw("side file removal failed", "tenant", tenantID, "path", p, "err", err)
		}
	}
	s.log.Infow("tenant database deleted", "tenant", tenantID)
	return nil
}

// Backup checkpoints the WAL and copies the primary file into the tenant's
// backup directory under the tenant's exclusive lock.  Returns the backup
// path.
func (s *Service) Backup(ctx context.Context, tenantID uint64) (string, error) {
	if !s.Exists(tenantID) {
		return "", ErrNotFound
	}
	h, err := s.reg.Acquire(ctx, tenantID)
	if err != nil {
		return "", err
	}

	dir := s.paths.BackupDir(tenantID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("backup tenant %d: %w", tenantID, err)
	}
	dst := filepath.Join(dir, fmt.Sprintf("webbloc_%d_%s_%s.db",
		tenantID, time.Now().UTC().Format("20060102T150405"), uuid.NewString()[:8]))

	err = h.Exclusive(ctx, func(db *sqlx.DB) error {
		if _, err := db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
			return fmt.Errorf("wal checkpoint: %w", err)
		}
		return copyFile(s.paths.DB(tenantID), dst)
	})
	if err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("backup tenant %d: %w", tenantID, err)
	}
	s.log.Infow("tenant database backed up", "tenant", tenantID, "path", dst)
	return dst, nil
}

// Restore replaces the tenant database with a backup.  The cached handle is
// purged first so no stale pool can write to the replaced file.
func (s *Service) Restore(ctx context.Context, tenantID uint64, backupPath string) error {
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("restore tenant %d: %w", tenantID, err)
	}
	s.reg.Purge(tenantID)

	primary := s.paths.DB(tenantID)
	if err := os.MkdirAll(filepath.Dir(primary), 0o755); err != nil {
		return fmt.Errorf("restore tenant %d: %w", tenantID, err)
	}
	// Stale side files would be replayed against the restored file.
	for _, p := range []string{s.paths.WAL(tenantID), s.paths.SHM(tenantID)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("restore tenant %d: remove %s: %w", tenantID, p, err)
		}
	}
	if err := copyFile(backupPath, primary); err != nil {
		return fmt.Errorf("restore tenant %d: %w", tenantID, err)
	}
	s.log.Infow("tenant database restored", "tenant", tenantID, "from", backupPath)
	return nil
}

// Vacuum reclaims space under the tenant's exclusive lock.
func (s *Service) Vacuum(ctx context.Context, tenantID uint64) error {
	h, err := s.reg.Acquire(ctx, tenantID)
	if err != nil {
		return err
	}
	err = h.Exclusive(ctx, func(db *sqlx.DB) error {
		_, err := db.ExecContext(ctx, `VACUUM`)
		return err
	})
	if err != nil {
		return fmt.Errorf("vacuum tenant %d: %w", tenantID, err)
	}
	return nil
}

// StatsFor reports file size, row counts, and the primary file's
// last-modified time.
func (s *Service) StatsFor(ctx context.Context, tenantID uint64) (*Stats, error) {
	fi, err := os.Stat(s.paths.DB(tenantID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	h, err := s.reg.Acquire(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	st := &Stats{TenantID: tenantID, SizeBytes: fi.Size(), LastModAt: fi.ModTime()}
	err = h.Read(ctx, func(db *sqlx.DB) error {
		if err := db.GetContext(ctx, &st.UserCount, `SELECT COUNT(*) FROM users`); err != nil {
			return err
		}
		return db.GetContext(ctx, &st.WebBlocs, `SELECT COUNT(*) FROM web_blocs`)
	})
	if err != nil {
		return nil, fmt.Errorf("stats tenant %d: %w", tenantID, err)
	}
	return st, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
