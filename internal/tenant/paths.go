// internal/tenant/paths.go
//
// Deterministic tenant-ID → file-path mapping.
//
// Context
// -------
// Every lookup of a tenant's database file goes through Paths so the layout
// is decided in exactly one place and is stable across process restarts.
// Files are fanned out into bucket directories (id modulo 10000, zero
// padded) so no single directory accumulates tens of thousands of entries.
//
// Paths performs no I/O; existence checks and directory creation belong to
// the bootstrapper and the service.
package tenant

import (
	"fmt"
	"path/filepath"
)

// Paths derives filesystem locations from a tenant ID.  The zero value is
// invalid; construct with NewPaths.
type Paths struct {
	root string
}

// NewPaths returns a resolver rooted at dataDir.
func NewPaths(dataDir string) Paths {
	return Paths{root: dataDir}
}

// DB returns the primary database file path for a tenant.
func (p Paths) DB(tenantID uint64) string {
	return filepath.Join(p.root, "tenants", p.bucket(tenantID),
		fmt.Sprintf("webbloc_%d.db", tenantID))
}

// WAL and SHM return the side-file paths SQLite creates next to the primary
// file while WAL mode is active.
func (p Paths) WAL(tenantID uint64) string { return p.DB(tenantID) + "-wal" }
func (p Paths) SHM(tenantID uint64) string { return p.DB(tenantID) + "-shm" }

// BackupDir returns the directory backups for a tenant are written into.
func (p Paths) BackupDir(tenantID uint64) string {
	return filepath.Join(p.root, "backups", p.bucket(tenantID),
		fmt.Sprintf("%d", tenantID))
}

func (p Paths) bucket(tenantID uint64) string {
	return fmt.Sprintf("%04d", tenantID%10000)
}
