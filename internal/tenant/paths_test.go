// internal/tenant/paths_test.go
package tenant

import (
	"path/filepath"
	"testing"
)

func TestPathsLayout(t *testing.T) {
	p := NewPaths("/data")

	want := filepath.Join("/data", "tenants", "0042", "webbloc_42.db")
	if got := p.DB(42); got != want {
		t.Fatalf("DB(42) = %q, want %q", got, want)
	}
	if got := p.WAL(42); got != want+"-wal" {
		t.Fatalf("WAL(42) = %q", got)
	}
	if got := p.SHM(42); got != want+"-shm" {
		t.Fatalf("SHM(42) = %q", got)
	}
}

func TestPathsBucketing(t *testing.T) {
	p := NewPaths("/data")

	// IDs 10000 apart land in the same bucket directory but distinct files.
	a := p.DB(3)
	b := p.DB(10003)
	if filepath.Dir(a) != filepath.Dir(b) {
		t.Fatalf("bucket mismatch: %q vs %q", a, b)
	}
	if a == b {
		t.Fatal("distinct tenants mapped to the same file")
	}

	if got, want := filepath.Dir(p.DB(12345)), filepath.Join("/data", "tenants", "2345"); got != want {
		t.Fatalf("bucket dir = %q, want %q", got, want)
	}
}

func TestPathsDeterministic(t *testing.T) {
	p := NewPaths("/data")
	if p.DB(7) != p.DB(7) {
		t.Fatal("path mapping is not deterministic")
	}
}

func TestBackupDir(t *testing.T) {
	p := NewPaths("/data")
	want := filepath.Join("/data", "backups", "0007", "7")
	if got := p.BackupDir(7); got != want {
		t.Fatalf("BackupDir(7) = %q, want %q", got, want)
	}
}
