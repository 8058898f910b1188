// internal/tenant/schema_test.go
//
// Provisioning against real files in a temp directory: the happy path
// yields a usable schema with enforced foreign keys, and failures leave
// nothing behind.
package tenant

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/yanizio/webbloc/internal/database"
)

func testBootstrapper() *Bootstrapper {
	return NewBootstrapper(database.DefaultOptions(), zap.NewNop().Sugar())
}

func TestProvisionCreatesUsableSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tenants", "0001", "webbloc_1.db")

	if err := testBootstrapper().Provision(ctx, path); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file missing: %v", err)
	}

	db, err := database.Open(ctx, path)
	if err != nil {
		t.Fatalf("open provisioned db: %v", err)
	}
	defer db.Close()

	res, err := db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash) VALUES ('a', 'a@x.com', 'h')`)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	uid, _ := res.LastInsertId()

	if _, err := db.ExecContext(ctx,
		`INSERT INTO web_blocs (type, user_id, page_url) VALUES ('comment', ?, '/p')`,
		uid); err != nil {
		t.Fatalf("insert web_bloc: %v", err)
	}
}

func TestProvisionEnforcesForeignKeys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "webbloc_2.db")

	if err := testBootstrapper().Provision(ctx, path); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	db, err := database.Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	_, err = db.ExecContext(ctx,
		`INSERT INTO web_blocs (type, page_url, parent_id) VALUES ('comment', '/p', 999)`)
	if err == nil {
		t.Fatal("insert with missing parent should fail the foreign key")
	}
}

func TestProvisionIsIdempotentOnSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "webbloc_3.db")
	b := testBootstrapper()

	if err := b.Provision(ctx, path); err != nil {
		t.Fatalf("first Provision: %v", err)
	}
	// CREATE IF NOT EXISTS makes a second pass over an existing file safe.
	if err := b.Provision(ctx, path); err != nil {
		t.Fatalf("second Provision: %v", err)
	}
}

func TestProvisionFailureLeavesNoFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	// A regular file where the parent directory should be makes MkdirAll
	// fail deterministically.
	blocker := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	path := filepath.Join(blocker, "0001", "webbloc_4.db")

	err := testBootstrapper().Provision(ctx, path)
	if !errors.Is(err, ErrProvisioningFailed) {
		t.Fatalf("err = %v, want ErrProvisioningFailed", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("partial file left behind: %v", statErr)
	}
}
