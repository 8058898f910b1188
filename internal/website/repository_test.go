// internal/website/repository_test.go
//
// Query helpers over sqlmock.
package website

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newTestDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlite"), mock
}

func TestByID(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectQuery(`FROM\s+websites`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "domain", "name", "status", "db_path", "db_exists"}).
			AddRow(int64(3), "example.com", "Example", "active", "/data/3.db", true))

	rec, err := ByID(context.Background(), db, 3)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if rec.Domain != "example.com" || !rec.Active() {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestByIDNotFound(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectQuery(`FROM\s+websites`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := ByID(context.Background(), db, 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestByDomain(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectQuery(`FROM\s+websites`).
		WithArgs("shop.example.com").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "domain", "name", "status", "db_path", "db_exists"}).
			AddRow(int64(5), "shop.example.com", "Shop", "pending", "", false))

	rec, err := ByDomain(context.Background(), db, "shop.example.com")
	if err != nil {
		t.Fatalf("ByDomain: %v", err)
	}
	if rec.ID != 5 || rec.Active() {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestInsertReturnsID(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectExec(`INSERT INTO websites`).
		WithArgs("new.example.com", "New", StatusPending).
		WillReturnResult(sqlmock.NewResult(12, 1))

	id, err := Insert(context.Background(), db, "new.example.com", "New", StatusPending)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id != 12 {
		t.Fatalf("id = %d, want 12", id)
	}
}

func TestSetStatus(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectExec(`UPDATE websites`).
		WithArgs(StatusSuspended, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := SetStatus(context.Background(), db, 4, StatusSuspended); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestMarkDatabase(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectExec(`UPDATE websites`).
		WithArgs("/data/tenants/0004/webbloc_4.db", true, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := MarkDatabase(context.Background(), db, 4, "/data/tenants/0004/webbloc_4.db", true)
	if err != nil {
		t.Fatalf("MarkDatabase: %v", err)
	}
}
