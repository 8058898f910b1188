// internal/webbloc/users_test.go
package webbloc

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	h := testHandle(t)
	ctx := context.Background()

	u, err := RegisterUser(ctx, h, "Ada", "ada@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if u.ID == 0 || u.Email != "ada@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.PasswordHash == "hunter2hunter2" {
		t.Fatal("password stored in plaintext")
	}

	got, err := Authenticate(ctx, h, "ada@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("authenticated as user %d, want %d", got.ID, u.ID)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	h := testHandle(t)
	ctx := context.Background()

	if _, err := RegisterUser(ctx, h, "Ada", "ada@example.com", "correct-horse"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	// Wrong password and unknown email produce the same error.
	if _, err := Authenticate(ctx, h, "ada@example.com", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("wrong password: err = %v, want ErrBadCredentials", err)
	}
	if _, err := Authenticate(ctx, h, "ghost@example.com", "whatever"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("unknown email: err = %v, want ErrBadCredentials", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := testHandle(t)
	ctx := context.Background()

	if _, err := RegisterUser(ctx, h, "Ada", "ada@example.com", "pw-one-pw-one"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	_, err := RegisterUser(ctx, h, "Impostor", "ada@example.com", "pw-two-pw-two")
	if err == nil || !strings.Contains(err.Error(), "UNIQUE") {
		t.Fatalf("duplicate email err = %v, want UNIQUE constraint violation", err)
	}
}

func TestUserByEmailNotFound(t *testing.T) {
	h := testHandle(t)
	if _, err := UserByEmail(context.Background(), h, "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}
