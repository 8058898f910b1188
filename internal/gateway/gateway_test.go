// internal/gateway/gateway_test.go
//
// End-to-end Authorize pipeline over a sqlmock-backed key store and the
// in-memory rate limiter.  The key property under test is ordering: policy
// rejections must never consume rate-limit quota.
package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/webbloc/internal/apikey"
	"github.com/yanizio/webbloc/internal/ratelimit"
	"github.com/yanizio/webbloc/internal/signature"
)

// keyFixture describes the single key row the mock store serves.
type keyFixture struct {
	permissions    string
	allowedTypes   string
	allowedDomains string
	allowedIPs     string
	rateMinute     int
	requireSig     bool
	sigAlgo        string
}

const (
	fixtureToken  = "wbk_pub-1.sekret"
	fixtureSecret = "sekret"
)

func newTestGateway(t *testing.T, fix keyFixture) *Gateway {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if fix.permissions == "" {
		fix.permissions = "[]"
	}
	if fix.allowedTypes == "" {
		fix.allowedTypes = "[]"
	}
	if fix.allowedDomains == "" {
		fix.allowedDomains = "[]"
	}
	if fix.allowedIPs == "" {
		fix.allowedIPs = "[]"
	}
	if fix.rateMinute == 0 {
		fix.rateMinute = 1000
	}

	mock.ExpectQuery(`FROM\s+api_keys`).
		WithArgs("pub-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "website_id", "public_id", "secret_hash", "status",
			"permissions", "allowed_types", "allowed_domains", "allowed_ips",
			"rate_minute", "rate_hour", "rate_day",
			"require_signature", "signature_algo",
		}).AddRow(
			int64(10), int64(7), "pub-1", apikey.HashSecret(fixtureSecret), "active",
			fix.permissions, fix.allowedTypes, fix.allowedDomains, fix.allowedIPs,
			fix.rateMinute, 100000, 1000000,
			fix.requireSig, fix.sigAlgo,
		))
	mock.ExpectQuery(`FROM\s+websites`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "domain", "name", "status", "db_path", "db_exists"}).
			AddRow(int64(7), "example.com", "Example", "active", "/data/7.db", true))

	keys := apikey.NewStore(sqlx.NewDb(db, "sqlite"), 64, time.Minute)
	store := ratelimit.NewMemoryStore()
	t.Cleanup(store.Close)
	return New(keys, ratelimit.New(store), nil, zap.NewNop().Sugar())
}

func okRequest() Request {
	return Request{
		RawKey:     fixtureToken,
		Domain:     "example.com",
		IP:         "203.0.113.5",
		Permission: "webblocs.read",
		BlocType:   "comment",
	}
}

func TestAuthorizeGrants(t *testing.T) {
	g := newTestGateway(t, keyFixture{})

	kc, err := g.Authorize(context.Background(), okRequest())
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if kc.TenantID() != 7 {
		t.Fatalf("TenantID = %d, want 7", kc.TenantID())
	}
}

func TestAuthorizeUnknownKey(t *testing.T) {
	g := newTestGateway(t, keyFixture{})

	req := okRequest()
	req.RawKey = "wbk_pub-1.wrong-secret"
	if _, err := g.Authorize(context.Background(), req); !errors.Is(err, apikey.ErrKeyNotFound) {
		t.Fatalf("err = %v, want ErrKeyNotFound", err)
	}
}

func TestAuthorizeDomainDenied(t *testing.T) {
	g := newTestGateway(t, keyFixture{allowedDomains: `["*.example.com"]`})

	req := okRequest()
	req.Domain = "evil.com"
	if _, err := g.Authorize(context.Background(), req); !errors.Is(err, apikey.ErrDomainNotAllowed) {
		t.Fatalf("err = %v, want ErrDomainNotAllowed", err)
	}

	req.Domain = "widgets.example.com"
	if _, err := g.Authorize(context.Background(), req); err != nil {
		t.Fatalf("subdomain should pass: %v", err)
	}
}

func TestAuthorizeIPDenied(t *testing.T) {
	g := newTestGateway(t, keyFixture{allowedIPs: `["10.0.0.0/24"]`})

	req := okRequest()
	req.IP = "203.0.113.5"
	if _, err := g.Authorize(context.Background(), req); !errors.Is(err, apikey.ErrIPNotAllowed) {
		t.Fatalf("err = %v, want ErrIPNotAllowed", err)
	}
}

func TestAuthorizePermissionDenied(t *testing.T) {
	g := newTestGateway(t, keyFixture{permissions: `["webblocs.read"]`})

	req := okRequest()
	req.Permission = "webblocs.delete"
	if _, err := g.Authorize(context.Background(), req); !errors.Is(err, apikey.ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestAuthorizeTypeDenied(t *testing.T) {
	g := newTestGateway(t, keyFixture{allowedTypes: `["comment"]`})

	req := okRequest()
	req.BlocType = "reaction"
	if _, err := g.Authorize(context.Background(), req); !errors.Is(err, apikey.ErrTypeNotAllowed) {
		t.Fatalf("err = %v, want ErrTypeNotAllowed", err)
	}

	// No type in play (e.g. the stats endpoint) skips the check entirely.
	req.BlocType = ""
	if _, err := g.Authorize(context.Background(), req); err != nil {
		t.Fatalf("typeless request should pass: %v", err)
	}
}

func TestAuthorizeSignature(t *testing.T) {
	g := newTestGateway(t, keyFixture{requireSig: true, sigAlgo: apikey.AlgoHMACSHA256})

	payload := []byte(`{"data":{"text":"hi"}}`)
	req := okRequest()
	req.Payload = payload

	// Missing signature is a rejection.
	if _, err := g.Authorize(context.Background(), req); !errors.Is(err, apikey.ErrBadSignature) {
		t.Fatalf("missing signature: err = %v, want ErrBadSignature", err)
	}

	// The HMAC secret is the full raw token.
	sig, err := signature.Sign(payload, []byte(fixtureToken), apikey.AlgoHMACSHA256)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	req.Signature = sig
	if _, err := g.Authorize(context.Background(), req); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestAuthorizeRateLimit(t *testing.T) {
	g := newTestGateway(t, keyFixture{rateMinute: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := g.Authorize(ctx, okRequest()); err != nil {
			t.Fatalf("request %d rejected: %v", i+1, err)
		}
	}
	_, err := g.Authorize(ctx, okRequest())
	var le *ratelimit.LimitError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want *ratelimit.LimitError", err)
	}
	if le.Period != ratelimit.PerMinute {
		t.Fatalf("limited period = %s, want minute", le.Period)
	}
}

func TestPolicyRejectionDoesNotConsumeQuota(t *testing.T) {
	g := newTestGateway(t, keyFixture{
		allowedDomains: `["example.com"]`,
		rateMinute:     2,
	})
	ctx := context.Background()

	// A burst of policy-denied requests must not touch the counters.
	bad := okRequest()
	bad.Domain = "evil.com"
	for i := 0; i < 10; i++ {
		if _, err := g.Authorize(ctx, bad); !errors.Is(err, apikey.ErrDomainNotAllowed) {
			t.Fatalf("bad request %d: err = %v", i+1, err)
		}
	}

	// The full quota is still available.
	for i := 0; i < 2; i++ {
		if _, err := g.Authorize(ctx, okRequest()); err != nil {
			t.Fatalf("good request %d rejected: %v", i+1, err)
		}
	}
}

func TestReason(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{apikey.ErrKeyNotFound, "key_not_found"},
		{apikey.ErrKeyRevoked, "key_revoked"},
		{apikey.ErrTenantInactive, "tenant_inactive"},
		{apikey.ErrDomainNotAllowed, "domain_not_allowed"},
		{apikey.ErrBadSignature, "bad_signature"},
		{&ratelimit.LimitError{Period: ratelimit.PerMinute}, "rate_limit_exceeded"},
		{errors.New("disk on fire"), "error"},
	}
	for _, c := range cases {
		if got := Reason(c.err); got != c.want {
			t.Errorf("Reason(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 30, 0, time.UTC)
	le := &ratelimit.LimitError{Period: ratelimit.PerMinute, Limit: 1, Count: 1}
	if got := RetryAfter(le, now); got != 30*time.Second {
		t.Fatalf("RetryAfter = %v, want 30s", got)
	}
	if got := RetryAfter(apikey.ErrKeyRevoked, now); got != 0 {
		t.Fatalf("RetryAfter for non-limit error = %v, want 0", got)
	}
}
