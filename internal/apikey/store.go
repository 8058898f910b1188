// internal/apikey/store.go
//
// Read path for key validation, with a short-TTL result cache.
//
// Context
// -------
// Validate is on every gated request, so results — positive and negative —
// are cached by raw token for a short TTL.  The trade-off is documented and
// deliberate: a revoked key may keep working for up to the TTL, which must
// stay small (minutes).  Secrets are compared as SHA-256 digests in
// constant time; the plaintext secret is never stored or logged.
package apikey

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/webbloc/internal/cache"
	"github.com/yanizio/webbloc/internal/website"
)

// DefaultValidationTTL bounds revocation staleness on the hot path.
const DefaultValidationTTL = 2 * time.Minute

// Context is the authorization-relevant view of a validated key, handed to
// the gateway and, on success, to the content layer.
type Context struct {
	Key     *Record
	Website *website.Record
}

// TenantID is the owning website's ID, which is also the tenant database
// identity.
func (c *Context) TenantID() uint64 { return c.Website.ID }

// Store validates raw tokens against the platform database.
type Store struct {
	db    *sqlx.DB
	cache *cache.TTL
	ttl   time.Duration
	now   func() time.Time
}

// NewStore builds a Store with the given validation-cache TTL; ttl <= 0
// falls back to DefaultValidationTTL.
func NewStore(db *sqlx.DB, cacheSize int, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultValidationTTL
	}
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	return &Store{
		db:    db,
		cache: cache.New(cacheSize),
		ttl:   ttl,
		now:   time.Now,
	}
}

type cachedResult struct {
	ctx *Context
	err error
}

// Validate resolves rawToken to a key context or a taxonomy error.  Denials
// are cached alongside grants so unknown-key floods do not reach the
// database on every request.
func (s *Store) Validate(ctx context.Context, rawToken string) (*Context, error) {
	if v, ok := s.cache.Get(rawToken); ok {
		res := v.(cachedResult)
		return res.ctx, res.err
	}

	kc, err := s.validate(ctx, rawToken)
	switch err {
	case nil, ErrKeyNotFound, ErrKeyExpired, ErrKeyRevoked, ErrKeyInactive, ErrTenantInactive:
		s.cache.Set(rawToken, cachedResult{ctx: kc, err: err}, s.ttl)
	default:
		// Infrastructure errors (DB down) are not cached; the next request
		// retries the lookup.
	}
	return kc, err
}

// Forget drops the cached result for a raw token, used after revocation so
// operator actions take effect without waiting out the TTL.
func (s *Store) Forget(rawToken string) { s.cache.Delete(rawToken) }

func (s *Store) validate(ctx context.Context, rawToken string) (*Context, error) {
	publicID, secret, err := ParseToken(rawToken)
	if err != nil {
		return nil, err
	}

	rec, err := ByPublicID(ctx, s.db, publicID)
	if err != nil {
		if err == ErrKeyNotFound {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("apikey lookup: %w", err)
	}

	// Constant-time digest comparison; both sides are fixed-length hex.
	if subtle.ConstantTimeCompare(
		[]byte(HashSecret(secret)), []byte(rec.SecretHash)) != 1 {
		return nil, ErrKeyNotFound
	}

	if err := rec.Usable(s.now()); err != nil {
		return nil, err
	}

	site, err := website.ByID(ctx, s.db, rec.WebsiteID)
	if err != nil {
		if err == website.ErrNotFound {
			return nil, ErrTenantInactive
		}
		return nil, fmt.Errorf("apikey website lookup: %w", err)
	}
	if !site.Active() {
		return nil, ErrTenantInactive
	}

	return &Context{Key: rec, Website: site}, nil
}
