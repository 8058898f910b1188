// internal/gateway/gateway.go
//
// Request authorization pipeline.
//
// Context
// -------
// Every gated request passes through Authorize before it may touch a tenant
// database: key validity → domain → IP → permission → webbloc type →
// signature → rate limits, in that order.  The ordering is deliberate —
// cheap in-memory policy checks run before the rate-limit increment, so a
// request rejected on policy grounds never consumes quota.
//
// Authorize returns the validated key context; the caller hands its tenant
// ID to the tenant service for the actual data operation, then reports the
// outcome via RecordUsage.
package gateway

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/webbloc/internal/apikey"
	"github.com/yanizio/webbloc/internal/metrics"
	"github.com/yanizio/webbloc/internal/policy"
	"github.com/yanizio/webbloc/internal/ratelimit"
	"github.com/yanizio/webbloc/internal/signature"
)

// Request carries the observed values Authorize evaluates.
type Request struct {
	RawKey     string
	Domain     string
	IP         string
	Permission string
	BlocType   string

	// Payload and Signature are consulted only for keys that require
	// request signing.  The HMAC secret is the full raw token, which both
	// sides hold.
	Payload   []byte
	Signature string
}

// Gateway composes the key store, policy evaluators, signature verifier,
// and rate limiter.
type Gateway struct {
	keys    *apikey.Store
	limiter *ratelimit.Limiter
	usage   *apikey.Recorder
	log     *zap.SugaredLogger
}

// New wires a Gateway.
func New(keys *apikey.Store, limiter *ratelimit.Limiter, usage *apikey.Recorder, log *zap.SugaredLogger) *Gateway {
	return &Gateway{keys: keys, limiter: limiter, usage: usage, log: log}
}

// Authorize validates the request end to end.  On success the returned
// context identifies the tenant; on failure the error is one of the apikey
// taxonomy sentinels or a *ratelimit.LimitError.
func (g *Gateway) Authorize(ctx context.Context, req Request) (*apikey.Context, error) {
	kc, err := g.keys.Validate(ctx, req.RawKey)
	if err != nil {
		g.count(err)
		return nil, err
	}
	key := kc.Key

	if !policy.DomainAllowed(key.AllowedDomains, req.Domain) {
		g.count(apikey.ErrDomainNotAllowed)
		return nil, apikey.ErrDomainNotAllowed
	}
	if !policy.IPAllowed(key.AllowedIPs, req.IP) {
		g.count(apikey.ErrIPNotAllowed)
		return nil, apikey.ErrIPNotAllowed
	}
	if !policy.PermissionAllowed(key.Permissions, req.Permission) {
		g.count(apikey.ErrPermissionDenied)
		return nil, apikey.ErrPermissionDenied
	}
	if req.BlocType != "" && !policy.TypeAllowed(key.AllowedTypes, req.BlocType) {
		g.count(apikey.ErrTypeNotAllowed)
		return nil, apikey.ErrTypeNotAllowed
	}

	if key.RequireSignature {
		ok, err := signature.Verify(req.Payload, req.Signature,
			[]byte(req.RawKey), key.SignatureAlgo)
		if err != nil {
			g.log.Warnw("signature verification error",
				"key", key.PublicID, "err", err)
		}
		if !ok {
			g.count(apikey.ErrBadSignature)
			return nil, apikey.ErrBadSignature
		}
	}

	for _, w := range []struct {
		period ratelimit.Period
		limit  int
	}{
		{ratelimit.PerMinute, key.RateMinute},
		{ratelimit.PerHour, key.RateHour},
		{ratelimit.PerDay, key.RateDay},
	} {
		if err := g.limiter.Allow(ctx, key.ID, w.period, w.limit); err != nil {
			g.count(err)
			return nil, err
		}
	}

	metrics.AuthDecisions.WithLabelValues("allow").Inc()
	return kc, nil
}

// RecordUsage reports the outcome of the gated operation.  Asynchronous;
// never blocks the request path.
func (g *Gateway) RecordUsage(keyID uint64, success bool) {
	g.usage.Record(keyID, success)
}

func (g *Gateway) count(err error) {
	metrics.AuthDecisions.WithLabelValues(Reason(err)).Inc()
}

// Reason maps an authorization error to a stable label for metrics and API
// responses.
func Reason(err error) string {
	var le *ratelimit.LimitError
	if errors.As(err, &le) {
		return "rate_limit_exceeded"
	}
	switch {
	case errors.Is(err, apikey.ErrKeyNotFound):
		return "key_not_found"
	case errors.Is(err, apikey.ErrKeyExpired):
		return "key_expired"
	case errors.Is(err, apikey.ErrKeyRevoked):
		return "key_revoked"
	case errors.Is(err, apikey.ErrKeyInactive):
		return "key_inactive"
	case errors.Is(err, apikey.ErrTenantInactive):
		return "tenant_inactive"
	case errors.Is(err, apikey.ErrDomainNotAllowed):
		return "domain_not_allowed"
	case errors.Is(err, apikey.ErrIPNotAllowed):
		return "ip_not_allowed"
	case errors.Is(err, apikey.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, apikey.ErrTypeNotAllowed):
		return "type_not_allowed"
	case errors.Is(err, apikey.ErrBadSignature):
		return "bad_signature"
	default:
		return "error"
	}
}

// RetryAfter extracts the backoff hint from a rate-limit rejection, zero
// otherwise.
func RetryAfter(err error, now time.Time) time.Duration {
	var le *ratelimit.LimitError
	if errors.As(err, &le) {
		return le.RetryAfter(now)
	}
	return 0
}
