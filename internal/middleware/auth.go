// internal/middleware/auth.go
//
// API key authentication middleware.
//
// Context
// -------
// Require(permission) extracts the raw key and the request's observed
// domain and IP, runs the gateway's authorization pipeline, and either
// stores the key context for downstream handlers or maps the denial to the
// right status code:
//
//	401 – key problems (not found, expired, revoked, inactive)
//	403 – policy problems (tenant, domain, IP, permission, type, signature)
//	429 – rate limit, with Retry-After
//
// After the handler runs, the outcome (2xx/3xx vs. the rest) is reported
// to the usage recorder.  The raw body is read up front so signature
// verification sees the same bytes the handler will.
package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/webbloc/internal/apikey"
	"github.com/yanizio/webbloc/internal/gateway"
	"github.com/yanizio/webbloc/internal/ratelimit"
)

// Auth authenticates gated requests through the gateway.
type Auth struct {
	gw  *gateway.Gateway
	log *zap.SugaredLogger
}

// NewAuth wires the middleware.
func NewAuth(gw *gateway.Gateway, log *zap.SugaredLogger) *Auth {
	return &Auth{gw: gw, log: log}
}

// maxSignedBody caps how much request body is buffered for signature
// verification.
const maxSignedBody = 1 << 20

// Require gates the wrapped handler behind the given permission.  The
// webbloc type, when the route carries one, is read from the `type` URL
// parameter.
func (a *Auth) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := extractKey(r)
			if rawKey == "" {
				writeError(w, http.StatusUnauthorized, "key_missing", "missing API key")
				return
			}

			var payload []byte
			if r.Body != nil && r.ContentLength != 0 {
				var err error
				payload, err = io.ReadAll(io.LimitReader(r.Body, maxSignedBody))
				if err != nil {
					writeError(w, http.StatusBadRequest, "bad_body", "unreadable request body")
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(payload))
			}

			kc, err := a.gw.Authorize(r.Context(), gateway.Request{
				RawKey:     rawKey,
				Domain:     requestDomain(r),
				IP:         requestIP(r),
				Permission: permission,
				BlocType:   chi.URLParam(r, "type"),
				Payload:    payload,
				Signature:  r.Header.Get("X-Webbloc-Signature"),
			})
			if err != nil {
				a.deny(w, err)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(withKeyContext(r.Context(), kc)))
			a.gw.RecordUsage(kc.Key.ID, rec.status < http.StatusBadRequest)
		})
	}
}

func (a *Auth) deny(w http.ResponseWriter, err error) {
	reason := gateway.Reason(err)

	var le *ratelimit.LimitError
	if errors.As(err, &le) {
		retry := le.RetryAfter(time.Now())
		w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(le.Limit))
		writeError(w, http.StatusTooManyRequests, reason, le.Error())
		return
	}

	switch {
	case errors.Is(err, apikey.ErrKeyNotFound),
		errors.Is(err, apikey.ErrKeyExpired),
		errors.Is(err, apikey.ErrKeyRevoked),
		errors.Is(err, apikey.ErrKeyInactive):
		writeError(w, http.StatusUnauthorized, reason, "invalid API key")
	case errors.Is(err, apikey.ErrTenantInactive),
		errors.Is(err, apikey.ErrDomainNotAllowed),
		errors.Is(err, apikey.ErrIPNotAllowed),
		errors.Is(err, apikey.ErrPermissionDenied),
		errors.Is(err, apikey.ErrTypeNotAllowed),
		errors.Is(err, apikey.ErrBadSignature):
		writeError(w, http.StatusForbidden, reason, "request not allowed")
	default:
		a.log.Errorw("authorization infrastructure error", "err", err)
		writeError(w, http.StatusInternalServerError, "error", "authorization unavailable")
	}
}

// extractKey accepts the key from X-Api-Key, a Bearer token, or the
// wb_token query parameter (embeddable widgets cannot always set headers).
func extractKey(r *http.Request) string {
	if k := r.Header.Get("X-Api-Key"); k != "" {
		return k
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return r.URL.Query().Get("wb_token")
}

// requestDomain is the host of the Origin header, falling back to Referer.
// Embeds always send one of the two; server-to-server callers may send
// neither, which matches only keys with an unrestricted domain list.
func requestDomain(r *http.Request) string {
	for _, h := range []string{r.Header.Get("Origin"), r.Header.Get("Referer")} {
		if h == "" {
			continue
		}
		if u, err := url.Parse(h); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	return ""
}

// requestIP prefers the first X-Forwarded-For hop, then RemoteAddr.
func requestIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": msg,
	})
}
