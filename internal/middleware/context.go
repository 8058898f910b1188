// internal/middleware/context.go
//
// Request-context plumbing for the authenticated key context.
package middleware

import (
	"context"
	"net/http"

	"github.com/yanizio/webbloc/internal/apikey"
)

type ctxKey int

const keyContextKey ctxKey = iota

func withKeyContext(ctx context.Context, kc *apikey.Context) context.Context {
	return context.WithValue(ctx, keyContextKey, kc)
}

// KeyContext returns the validated key context set by Auth.Require, or nil
// when the request did not pass through it.
func KeyContext(r *http.Request) *apikey.Context {
	kc, _ := r.Context().Value(keyContextKey).(*apikey.Context)
	return kc
}
