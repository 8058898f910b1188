// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects industry-standard headers on every response:
//
//   • Strict-Transport-Security  –  forces HTTPS (2 years + preload)
//   • X-Content-Type-Options     –  MIME-sniffing defence
//   • X-Frame-Options            –  click-jacking defence for the API host
//   • Referrer-Policy            –  drops path/query from Referer
//
// Notes
// -----
// • Headers are added *after* next.ServeHTTP so handlers may set
//   Content-Type first; the middleware never overwrites an existing value.
// • The embeddable widget assets are served elsewhere; this host is API
//   only, so a restrictive frame policy is safe.
package middleware

import "net/http"

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	const (
		hsts  = "max-age=63072000; includeSubDomains; preload"
		xfo   = "DENY"
		nosn  = "nosniff"
		refer = "strict-origin-when-cross-origin"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		if w.Header().Get("Strict-Transport-Security") == "" {
			w.Header().Add("Strict-Transport-Security", hsts)
		}
		if w.Header().Get("X-Content-Type-Options") == "" {
			w.Header().Add("X-Content-Type-Options", nosn)
		}
		if w.Header().Get("X-Frame-Options") == "" {
			w.Header().Add("X-Frame-Options", xfo)
		}
		if w.Header().Get("Referrer-Policy") == "" {
			w.Header().Add("Referrer-Policy", refer)
		}
	})
}
