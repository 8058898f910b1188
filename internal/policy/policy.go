// internal/policy/policy.go
//
// Allow-list evaluators for domains, IPs, permissions, and webbloc types.
//
// Context
// -------
// These are pure functions over a key's stored lists and the request's
// observed values: allow or deny, no side effects, no I/O.  The gateway
// runs them before the rate limiter so a request rejected on policy grounds
// never consumes quota.
//
// Matching rules
// --------------
//   - Domain: exact, `*` (match-all), or `*.suffix` — the wildcard covers
//     subdomains only, so `*.example.com` matches `api.example.com` but not
//     `example.com` itself.
//   - IP: exact address or CIDR containment.
//   - Permission: exact, `*`, or `ns.*` prefix wildcard.
//   - Type: exact membership.
//
// An empty allow-list matches everything.  That default is load-bearing:
// most keys are issued unrestricted and narrowed later.
package policy

import (
	"net/netip"
	"strings"
)

// DomainAllowed reports whether domain passes the allow-list.  Comparison
// is case-insensitive, as DNS is.
func DomainAllowed(allowed []string, domain string) bool {
	if len(allowed) == 0 {
		return true
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	for _, pat := range allowed {
		pat = strings.ToLower(strings.TrimSpace(pat))
		switch {
		case pat == "*":
			return true
		case strings.HasPrefix(pat, "*."):
			// Subdomain wildcard: the bare suffix itself does not match.
			if strings.HasSuffix(domain, pat[1:]) {
				return true
			}
		case pat == domain:
			return true
		}
	}
	return false
}

// IPAllowed reports whether ip passes the allow-list of addresses and CIDR
// blocks.  Unparseable request IPs and unparseable list entries both fail
// closed.
func IPAllowed(allowed []string, ip string) bool {
	if len(allowed) == 0 {
		return true
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	for _, pat := range allowed {
		pat = strings.TrimSpace(pat)
		if strings.Contains(pat, "/") {
			pfx, err := netip.ParsePrefix(pat)
			if err != nil {
				continue
			}
			if pfx.Contains(addr) {
				return true
			}
			continue
		}
		if other, err := netip.ParseAddr(pat); err == nil && other == addr {
			return true
		}
	}
	return false
}

// PermissionAllowed reports whether perm passes the permission set.
func PermissionAllowed(granted []string, perm string) bool {
	if len(granted) == 0 {
		return true
	}
	for _, g := range granted {
		switch {
		case g == "*":
			return true
		case strings.HasSuffix(g, ".*"):
			if strings.HasPrefix(perm, g[:len(g)-1]) {
				return true
			}
		case g == perm:
			return true
		}
	}
	return false
}

// TypeAllowed reports whether a webbloc type is in the allow-list.
func TypeAllowed(allowed []string, typ string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, t := range allowed {
		if t == typ {
			return true
		}
	}
	return false
}
