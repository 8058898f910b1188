// internal/policy/policy_test.go
//
// Table tests for the allow-list evaluators.  The wildcard boundary cases
// are the interesting ones: `*.example.com` must not admit the bare apex,
// and unparseable IPs must fail closed.
package policy

import "testing"

func TestDomainAllowed(t *testing.T) {
	cases := []struct {
		name    string
		allowed []string
		domain  string
		want    bool
	}{
		{"empty list allows all", nil, "anything.example.com", true},
		{"exact match", []string{"example.com"}, "example.com", true},
		{"exact mismatch", []string{"example.com"}, "other.com", false},
		{"case insensitive", []string{"Example.COM"}, "example.com", true},
		{"star matches all", []string{"*"}, "whatever.io", true},
		{"wildcard matches subdomain", []string{"*.example.com"}, "api.example.com", true},
		{"wildcard matches deep subdomain", []string{"*.example.com"}, "a.b.example.com", true},
		{"wildcard excludes apex", []string{"*.example.com"}, "example.com", false},
		{"wildcard rejects suffix trick", []string{"*.example.com"}, "evilexample.com", false},
		{"multi-entry list", []string{"a.com", "*.b.com"}, "x.b.com", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DomainAllowed(c.allowed, c.domain); got != c.want {
				t.Fatalf("DomainAllowed(%v, %q) = %v, want %v",
					c.allowed, c.domain, got, c.want)
			}
		})
	}
}

func TestIPAllowed(t *testing.T) {
	cases := []struct {
		name    string
		allowed []string
		ip      string
		want    bool
	}{
		{"empty list allows all", nil, "203.0.113.9", true},
		{"exact match", []string{"203.0.113.9"}, "203.0.113.9", true},
		{"exact mismatch", []string{"203.0.113.9"}, "203.0.113.10", false},
		{"cidr contains", []string{"10.0.0.0/24"}, "10.0.0.200", true},
		{"cidr excludes", []string{"10.0.0.0/24"}, "10.0.1.1", false},
		{"ipv6 exact", []string{"2001:db8::1"}, "2001:db8::1", true},
		{"ipv6 cidr", []string{"2001:db8::/32"}, "2001:db8:1::5", true},
		{"garbage request ip fails closed", []string{"10.0.0.0/24"}, "not-an-ip", false},
		{"garbage list entry is skipped", []string{"bogus", "10.0.0.1"}, "10.0.0.1", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IPAllowed(c.allowed, c.ip); got != c.want {
				t.Fatalf("IPAllowed(%v, %q) = %v, want %v", c.allowed, c.ip, got, c.want)
			}
		})
	}
}

func TestPermissionAllowed(t *testing.T) {
	cases := []struct {
		name    string
		granted []string
		perm    string
		want    bool
	}{
		{"empty set allows all", nil, "webblocs.create", true},
		{"exact", []string{"webblocs.create"}, "webblocs.create", true},
		{"exact mismatch", []string{"webblocs.create"}, "webblocs.delete", false},
		{"star", []string{"*"}, "anything.at.all", true},
		{"namespace wildcard", []string{"webblocs.*"}, "webblocs.delete", true},
		{"namespace wildcard excludes other namespace", []string{"webblocs.*"}, "users.create", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := PermissionAllowed(c.granted, c.perm); got != c.want {
				t.Fatalf("PermissionAllowed(%v, %q) = %v, want %v",
					c.granted, c.perm, got, c.want)
			}
		})
	}
}

func TestTypeAllowed(t *testing.T) {
	if !TypeAllowed(nil, "comment") {
		t.Fatal("empty list should allow any type")
	}
	if !TypeAllowed([]string{"comment", "review"}, "review") {
		t.Fatal("member should be allowed")
	}
	if TypeAllowed([]string{"comment"}, "reaction") {
		t.Fatal("non-member should be denied")
	}
}
