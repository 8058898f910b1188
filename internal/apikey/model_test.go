// internal/apikey/model_test.go
//
// Key factory, token parsing, and the Usable status rule.
package apikey

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueProducesVerifiableToken(t *testing.T) {
	rec, token, err := Issue(IssueOptions{WebsiteID: 3})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !strings.HasPrefix(token, "wbk_") {
		t.Fatalf("token %q lacks prefix", token)
	}

	publicID, secret, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if publicID != rec.PublicID {
		t.Fatalf("public ID mismatch: %q vs %q", publicID, rec.PublicID)
	}
	if HashSecret(secret) != rec.SecretHash {
		t.Fatal("stored hash does not match the token's secret")
	}
	if rec.Status != StatusActive {
		t.Fatalf("new key status = %q, want active", rec.Status)
	}
}

func TestIssueAppliesDefaults(t *testing.T) {
	rec, _, err := Issue(IssueOptions{WebsiteID: 1})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if rec.RateMinute != DefaultRateMin || rec.RateHour != DefaultRateHour ||
		rec.RateDay != DefaultRateDay {
		t.Fatalf("default limits not applied: %d/%d/%d",
			rec.RateMinute, rec.RateHour, rec.RateDay)
	}

	rec, _, err = Issue(IssueOptions{WebsiteID: 1, RequireSignature: true})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if rec.SignatureAlgo != AlgoHMACSHA256 {
		t.Fatalf("signature algo default = %q, want hmac-sha256", rec.SignatureAlgo)
	}
}

func TestIssueTokensAreUnique(t *testing.T) {
	_, a, _ := Issue(IssueOptions{WebsiteID: 1})
	_, b, _ := Issue(IssueOptions{WebsiteID: 1})
	if a == b {
		t.Fatal("two issued tokens are identical")
	}
}

func TestParseTokenMalformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"wbk_",
		"wbk_no-dot-here",
		"wbk_.secretonly",
		"wbk_idonly.",
		"sk_wrongprefix.secret",
	} {
		if _, _, err := ParseToken(raw); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("ParseToken(%q) err = %v, want ErrKeyNotFound", raw, err)
		}
	}
}

func TestUsable(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		rec  Record
		want error
	}{
		{"active", Record{Status: StatusActive}, nil},
		{"active with future expiry", Record{Status: StatusActive, ExpiresAt: &future}, nil},
		{"revoked", Record{Status: StatusRevoked}, ErrKeyRevoked},
		{"expired status", Record{Status: StatusExpired}, ErrKeyExpired},
		{"past expiry on active key", Record{Status: StatusActive, ExpiresAt: &past}, ErrKeyExpired},
		{"suspended", Record{Status: StatusSuspended}, ErrKeyInactive},
		{"inactive", Record{Status: StatusInactive}, ErrKeyInactive},
		// Revocation wins over expiry: the stronger denial is reported.
		{"revoked and expired", Record{Status: StatusRevoked, ExpiresAt: &past}, ErrKeyRevoked},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.rec.Usable(now); !errors.Is(got, c.want) {
				t.Fatalf("Usable = %v, want %v", got, c.want)
			}
		})
	}
}

func TestStringListRoundTrip(t *testing.T) {
	v, err := StringList{"a.com", "*.b.com"}.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	var back StringList
	if err := back.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(back) != 2 || back[0] != "a.com" || back[1] != "*.b.com" {
		t.Fatalf("round trip lost data: %#v", back)
	}

	var empty StringList
	nilVal, _ := StringList(nil).Value()
	if nilVal != "[]" {
		t.Fatalf("nil list Value = %v, want []", nilVal)
	}
	if err := empty.Scan(nil); err != nil || empty != nil {
		t.Fatalf("Scan(nil) = %v, %#v", err, empty)
	}
}
