// internal/apikey/model.go
//
// `api_keys` table row model and key-material factory.
//
// Context
// -------
// A key is scoped to one website and carries everything the gateway needs
// to authorize a request: status, expiry, permission and type allow-lists,
// domain/IP allow-lists, per-period rate limits, and the optional signature
// requirement.  The secret is stored only as a SHA-256 digest; the
// plaintext token leaves Issue exactly once and is never persisted or
// logged.
//
// Notes
// -----
//   - List columns are JSON arrays in TEXT; StringList handles the
//     (un)marshalling for sqlx scans.
//   - Issue is an explicit factory producing a fully-formed record before
//     persistence.  There are no lifecycle hooks mutating records behind
//     the caller's back.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key statuses.  Revoked and expired are terminal; suspended is
// operator-reversible.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
	StatusRevoked   = "revoked"
	StatusExpired   = "expired"
)

// Signature algorithms accepted by keys that require request signing.
const (
	AlgoHMACSHA256 = "hmac-sha256"
	AlgoHMACSHA512 = "hmac-sha512"
)

const (
	tokenPrefix     = "wbk_"
	secretLength    = 48
	secretAlphabet  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultRateMin  = 60
	DefaultRateHour = 1000
	DefaultRateDay  = 10000
)

// StringList is a JSON-encoded []string column.
type StringList []string

func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("apikey: cannot scan %T into StringList", src)
	}
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

// Record mirrors one row in the `api_keys` table.
type Record struct {
	ID         uint64 `db:"id"`
	WebsiteID  uint64 `db:"website_id"`
	PublicID   string `db:"public_id"`
	SecretHash string `db:"secret_hash"`
	Status     string `db:"status"`

	Permissions    StringList `db:"permissions"`
	AllowedTypes   StringList `db:"allowed_types"`
	AllowedDomains StringList `db:"allowed_domains"`
	AllowedIPs     StringList `db:"allowed_ips"`

	RateMinute int `db:"rate_minute"`
	RateHour   int `db:"rate_hour"`
	RateDay    int `db:"rate_day"`

	RequireSignature bool   `db:"require_signature"`
	SignatureAlgo    string `db:"signature_algo"`

	TotalRequests   int64      `db:"total_requests"`
	SuccessRequests int64      `db:"success_requests"`
	FailedRequests  int64      `db:"failed_requests"`
	DayRequests     int64      `db:"day_requests"`
	DayDate         string     `db:"day_date"`
	MonthRequests   int64      `db:"month_requests"`
	MonthDate       string     `db:"month_date"`
	LastUsedAt      *time.Time `db:"last_used_at"`

	ExpiresAt *time.Time `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// Usable reports the compound validity rule: active status, unexpired, and
// the specific denial when not.
func (r *Record) Usable(now time.Time) error {
	switch r.Status {
	case StatusRevoked:
		return ErrKeyRevoked
	case StatusExpired:
		return ErrKeyExpired
	}
	if r.ExpiresAt != nil && now.After(*r.ExpiresAt) {
		return ErrKeyExpired
	}
	if r.Status != StatusActive {
		return ErrKeyInactive
	}
	return nil
}

// IssueOptions parameterise a new key.  Zero-valued limits fall back to the
// package defaults; empty lists mean unrestricted.
type IssueOptions struct {
	WebsiteID        uint64
	Permissions      []string
	AllowedTypes     []string
	AllowedDomains   []string
	AllowedIPs       []string
	RateMinute       int
	RateHour         int
	RateDay          int
	RequireSignature bool
	SignatureAlgo    string
	ExpiresAt        *time.Time
}

// Issue builds a fully-formed, active Record plus the plaintext token.  The
// token is the only place the secret ever appears in the clear.
func Issue(opts IssueOptions) (*Record, string, error) {
	secret, err := randomString(secretLength)
	if err != nil {
		return nil, "", fmt.Errorf("apikey: generate secret: %w", err)
	}
	publicID := uuid.NewString()
	token := tokenPrefix + publicID + "." + secret

	rec := &Record{
		WebsiteID:        opts.WebsiteID,
		PublicID:         publicID,
		SecretHash:       HashSecret(secret),
		Status:           StatusActive,
		Permissions:      opts.Permissions,
		AllowedTypes:     opts.AllowedTypes,
		AllowedDomains:   opts.AllowedDomains,
		AllowedIPs:       opts.AllowedIPs,
		RateMinute:       opts.RateMinute,
		RateHour:         opts.RateHour,
		RateDay:          opts.RateDay,
		RequireSignature: opts.RequireSignature,
		SignatureAlgo:    opts.SignatureAlgo,
		ExpiresAt:        opts.ExpiresAt,
	}
	if rec.RateMinute <= 0 {
		rec.RateMinute = DefaultRateMin
	}
	if rec.RateHour <= 0 {
		rec.RateHour = DefaultRateHour
	}
	if rec.RateDay <= 0 {
		rec.RateDay = DefaultRateDay
	}
	if rec.RequireSignature && rec.SignatureAlgo == "" {
		rec.SignatureAlgo = AlgoHMACSHA256
	}
	return rec, token, nil
}

// ParseToken splits a raw token into its public ID and secret.  Malformed
// tokens are indistinguishable from unknown keys by design.
func ParseToken(raw string) (publicID, secret string, err error) {
	if !strings.HasPrefix(raw, tokenPrefix) {
		return "", "", ErrKeyNotFound
	}
	rest := strings.TrimPrefix(raw, tokenPrefix)
	i := strings.IndexByte(rest, '.')
	if i <= 0 || i == len(rest)-1 {
		return "", "", ErrKeyNotFound
	}
	return rest[:i], rest[i+1:], nil
}

// HashSecret returns the hex SHA-256 digest stored in place of the secret.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func randomString(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(secretAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = secretAlphabet[n.Int64()]
	}
	return string(out), nil
}
