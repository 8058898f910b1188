// internal/config/model.go
//
// Typed configuration model for the WebBloc platform.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                           – dotenv values,
//   • `conf/global.yaml`                        – primary static file,
//   • `WEBBLOC_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client after unmarshalling, so secrets such as the
// Redis password stay out of flat files and git history.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Tenants section
//

// Tenants tunes the per-tenant database registry.
type Tenants struct {
	// DataDir is where tenant database files and backups live.  Relative
	// paths are resolved against Paths.Root.
	DataDir    string        `koanf:"data_dir" validate:"required"`
	IdleTTL    time.Duration `koanf:"idle_ttl"`
	MaxHandles int           `koanf:"max_handles"`
}

//
// Auth section
//

// Auth tunes API key validation.  CacheTTL bounds how long a revoked key
// may keep working; keep it to minutes.
type Auth struct {
	CacheTTL  time.Duration `koanf:"cache_ttl"`
	CacheSize int           `koanf:"cache_size"`
}

//
// RateLimit section
//

// RateLimit selects the counter backend.  `memory` is exact for a single
// process; `redis` shares windows across processes.
type RateLimit struct {
	Backend       string `koanf:"backend" validate:"omitempty,oneof=memory redis"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"` // may be a vault: reference
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers `Root` (repo root or WEBBLOC_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Tenants   Tenants   `koanf:"tenants"`
	Auth      Auth      `koanf:"auth"`
	RateLimit RateLimit `koanf:"ratelimit"`
	Paths     Paths     `koanf:"-"`
}
