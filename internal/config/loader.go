// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `WEBBLOC_`, where `__` maps to “.”
     (e.g., `WEBBLOC_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, the tree is unmarshalled into strongly-typed structs,
validated, enriched with the runtime root path and defaults, and cached in
an `atomic.Pointer` for lock-free reads.  `Reload()` simply calls `Load()`
again and swaps the pointer.

Values of the form `vault:<mount>/<path>#<key>` are resolved lazily via
ResolveSecret, which callers invoke with an `internal/vault` client when
they actually need the secret.  Keeping resolution out of Load() means a
process that never touches Redis never needs a Vault token.
*/
package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

var current atomic.Pointer[Config]

// vaultPrefix marks a config value as a Vault KV-v2 reference.
const vaultPrefix = "vault:"

// SecretSource resolves one key from a KV-v2 secret.  Implemented by
// *vault.Client; kept as an interface so tests do not need a Vault server.
type SecretSource interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves WEBBLOC_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("WEBBLOC_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, validates, and caches Config.
func Load() (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}

	// Env overrides: WEBBLOC_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider("WEBBLOC_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "WEBBLOC_")
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	applyDefaults(&cfg)
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"data_dir", cfg.Tenants.DataDir,
		"ratelimit_backend", cfg.RateLimit.Backend,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Tenants.IdleTTL <= 0 {
		cfg.Tenants.IdleTTL = 30 * time.Minute
	}
	if cfg.Tenants.MaxHandles <= 0 {
		cfg.Tenants.MaxHandles = 100
	}
	if cfg.Auth.CacheTTL <= 0 {
		cfg.Auth.CacheTTL = 2 * time.Minute
	}
	if cfg.Auth.CacheSize <= 0 {
		cfg.Auth.CacheSize = 4096
	}
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "memory"
	}
	if !filepath.IsAbs(cfg.Tenants.DataDir) {
		cfg.Tenants.DataDir = filepath.Join(cfg.Paths.Root, cfg.Tenants.DataDir)
	}
}

/*──────────────────────────── secrets ─────────────────────────────────────*/

// ResolveSecret expands a `vault:<mount>/<path>#<key>` reference through
// src.  Plain values pass through untouched, so call sites can be agnostic
// about whether a secret came from YAML or Vault.
func ResolveSecret(ctx context.Context, src SecretSource, val string) (string, error) {
	if !strings.HasPrefix(val, vaultPrefix) {
		return val, nil
	}
	ref := strings.TrimPrefix(val, vaultPrefix)
	path, key, found := strings.Cut(ref, "#")
	if !found {
		key = "value"
	}
	return src.GetKV(ctx, path, key, 5*time.Minute)
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config  { return current.Load() }
func Reload() error { _, err := Load(); return err }
