// cmd/webblocd/main.go
//
// WebBloc platform – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (jail-wide file → .env fallback).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Load config and open the platform control-plane DB (websites and
//     api_keys tables, bootstrapped when absent).
//
//  4. Build the tenant registry (lazy-opens each tenant database on first
//     gated request) and the tenant service facade.
//
//  5. Build the key store, usage recorder, rate limiter (memory or Redis
//     per config), and the request gateway.
//
//  6. Expose Prometheus /metrics and the gated content API behind the auth
//     middleware, then serve with hardened timeouts until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yanizio/webbloc/internal/apikey"
	"github.com/yanizio/webbloc/internal/config"
	"github.com/yanizio/webbloc/internal/database"
	"github.com/yanizio/webbloc/internal/gateway"
	"github.com/yanizio/webbloc/internal/logger"
	"github.com/yanizio/webbloc/internal/middleware"
	"github.com/yanizio/webbloc/internal/ratelimit"
	"github.com/yanizio/webbloc/internal/server"
	"github.com/yanizio/webbloc/internal/tenant"
	"github.com/yanizio/webbloc/internal/vault"
	"github.com/yanizio/webbloc/internal/website"
)

const serverEnvPath = "/usr/local/etc/webbloc/global.env"

// loadEnv prefers the jail-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	rootDir, _ := os.Getwd()
	logOut, err := logger.New(rootDir, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logOut.Fatalw("load config", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Platform control-plane DB ───────────────────────────────────
	//
	platformPath := filepath.Join(cfg.Tenants.DataDir, "platform.db")
	if err := os.MkdirAll(cfg.Tenants.DataDir, 0o755); err != nil {
		logOut.Fatalw("create data dir", "err", err)
	}
	platformDB, err := database.Open(ctx, platformPath)
	if err != nil {
		logOut.Fatalw("open platform DB", "err", err)
	}
	defer platformDB.Close()

	if err := website.EnsureSchema(ctx, platformDB); err != nil {
		logOut.Fatalw("websites schema", "err", err)
	}
	if err := apikey.EnsureSchema(ctx, platformDB); err != nil {
		logOut.Fatalw("api_keys schema", "err", err)
	}

	// Log active-website count as an early sanity check.
	if sites, err := website.AllActive(ctx, platformDB); err == nil {
		logOut.Infow("platform DB online", "active_websites", len(sites))
	}

	//
	// ── 2.  Tenant registry and service ─────────────────────────────────
	//
	paths := tenant.NewPaths(cfg.Tenants.DataDir)
	boot := tenant.NewBootstrapper(database.DefaultOptions(), logOut)
	registry := tenant.NewRegistry(paths, boot, database.DefaultOptions(),
		cfg.Tenants.IdleTTL, cfg.Tenants.MaxHandles, logOut)
	defer registry.Close()
	tenants := tenant.NewService(paths, boot, registry, logOut)

	//
	// ── 3.  Gateway: keys, usage, rate limits ───────────────────────────
	//
	keys := apikey.NewStore(platformDB, cfg.Auth.CacheSize, cfg.Auth.CacheTTL)
	usage := apikey.NewRecorder(platformDB, apikey.DefaultFlushInterval, logOut)
	defer usage.Close()

	limiter, closeStore, err := buildLimiter(ctx, cfg, logOut)
	if err != nil {
		logOut.Fatalw("rate limiter", "err", err)
	}
	defer closeStore()

	gw := gateway.New(keys, limiter, usage, logOut)
	auth := middleware.NewAuth(gw, logOut)
	h := &handlers{tenants: tenants, log: logOut}

	//
	// ── 4.  Routes ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(middleware.Security)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/webblocs/{type}", func(r chi.Router) {
			r.With(auth.Require("webblocs.read")).Get("/", h.listBlocs)
			r.With(auth.Require("webblocs.create")).Post("/", h.createBloc)
			r.With(auth.Require("webblocs.read")).Get("/{id}", h.getBloc)
			r.With(auth.Require("webblocs.delete")).Delete("/{id}", h.deleteBloc)
		})
		r.With(auth.Require("users.create")).Post("/users", h.registerUser)
		r.With(auth.Require("stats.read")).Get("/stats", h.tenantStats)
	})

	//
	// ── 5.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, r)
	go func() {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logOut.Fatalw("serve", "err", err)
		}
	}()

	<-ctx.Done()
	logOut.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// buildLimiter selects the counter backend.  The Redis password may be a
// vault: reference, resolved only when that backend is actually chosen.
func buildLimiter(ctx context.Context, cfg *config.Config, logOut *zap.SugaredLogger) (*ratelimit.Limiter, func(), error) {
	if cfg.RateLimit.Backend != "redis" {
		store := ratelimit.NewMemoryStore()
		return ratelimit.New(store), store.Close, nil
	}

	password := cfg.RateLimit.RedisPassword
	if password != "" {
		vc, err := vault.New(ctx, logOut)
		if err != nil {
			return nil, nil, err
		}
		password, err = config.ResolveSecret(ctx, vc, password)
		if err != nil {
			return nil, nil, err
		}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, err
	}
	logOut.Infow("rate-limit backend online", "backend", "redis",
		"addr", cfg.RateLimit.RedisAddr)
	return ratelimit.New(ratelimit.NewRedisStore(client)),
		func() { _ = client.Close() }, nil
}
