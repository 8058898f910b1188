// cmd/webblocctl/main.go
//
// Admin CLI for the WebBloc platform.
//
// The dashboard is the everyday surface; webblocctl is for operators and
// provisioning scripts.  Every command talks to the same facades the HTTP
// process uses — website repository, key issuance, tenant service — against
// the platform DB and data directory from the shared config.
//
// Usage
// -----
//
//	webblocctl website create --domain example.com --name "Example" --activate
//	webblocctl key issue --website 3 --permissions webblocs.*
//	webblocctl db backup --tenant 3
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yanizio/webbloc/internal/apikey"
	"github.com/yanizio/webbloc/internal/config"
	"github.com/yanizio/webbloc/internal/database"
	"github.com/yanizio/webbloc/internal/tenant"
	"github.com/yanizio/webbloc/internal/website"
)

// env bundles everything a subcommand needs.  Built once in the root
// PersistentPreRunE so each RunE stays a straight-line script.
type env struct {
	cfg      *config.Config
	db       *sqlx.DB
	tenants  *tenant.Service
	registry *tenant.Registry
	log      *zap.SugaredLogger
}

var app env

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "webblocctl",
		Short:         "Operate the WebBloc platform: websites, API keys, tenant databases",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			zl, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			app.log = zl.Sugar()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			app.cfg = cfg

			ctx := cmd.Context()
			db, err := database.Open(ctx, filepath.Join(cfg.Tenants.DataDir, "platform.db"))
			if err != nil {
				return fmt.Errorf("open platform DB: %w", err)
			}
			if err := website.EnsureSchema(ctx, db); err != nil {
				return err
			}
			if err := apikey.EnsureSchema(ctx, db); err != nil {
				return err
			}
			app.db = db

			paths := tenant.NewPaths(cfg.Tenants.DataDir)
			boot := tenant.NewBootstrapper(database.DefaultOptions(), app.log)
			app.registry = tenant.NewRegistry(paths, boot, database.DefaultOptions(),
				cfg.Tenants.IdleTTL, cfg.Tenants.MaxHandles, app.log)
			app.tenants = tenant.NewService(paths, boot, app.registry, app.log)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if app.registry != nil {
				app.registry.Close()
			}
			if app.db != nil {
				_ = app.db.Close()
			}
		},
	}

	root.AddCommand(websiteCmd(), keyCmd(), dbCmd())
	return root
}

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
