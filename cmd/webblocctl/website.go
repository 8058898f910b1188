// cmd/webblocctl/website.go
//
// Website lifecycle subcommands: create (with optional immediate
// activation and database provisioning), activate, suspend, list.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yanizio/webbloc/internal/tenant"
	"github.com/yanizio/webbloc/internal/website"
)

func websiteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "website",
		Short: "Manage registered websites (tenants)",
	}
	cmd.AddCommand(websiteCreateCmd(), websiteStatusCmd("activate", website.StatusActive),
		websiteStatusCmd("suspend", website.StatusSuspended), websiteListCmd())
	return cmd
}

func websiteCreateCmd() *cobra.Command {
	var (
		domain   string
		name     string
		activate bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a website and provision its database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			status := website.StatusPending
			if activate {
				status = website.StatusActive
			}
			id, err := website.Insert(ctx, app.db, domain, name, status)
			if err != nil {
				return fmt.Errorf("insert website: %w", err)
			}

			if err := app.tenants.Create(ctx, id, false); err != nil {
				// Roll the row back so a retry starts clean.
				_ = website.SetStatus(ctx, app.db, id, website.StatusPending)
				return fmt.Errorf("provision database: %w", err)
			}
			if err := website.MarkDatabase(ctx, app.db, id,
				app.tenants.PathFor(id), true); err != nil {
				return err
			}

			fmt.Printf("website %d created (%s), database %s\n",
				id, status, app.tenants.PathFor(id))
			return nil
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "registered domain (required)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().BoolVar(&activate, "activate", false, "activate immediately")
	_ = cmd.MarkFlagRequired("domain")
	return cmd
}

func websiteStatusCmd(verb, status string) *cobra.Command {
	var id uint64
	cmd := &cobra.Command{
		Use:   verb,
		Short: fmt.Sprintf("Set a website to %s", status),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := website.SetStatus(cmd.Context(), app.db, id, status); err != nil {
				return err
			}
			fmt.Printf("website %d → %s\n", id, status)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&id, "id", 0, "website ID (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func websiteListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active websites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := website.AllActive(cmd.Context(), app.db)
			if err != nil {
				return err
			}
			for _, r := range rows {
				dbState := "no-db"
				if r.DBExists {
					dbState = "db-ok"
				}
				fmt.Printf("%6d  %-30s  %-10s  %s\n", r.ID, r.Domain, r.Status, dbState)
			}
			return nil
		},
	}
}

// ensureTenant is shared by db subcommands: the tenant must exist before we
// operate on its database.
func ensureTenant(app *env, id uint64) error {
	if !app.tenants.Exists(id) {
		return tenant.ErrNotFound
	}
	return nil
}
