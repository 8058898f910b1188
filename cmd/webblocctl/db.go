// cmd/webblocctl/db.go
//
// Tenant database maintenance: backup, restore, vacuum, stats, delete.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Maintain tenant databases",
	}
	cmd.AddCommand(dbBackupCmd(), dbRestoreCmd(), dbVacuumCmd(), dbStatsCmd(), dbDeleteCmd())
	return cmd
}

func dbBackupCmd() *cobra.Command {
	var tenantID uint64
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot a tenant database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ensureTenant(&app, tenantID); err != nil {
				return err
			}
			path, err := app.tenants.Backup(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&tenantID, "tenant", 0, "tenant ID (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func dbRestoreCmd() *cobra.Command {
	var (
		tenantID uint64
		from     string
	)
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace a tenant database with a backup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.tenants.Restore(cmd.Context(), tenantID, from); err != nil {
				return err
			}
			fmt.Printf("tenant %d restored from %s\n", tenantID, from)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&tenantID, "tenant", 0, "tenant ID (required)")
	cmd.Flags().StringVar(&from, "from", "", "backup file path (required)")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func dbVacuumCmd() *cobra.Command {
	var tenantID uint64
	cmd := &cobra.Command{
		Use:   "vacuum",
		Short: "Reclaim space in a tenant database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ensureTenant(&app, tenantID); err != nil {
				return err
			}
			if err := app.tenants.Vacuum(cmd.Context(), tenantID); err != nil {
				return err
			}
			fmt.Printf("tenant %d vacuumed\n", tenantID)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&tenantID, "tenant", 0, "tenant ID (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func dbStatsCmd() *cobra.Command {
	var tenantID uint64
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show size and row counts for a tenant database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := app.tenants.StatsFor(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			fmt.Printf("tenant:   %d\n", st.TenantID)
			fmt.Printf("size:     %d bytes\n", st.SizeBytes)
			fmt.Printf("users:    %d\n", st.UserCount)
			fmt.Printf("webblocs: %d\n", st.WebBlocs)
			fmt.Printf("modified: %s\n", st.LastModAt.UTC().Format("2006-01-02 15:04:05"))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&tenantID, "tenant", 0, "tenant ID (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func dbDeleteCmd() *cobra.Command {
	var (
		tenantID uint64
		yes      bool
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a tenant database and its side files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete tenant %d without --yes", tenantID)
			}
			if err := app.tenants.Delete(cmd.Context(), tenantID); err != nil {
				return err
			}
			fmt.Printf("tenant %d deleted\n", tenantID)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&tenantID, "tenant", 0, "tenant ID (required)")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
