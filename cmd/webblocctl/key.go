// cmd/webblocctl/key.go
//
// API key subcommands.  `key issue` is the one place the plaintext token
// is ever printed; it cannot be recovered afterwards.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanizio/webbloc/internal/apikey"
	"github.com/yanizio/webbloc/internal/website"
)

func keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage API keys",
	}
	cmd.AddCommand(keyIssueCmd(), keyStatusCmd("revoke", apikey.StatusRevoked),
		keyStatusCmd("suspend", apikey.StatusSuspended),
		keyStatusCmd("reactivate", apikey.StatusActive), keyListCmd())
	return cmd
}

func keyIssueCmd() *cobra.Command {
	var (
		websiteID  uint64
		perms      []string
		types      []string
		domains    []string
		ips        []string
		rateMin    int
		rateHour   int
		rateDay    int
		expiresIn  time.Duration
		requireSig bool
		sigAlgo    string
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a new API key for a website",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			site, err := website.ByID(ctx, app.db, websiteID)
			if err != nil {
				return err
			}

			opts := apikey.IssueOptions{
				WebsiteID:        site.ID,
				Permissions:      perms,
				AllowedTypes:     types,
				AllowedDomains:   domains,
				AllowedIPs:       ips,
				RateMinute:       rateMin,
				RateHour:         rateHour,
				RateDay:          rateDay,
				RequireSignature: requireSig,
				SignatureAlgo:    sigAlgo,
			}
			if expiresIn > 0 {
				exp := time.Now().UTC().Add(expiresIn)
				opts.ExpiresAt = &exp
			}

			rec, token, err := apikey.Issue(opts)
			if err != nil {
				return err
			}
			id, err := apikey.Insert(ctx, app.db, rec)
			if err != nil {
				return fmt.Errorf("persist key: %w", err)
			}

			fmt.Printf("key %d issued for website %d (%s)\n", id, site.ID, site.Domain)
			fmt.Printf("token (shown once): %s\n", token)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&websiteID, "website", 0, "owning website ID (required)")
	cmd.Flags().StringSliceVar(&perms, "permissions", nil, "granted permissions (empty = all)")
	cmd.Flags().StringSliceVar(&types, "types", nil, "allowed webbloc types (empty = all)")
	cmd.Flags().StringSliceVar(&domains, "domains", nil, "allowed domains, wildcards OK (empty = all)")
	cmd.Flags().StringSliceVar(&ips, "ips", nil, "allowed IPs or CIDRs (empty = all)")
	cmd.Flags().IntVar(&rateMin, "rate-minute", 0, "per-minute limit (0 = default)")
	cmd.Flags().IntVar(&rateHour, "rate-hour", 0, "per-hour limit (0 = default)")
	cmd.Flags().IntVar(&rateDay, "rate-day", 0, "per-day limit (0 = default)")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "lifetime, e.g. 8760h (0 = never)")
	cmd.Flags().BoolVar(&requireSig, "require-signature", false, "require HMAC request signing")
	cmd.Flags().StringVar(&sigAlgo, "signature-algo", apikey.AlgoHMACSHA256,
		"hmac-sha256 or hmac-sha512")
	_ = cmd.MarkFlagRequired("website")
	return cmd
}

func keyStatusCmd(verb, status string) *cobra.Command {
	var id uint64
	cmd := &cobra.Command{
		Use:   verb,
		Short: fmt.Sprintf("Set a key to %s", status),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := apikey.SetStatus(cmd.Context(), app.db, id, status); err != nil {
				return err
			}
			fmt.Printf("key %d → %s\n", id, status)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&id, "id", 0, "key ID (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func keyListCmd() *cobra.Command {
	var websiteID uint64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List keys for a website",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := apikey.ByWebsite(cmd.Context(), app.db, websiteID)
			if err != nil {
				return err
			}
			for _, k := range rows {
				exp := "never"
				if k.ExpiresAt != nil {
					exp = k.ExpiresAt.Format(time.RFC3339)
				}
				fmt.Printf("%6d  %-36s  %-9s  total=%d  expires=%s\n",
					k.ID, k.PublicID, k.Status, k.TotalRequests, exp)
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&websiteID, "website", 0, "website ID (required)")
	_ = cmd.MarkFlagRequired("website")
	return cmd
}
