package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/pulse/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadLocal()
	if err != nil {
		return err
	}

	// Open applies migrations before returning.
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.GetStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied (%s)\n", db.Dialect())
	fmt.Fprintf(cmd.OutOrStdout(), "  objectives:    %d\n", stats.Objectives)
	fmt.Fprintf(cmd.OutOrStdout(), "  action maps:   %d\n", stats.ActionMaps)
	fmt.Fprintf(cmd.OutOrStdout(), "  audit entries: %d\n", stats.AuditEntries)
	return nil
}
