package main

import (
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/hyperengineering/pulse/internal/config"
	"github.com/hyperengineering/pulse/internal/mcptools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the report tools over MCP stdio",
	Long: "Serve objective_progress, action_map_progress, activity_feed and approach_stats\n" +
		"as MCP tools on stdin/stdout against the configured store. Logs go to stderr.",
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadLocal()
	if err != nil {
		return err
	}

	// stdout carries the protocol.
	slog.SetDefault(newLogger(os.Stderr, cfg.Log))

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := mcptools.NewServer(db, mcptools.Options{
		Version:        Version,
		MaxConcurrency: cfg.Rollup.MaxConcurrency,
		DefaultLimit:   cfg.Activity.DefaultLimit,
		MaxLimit:       cfg.Activity.MaxLimit,
		Location:       cfg.Location(),
	})
	slog.Info("mcp server starting", "transport", "stdio", "dialect", db.Dialect())

	return server.ServeStdio(srv)
}
