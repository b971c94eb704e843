package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hyperengineering/pulse/internal/config"
	"github.com/hyperengineering/pulse/internal/types"
)

var seedWorkspace string

var seedCmd = &cobra.Command{
	Use:   "seed <fixture.yaml>",
	Short: "Load a YAML fixture of development data",
	Long: "Load users, objectives, key results, action maps, items, tasks, approach records\n" +
		"and audit entries from a YAML fixture in one transaction. Rows without a\n" +
		"workspace_id are assigned --workspace (or a fresh UUID, printed on success).",
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedWorkspace, "workspace", "",
		"Workspace UUID for rows that do not name one")
}

func runSeed(cmd *cobra.Command, args []string) error {
	fixture, err := readFixture(args[0])
	if err != nil {
		return err
	}

	workspace := seedWorkspace
	if workspace == "" {
		workspace = uuid.NewString()
	} else if _, err := uuid.Parse(workspace); err != nil {
		return fmt.Errorf("--workspace must be a UUID: %w", err)
	}
	fillWorkspace(&fixture, workspace)

	cfg, err := config.LoadLocal()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := db.ImportFixture(cmd.Context(), fixture)
	if err != nil {
		return fmt.Errorf("import fixture: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Seeded %s (default workspace %s)\n", args[0], workspace)
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "TABLE\tROWS")
	fmt.Fprintf(tw, "users\t%d\n", result.Users)
	fmt.Fprintf(tw, "objectives\t%d\n", result.Objectives)
	fmt.Fprintf(tw, "key_results\t%d\n", result.KeyResults)
	fmt.Fprintf(tw, "action_maps\t%d\n", result.ActionMaps)
	fmt.Fprintf(tw, "action_items\t%d\n", result.Items)
	fmt.Fprintf(tw, "tasks\t%d\n", result.Tasks)
	fmt.Fprintf(tw, "approaches\t%d\n", result.Approaches)
	fmt.Fprintf(tw, "audit_logs\t%d\n", result.AuditLogs)
	return tw.Flush()
}

func readFixture(path string) (types.Fixture, error) {
	var f types.Fixture
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read fixture: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse fixture: %w", err)
	}
	return f, nil
}

// fillWorkspace assigns ws to every workspace-scoped row that lacks one.
func fillWorkspace(f *types.Fixture, ws string) {
	set := func(p *string) {
		if *p == "" {
			*p = ws
		}
	}
	for i := range f.Objectives {
		set(&f.Objectives[i].WorkspaceID)
	}
	for i := range f.KeyResults {
		set(&f.KeyResults[i].WorkspaceID)
	}
	for i := range f.ActionMaps {
		set(&f.ActionMaps[i].WorkspaceID)
	}
	for i := range f.Items {
		set(&f.Items[i].WorkspaceID)
	}
	for i := range f.Tasks {
		set(&f.Tasks[i].WorkspaceID)
	}
	for i := range f.Approaches {
		set(&f.Approaches[i].WorkspaceID)
	}
	for i := range f.AuditLogs {
		set(&f.AuditLogs[i].WorkspaceID)
	}
}
