package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hyperengineering/pulse/internal/rollup"
	"github.com/hyperengineering/pulse/internal/store"
	"github.com/hyperengineering/pulse/internal/types"
)

// ObjectiveProgressTool handles the objective_progress MCP tool.
type ObjectiveProgressTool struct {
	rollups *rollup.Service
}

// NewObjectiveProgressTool creates an ObjectiveProgressTool.
func NewObjectiveProgressTool(rollups *rollup.Service) *ObjectiveProgressTool {
	return &ObjectiveProgressTool{rollups: rollups}
}

// Definition returns the MCP tool definition for objective_progress.
func (t *ObjectiveProgressTool) Definition() mcp.Tool {
	return mcp.NewTool("objective_progress",
		mcp.WithDescription(
			"Show OKR progress for a workspace. Without objective_id, lists every objective with "+
				"its progress (mean of its key results). With objective_id, shows that objective "+
				"and each key result's own progress.",
		),
		mcp.WithString("workspace_id",
			mcp.Required(),
			mcp.Description("Workspace UUID"),
		),
		mcp.WithString("objective_id",
			mcp.Description("Drill into one objective"),
		),
		mcp.WithBoolean("include_archived",
			mcp.Description("Include archived objectives in the list (default: false)"),
		),
	)
}

// Handle processes the objective_progress tool call.
func (t *ObjectiveProgressTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, bad := uuidArg(req, "workspace_id")
	if bad != nil {
		return bad, nil
	}

	var b strings.Builder
	if id := strings.TrimSpace(req.GetString("objective_id", "")); id != "" {
		detail, err := t.rollups.GetObjective(ctx, workspaceID, id)
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("objective %q not found", id)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load objective: %v", err)), nil
		}
		writeObjective(&b, detail.ObjectiveRollup)
		if len(detail.KeyResults) == 0 {
			b.WriteString("\nNo key results.\n")
		} else {
			b.WriteString("\n| Key result | Current / Target | Progress | Action maps |\n|---|---|---|---|\n")
			for _, kr := range detail.KeyResults {
				fmt.Fprintf(&b, "| %s | %g / %g %s | %d%% | %d |\n",
					kr.Title, kr.CurrentValue, kr.TargetValue, kr.Unit, kr.ProgressRate, kr.ActionMapCount)
			}
		}
		return mcp.NewToolResultText(b.String()), nil
	}

	objectives, err := t.rollups.ListObjectives(ctx, workspaceID, types.ObjectiveFilter{
		IncludeArchived: boolArg(req, "include_archived", false),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list objectives: %v", err)), nil
	}
	if len(objectives) == 0 {
		return mcp.NewToolResultText("No objectives found."), nil
	}

	fmt.Fprintf(&b, "## Objectives (%d)\n\n", len(objectives))
	for _, o := range objectives {
		writeObjective(&b, o)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func writeObjective(b *strings.Builder, o types.ObjectiveRollup) {
	archived := ""
	if o.Archived {
		archived = " (archived)"
	}
	fmt.Fprintf(b, "- **%s**%s `%s` %s %d%% across %d key results\n",
		o.Title, archived, o.ID, bar(o.ProgressRate), o.ProgressRate, o.KeyResultCount)
}
