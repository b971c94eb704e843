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

// ActionMapProgressTool handles the action_map_progress MCP tool.
type ActionMapProgressTool struct {
	rollups *rollup.Service
}

// NewActionMapProgressTool creates an ActionMapProgressTool.
func NewActionMapProgressTool(rollups *rollup.Service) *ActionMapProgressTool {
	return &ActionMapProgressTool{rollups: rollups}
}

// Definition returns the MCP tool definition for action_map_progress.
func (t *ActionMapProgressTool) Definition() mcp.Tool {
	return mcp.NewTool("action_map_progress",
		mcp.WithDescription(
			"Show action plan progress. Without action_map_id, lists action maps (optionally only "+
				"those linked to key_result_id) with the share of done items. With action_map_id, "+
				"shows each item and the share of its linked tasks that are done.",
		),
		mcp.WithString("workspace_id",
			mcp.Required(),
			mcp.Description("Workspace UUID"),
		),
		mcp.WithString("action_map_id",
			mcp.Description("Drill into one action map"),
		),
		mcp.WithString("key_result_id",
			mcp.Description("Only list action maps linked to this key result"),
		),
	)
}

// Handle processes the action_map_progress tool call.
func (t *ActionMapProgressTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, bad := uuidArg(req, "workspace_id")
	if bad != nil {
		return bad, nil
	}

	var b strings.Builder
	if id := strings.TrimSpace(req.GetString("action_map_id", "")); id != "" {
		detail, err := t.rollups.GetActionMap(ctx, workspaceID, id)
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("action map %q not found", id)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load action map: %v", err)), nil
		}
		writeActionMap(&b, detail.ActionMapRollup)
		if len(detail.ActionItems) == 0 {
			b.WriteString("\nNo action items.\n")
		} else {
			b.WriteString("\n| # | Item | Status | Tasks done | Progress |\n|---|---|---|---|---|\n")
			for _, item := range detail.ActionItems {
				fmt.Fprintf(&b, "| %d | %s | %s | %d/%d | %d%% |\n",
					item.SortOrder, item.Title, item.Status,
					item.CompletedTaskCount, item.LinkedTaskCount, item.ProgressRate)
			}
		}
		return mcp.NewToolResultText(b.String()), nil
	}

	maps, err := t.rollups.ListActionMaps(ctx, workspaceID, types.ActionMapFilter{
		KeyResultID: strings.TrimSpace(req.GetString("key_result_id", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list action maps: %v", err)), nil
	}
	if len(maps) == 0 {
		return mcp.NewToolResultText("No action maps found."), nil
	}

	fmt.Fprintf(&b, "## Action maps (%d)\n\n", len(maps))
	for _, m := range maps {
		writeActionMap(&b, m)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func writeActionMap(b *strings.Builder, m types.ActionMapRollup) {
	fmt.Fprintf(b, "- **%s** `%s` %s %d%% (%d/%d items done)\n",
		m.Title, m.ID, bar(m.ProgressRate), m.ProgressRate, m.CompletedItemCount, m.ActionItemCount)
}
