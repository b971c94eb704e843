package mcptools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hyperengineering/pulse/internal/approach"
	"github.com/hyperengineering/pulse/internal/types"
)

// ApproachStatsTool handles the approach_stats MCP tool.
type ApproachStatsTool struct {
	goals *approach.GoalService
	now   func() time.Time
}

// NewApproachStatsTool creates an ApproachStatsTool.
func NewApproachStatsTool(goals *approach.GoalService) *ApproachStatsTool {
	return &ApproachStatsTool{goals: goals, now: time.Now}
}

// Definition returns the MCP tool definition for approach_stats.
func (t *ApproachStatsTool) Definition() mcp.Tool {
	return mcp.NewTool("approach_stats",
		mcp.WithDescription(
			"Show a user's sales approach statistics: totals this week and month, counts by type "+
				"and result, success rate, and progress against weekly and monthly goals.",
		),
		mcp.WithString("workspace_id",
			mcp.Required(),
			mcp.Description("Workspace UUID"),
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("User UUID"),
		),
	)
}

// Handle processes the approach_stats tool call.
func (t *ApproachStatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, bad := uuidArg(req, "workspace_id")
	if bad != nil {
		return bad, nil
	}
	userID, bad := uuidArg(req, "user_id")
	if bad != nil {
		return bad, nil
	}

	stats, err := t.goals.Stats(ctx, workspaceID, userID, t.now())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to compute stats: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString("## Approach Statistics\n\n")
	fmt.Fprintf(&b, "- **Total**: %d\n", stats.Total)
	fmt.Fprintf(&b, "- **This week**: %d%s\n", stats.ThisWeek, goalSuffix(stats.WeeklyGoal, stats.WeeklyAchievementRate))
	fmt.Fprintf(&b, "- **This month**: %d%s\n", stats.ThisMonth, goalSuffix(stats.MonthlyGoal, stats.MonthlyAchievementRate))
	fmt.Fprintf(&b, "- **Success rate**: %d%%\n", stats.SuccessRate)

	b.WriteString("- **By type**:")
	for _, at := range types.ApproachTypes {
		fmt.Fprintf(&b, " %s=%d", at, stats.ByType[at])
	}
	b.WriteString("\n- **By result**:")
	for _, rs := range types.ResultStatuses {
		fmt.Fprintf(&b, " %s=%d", rs, stats.ByResultStatus[rs])
	}
	b.WriteString("\n")

	return mcp.NewToolResultText(b.String()), nil
}

func goalSuffix(goal, rate *int) string {
	if goal == nil || rate == nil {
		return " (no goal set)"
	}
	return fmt.Sprintf(" of %d goal, %d%%", *goal, *rate)
}
