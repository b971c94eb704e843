package mcptools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hyperengineering/pulse/internal/activity"
)

// ActivityFeedTool handles the activity_feed MCP tool.
type ActivityFeedTool struct {
	feed  *activity.Service
	dates *activity.DateParser
	now   func() time.Time
}

// NewActivityFeedTool creates an ActivityFeedTool.
func NewActivityFeedTool(feed *activity.Service, dates *activity.DateParser) *ActivityFeedTool {
	return &ActivityFeedTool{feed: feed, dates: dates, now: time.Now}
}

// Definition returns the MCP tool definition for activity_feed.
func (t *ActivityFeedTool) Definition() mcp.Tool {
	return mcp.NewTool("activity_feed",
		mcp.WithDescription(
			"Show recent workspace activity, newest first. To page, pass the cursor and cursor_id "+
				"printed at the end of the previous result. Dates accept YYYY-MM-DD, RFC 3339, or "+
				"phrases like 'yesterday' or '3 days ago'.",
		),
		mcp.WithString("workspace_id",
			mcp.Required(),
			mcp.Description("Workspace UUID"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Entries per page (default: %d, max: %d)", t.feed.DefaultLimit(), t.feed.MaxLimit())),
		),
		mcp.WithString("cursor", mcp.Description("Timestamp cursor from a previous page")),
		mcp.WithString("cursor_id", mcp.Description("Entry id cursor from a previous page")),
		mcp.WithString("action", mcp.Description("Only this action, e.g. create, update, status_change")),
		mcp.WithString("resource_type", mcp.Description("Only this resource type, e.g. task, objective")),
		mcp.WithString("user_id", mcp.Description("Only entries by this user UUID")),
		mcp.WithString("from_date", mcp.Description("Earliest date (inclusive)")),
		mcp.WithString("to_date", mcp.Description("Latest date (inclusive)")),
	)
}

// Handle processes the activity_feed tool call.
func (t *ActivityFeedTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, bad := uuidArg(req, "workspace_id")
	if bad != nil {
		return bad, nil
	}

	params := activity.Params{
		Cursor:       req.GetString("cursor", ""),
		CursorID:     req.GetString("cursor_id", ""),
		Action:       req.GetString("action", ""),
		ResourceType: req.GetString("resource_type", ""),
		UserID:       req.GetString("user_id", ""),
		FromDate:     req.GetString("from_date", ""),
		ToDate:       req.GetString("to_date", ""),
		Limit:        numberArg(req, "limit"),
	}

	request, errs := t.feed.ParseRequest(params, t.dates, t.now())
	if len(errs) > 0 {
		return fieldErrors(errs), nil
	}

	page := t.feed.Query(ctx, workspaceID, request)
	if len(page.Logs) == 0 {
		return mcp.NewToolResultText("No activity found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Activity (%d)\n\n", len(page.Logs))
	for _, l := range page.Logs {
		who := l.UserID
		if l.User != nil && l.User.Name != "" {
			who = l.User.Name
		}
		fmt.Fprintf(&b, "- %s **%s** %s %s `%s`\n",
			l.CreatedAt.UTC().Format(time.RFC3339), who, l.Action, l.ResourceType, l.ResourceID)
	}
	if page.HasMore && page.NextCursor != nil && page.NextCursorID != nil {
		fmt.Fprintf(&b, "\nMore entries available: cursor=%s cursor_id=%s\n", *page.NextCursor, *page.NextCursorID)
	}
	return mcp.NewToolResultText(b.String()), nil
}
