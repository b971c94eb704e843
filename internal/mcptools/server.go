package mcptools

import (
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hyperengineering/pulse/internal/activity"
	"github.com/hyperengineering/pulse/internal/approach"
	"github.com/hyperengineering/pulse/internal/rollup"
	"github.com/hyperengineering/pulse/internal/store"
)

// Options tunes the services behind the tools.
type Options struct {
	Version        string
	MaxConcurrency int
	DefaultLimit   int
	MaxLimit       int
	Location       *time.Location
}

// NewServer creates the MCP server with every report tool registered
// against s.
func NewServer(s store.Store, opts Options) *server.MCPServer {
	rollups := rollup.NewService(s, opts.MaxConcurrency)
	feed := activity.NewService(s, opts.DefaultLimit, opts.MaxLimit)

	srv := server.NewMCPServer(
		"pulse",
		opts.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(
			"Read-only progress reports for OKRs, action plans, workspace activity, and sales approaches. "+
				"Every tool needs the caller's workspace_id (a UUID).",
		),
	)

	objectives := NewObjectiveProgressTool(rollups)
	srv.AddTool(objectives.Definition(), objectives.Handle)

	actionMaps := NewActionMapProgressTool(rollups)
	srv.AddTool(actionMaps.Definition(), actionMaps.Handle)

	feedTool := NewActivityFeedTool(feed, activity.NewDateParser(opts.Location))
	srv.AddTool(feedTool.Definition(), feedTool.Handle)

	stats := NewApproachStatsTool(approach.NewGoalService(s, opts.Location))
	srv.AddTool(stats.Definition(), stats.Handle)

	return srv
}
