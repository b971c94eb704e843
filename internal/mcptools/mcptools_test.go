package mcptools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperengineering/pulse/internal/activity"
	"github.com/hyperengineering/pulse/internal/approach"
	"github.com/hyperengineering/pulse/internal/rollup"
	"github.com/hyperengineering/pulse/internal/store"
	"github.com/hyperengineering/pulse/internal/types"
)

const (
	testWorkspace = "6f1c2d4e-8a9b-4c3d-9e2f-1a2b3c4d5e6f"
	testUser      = "9b8a7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

// Wednesday of week 16.
var testNow = time.Date(2026, 4, 15, 15, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func fixedNow() time.Time { return testNow }

func newTestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "pulse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	success := types.ResultSuccess
	_, err = s.ImportFixture(context.Background(), types.Fixture{
		Users: []types.User{{ID: testUser, Name: "Ada", Email: "ada@example.com"}},
		Objectives: []types.Objective{
			{ID: "obj-1", WorkspaceID: testWorkspace, Title: "Grow revenue", Period: "2026-Q2", CreatedAt: base},
			{ID: "obj-2", WorkspaceID: testWorkspace, Title: "Old", Archived: true, CreatedAt: base},
		},
		KeyResults: []types.KeyResult{
			{ID: "kr-1", WorkspaceID: testWorkspace, ObjectiveID: "obj-1", Title: "Deals", TargetValue: 100, CurrentValue: 30, CreatedAt: base},
			{ID: "kr-2", WorkspaceID: testWorkspace, ObjectiveID: "obj-1", Title: "NPS", TargetValue: 100, CurrentValue: 80, CreatedAt: base.Add(time.Minute)},
		},
		ActionMaps: []types.ActionMap{
			{ID: "map-1", WorkspaceID: testWorkspace, Title: "Outreach", KeyResultID: ptr("kr-1"), CreatedAt: base},
		},
		Items: []types.ActionItem{
			{ID: "item-1", WorkspaceID: testWorkspace, ActionMapID: "map-1", Title: "List", Status: types.ActionItemDone, SortOrder: 1},
			{ID: "item-2", WorkspaceID: testWorkspace, ActionMapID: "map-1", Title: "Call", SortOrder: 2},
		},
		Approaches: []types.ApproachRecord{
			{WorkspaceID: testWorkspace, UserID: testUser, Type: types.ApproachCall, ResultStatus: &success, CreatedAt: testNow.Add(-time.Hour)},
			{WorkspaceID: testWorkspace, UserID: testUser, Type: types.ApproachEmail, CreatedAt: testNow.Add(-2 * time.Hour)},
		},
		AuditLogs: []types.AuditLogEntry{
			{WorkspaceID: testWorkspace, UserID: testUser, Action: types.AuditActionCreate, ResourceType: "objective", ResourceID: "obj-1", CreatedAt: base},
			{WorkspaceID: testWorkspace, UserID: testUser, Action: types.AuditActionCreate, ResourceType: "task", ResourceID: "task-1", CreatedAt: base.Add(time.Hour)},
			{WorkspaceID: testWorkspace, UserID: testUser, Action: types.AuditActionStatusChange, ResourceType: "task", ResourceID: "task-1", CreatedAt: base.Add(2 * time.Hour)},
		},
	})
	require.NoError(t, err)
	return s
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func call(t *testing.T, handle func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := handle(context.Background(), makeReq(args))
	require.NoError(t, err, "tool failures are reported in the result")
	require.NotNil(t, res)
	return res
}

func TestBar(t *testing.T) {
	assert.Equal(t, "[..........]", bar(0))
	assert.Equal(t, "[#####.....]", bar(55))
	assert.Equal(t, "[##########]", bar(100))
	assert.Equal(t, "[##########]", bar(150))
	assert.Equal(t, "[..........]", bar(-5))
}

func TestTools_RequireWorkspaceUUID(t *testing.T) {
	s := newTestStore(t)
	rollups := rollup.NewService(s, 4)
	feed := activity.NewService(s, 20, 100)

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"objective_progress":  NewObjectiveProgressTool(rollups).Handle,
		"action_map_progress": NewActionMapProgressTool(rollups).Handle,
		"activity_feed":       NewActivityFeedTool(feed, activity.NewDateParser(nil)).Handle,
		"approach_stats":      NewApproachStatsTool(approach.NewGoalService(s, nil)).Handle,
	}
	for name, handle := range handlers {
		t.Run(name, func(t *testing.T) {
			res := call(t, handle, map[string]any{})
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(res), "'workspace_id' is required")

			res = call(t, handle, map[string]any{"workspace_id": "acme"})
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(res), "workspace_id")
		})
	}
}

func TestObjectiveProgressTool_Definition(t *testing.T) {
	def := NewObjectiveProgressTool(nil).Definition()

	assert.Equal(t, "objective_progress", def.Name)
	assert.Contains(t, def.InputSchema.Properties, "objective_id")
	assert.Contains(t, def.InputSchema.Properties, "include_archived")
	assert.Equal(t, []string{"workspace_id"}, def.InputSchema.Required)
}

func TestObjectiveProgressTool_List(t *testing.T) {
	tool := NewObjectiveProgressTool(rollup.NewService(newTestStore(t), 4))

	res := call(t, tool.Handle, map[string]any{"workspace_id": testWorkspace})
	require.False(t, res.IsError, resultText(res))
	text := resultText(res)
	assert.Contains(t, text, "## Objectives (1)")
	assert.Contains(t, text, "**Grow revenue**")
	assert.Contains(t, text, "[#####.....] 55% across 2 key results")
	assert.NotContains(t, text, "Old")

	res = call(t, tool.Handle, map[string]any{"workspace_id": testWorkspace, "include_archived": true})
	assert.Contains(t, resultText(res), "**Old** (archived)")
}

func TestObjectiveProgressTool_Detail(t *testing.T) {
	tool := NewObjectiveProgressTool(rollup.NewService(newTestStore(t), 4))

	res := call(t, tool.Handle, map[string]any{"workspace_id": testWorkspace, "objective_id": "obj-1"})
	require.False(t, res.IsError, resultText(res))
	text := resultText(res)
	assert.Contains(t, text, "| Deals | 30 / 100")
	assert.Contains(t, text, "| 30% | 1 |")
	assert.Contains(t, text, "| NPS | 80 / 100")

	res = call(t, tool.Handle, map[string]any{"workspace_id": testWorkspace, "objective_id": "obj-404"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "not found")
}

func TestObjectiveProgressTool_Empty(t *testing.T) {
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	tool := NewObjectiveProgressTool(rollup.NewService(s, 4))

	res := call(t, tool.Handle, map[string]any{"workspace_id": testWorkspace})

	assert.False(t, res.IsError)
	assert.Equal(t, "No objectives found.", resultText(res))
}

func TestObjectiveProgressTool_StoreFailure(t *testing.T) {
	s := newTestStore(t)
	tool := NewObjectiveProgressTool(rollup.NewService(s, 4))
	require.NoError(t, s.Close())

	res := call(t, tool.Handle, map[string]any{"workspace_id": testWorkspace})

	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "failed to list objectives")
}

func TestActionMapProgressTool(t *testing.T) {
	tool := NewActionMapProgressTool(rollup.NewService(newTestStore(t), 4))

	res := call(t, tool.Handle, map[string]any{"workspace_id": testWorkspace})
	require.False(t, res.IsError, resultText(res))
	assert.Contains(t, resultText(res), "**Outreach** `map-1` [#####.....] 50% (1/2 items done)")

	res = call(t, tool.Handle, map[string]any{"workspace_id": testWorkspace, "key_result_id": "kr-2"})
	assert.Equal(t, "No action maps found.", resultText(res))

	res = call(t, tool.Handle, map[string]any{"workspace_id": testWorkspace, "action_map_id": "map-1"})
	require.False(t, res.IsError, resultText(res))
	text := resultText(res)
	assert.Contains(t, text, "| 1 | List | done |")
	assert.Contains(t, text, "| 2 | Call |")

	res = call(t, tool.Handle, map[string]any{"workspace_id": testWorkspace, "action_map_id": "map-404"})
	assert.True(t, res.IsError)
}

func TestActivityFeedTool_Pages(t *testing.T) {
	tool := NewActivityFeedTool(activity.NewService(newTestStore(t), 20, 100), activity.NewDateParser(nil))
	tool.now = fixedNow

	res := call(t, tool.Handle, map[string]any{"workspace_id": testWorkspace, "limit": float64(2)})
	require.False(t, res.IsError, resultText(res))
	text := resultText(res)
	assert.Contains(t, text, "## Activity (2)")
	assert.Contains(t, text, "**Ada** status_change task `task-1`")
	assert.Contains(t, text, "More entries available: cursor=2026-04-01T10:00:00Z")

	res = call(t, tool.Handle, map[string]any{
		"workspace_id": testWorkspace,
		"limit":        float64(2),
		"cursor":       "2026-04-01T10:00:00Z",
	})
	text = resultText(res)
	assert.Contains(t, text, "## Activity (1)")
	assert.Contains(t, text, "create objective `obj-1`")
	assert.NotContains(t, text, "More entries")
}

func TestActivityFeedTool_Filters(t *testing.T) {
	tool := NewActivityFeedTool(activity.NewService(newTestStore(t), 20, 100), activity.NewDateParser(nil))
	tool.now = fixedNow

	res := call(t, tool.Handle, map[string]any{"workspace_id": testWorkspace, "resource_type": "objective"})
	assert.Contains(t, resultText(res), "## Activity (1)")

	res = call(t, tool.Handle, map[string]any{"workspace_id": testWorkspace, "from_date": "yesterday"})
	assert.Equal(t, "No activity found.", resultText(res))
}

func TestActivityFeedTool_InvalidArguments(t *testing.T) {
	tool := NewActivityFeedTool(activity.NewService(newTestStore(t), 20, 100), activity.NewDateParser(nil))
	tool.now = fixedNow

	res := call(t, tool.Handle, map[string]any{
		"workspace_id": testWorkspace,
		"limit":        float64(-1),
		"user_id":      "bob",
	})

	assert.True(t, res.IsError)
	text := resultText(res)
	assert.Contains(t, text, "- limit:")
	assert.Contains(t, text, "- user_id:")
}

func TestActivityFeedTool_ZeroLimitRejected(t *testing.T) {
	tool := NewActivityFeedTool(activity.NewService(newTestStore(t), 20, 100), activity.NewDateParser(nil))
	tool.now = fixedNow

	res := call(t, tool.Handle, map[string]any{"workspace_id": testWorkspace, "limit": float64(0)})

	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "- limit:")
}

func TestApproachStatsTool(t *testing.T) {
	s := newTestStore(t)
	goals := approach.NewGoalService(s, nil)
	tool := NewApproachStatsTool(goals)
	tool.now = fixedNow

	res := call(t, tool.Handle, map[string]any{"workspace_id": testWorkspace})
	assert.True(t, res.IsError, "user_id is required")

	res = call(t, tool.Handle, map[string]any{"workspace_id": testWorkspace, "user_id": testUser})
	require.False(t, res.IsError, resultText(res))
	text := resultText(res)
	assert.Contains(t, text, "- **Total**: 2")
	assert.Contains(t, text, "- **This week**: 2 (no goal set)")
	assert.Contains(t, text, "- **Success rate**: 100%")
	assert.Contains(t, text, "call=1 email=1 meeting=0 visit=0 other=0")

	_, _, err := goals.Upsert(context.Background(), testWorkspace, testUser, types.GoalInput{Period: "weekly", TargetCount: 4}, testNow)
	require.NoError(t, err)

	res = call(t, tool.Handle, map[string]any{"workspace_id": testWorkspace, "user_id": testUser})
	assert.Contains(t, resultText(res), "- **This week**: 2 of 4 goal, 50%")
}

func TestNewServer_RegistersTools(t *testing.T) {
	srv := NewServer(newTestStore(t), Options{Version: "test", MaxConcurrency: 2, DefaultLimit: 20, MaxLimit: 100})

	resp := srv.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	for _, name := range []string{"objective_progress", "action_map_progress", "activity_feed", "approach_stats"} {
		assert.Contains(t, string(data), `"`+name+`"`)
	}
}
