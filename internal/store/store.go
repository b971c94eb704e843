package store

import (
	"context"

	"github.com/hyperengineering/pulse/internal/types"
)

// HierarchyReader fetches the OKR and action-plan rows that rollups are
// computed from. Every list returns the complete child set for its parent.
type HierarchyReader interface {
	ListObjectives(ctx context.Context, workspaceID string, filter types.ObjectiveFilter) ([]types.Objective, error)
	GetObjective(ctx context.Context, workspaceID, id string) (*types.Objective, error)
	// ListKeyResults lists the key results of one objective, or of the whole
	// workspace when objectiveID is empty.
	ListKeyResults(ctx context.Context, workspaceID, objectiveID string) ([]types.KeyResult, error)
	GetKeyResult(ctx context.Context, workspaceID, id string) (*types.KeyResult, error)
	ListActionMaps(ctx context.Context, workspaceID string, filter types.ActionMapFilter) ([]types.ActionMap, error)
	GetActionMap(ctx context.Context, workspaceID, id string) (*types.ActionMap, error)
	ListActionItems(ctx context.Context, workspaceID, actionMapID string) ([]types.ActionItem, error)
	GetActionItem(ctx context.Context, workspaceID, id string) (*types.ActionItem, error)
	ListTasksByActionItem(ctx context.Context, workspaceID, actionItemID string) ([]types.Task, error)
}

// AuditReader serves the activity feed.
type AuditReader interface {
	// FetchAuditPage returns up to q.Limit entries ordered by created_at DESC, id DESC.
	FetchAuditPage(ctx context.Context, q types.AuditPageQuery) ([]types.AuditLogEntry, error)
	// LookupUsers resolves ids in one query. An empty id set returns an
	// empty map without touching the database.
	LookupUsers(ctx context.Context, ids []string) (map[string]types.User, error)
}

// ApproachStore reads approach records and maintains approach goals.
type ApproachStore interface {
	ListApproachRecords(ctx context.Context, workspaceID, userID string) ([]types.ApproachRecord, error)
	ListApproachGoals(ctx context.Context, userID string) ([]types.ApproachGoal, error)
	// UpsertApproachGoal replaces the goal sharing goal's period key in place,
	// or inserts a new one, and appends the matching audit entry in the same
	// transaction. The bool reports whether a row was created.
	UpsertApproachGoal(ctx context.Context, goal types.ApproachGoal) (*types.ApproachGoal, bool, error)
}

// Store defines the interface contract for all persistence operations.
type Store interface {
	HierarchyReader
	AuditReader
	ApproachStore
	AppendAuditLog(ctx context.Context, entry types.AuditLogEntry) (*types.AuditLogEntry, error)
	ImportFixture(ctx context.Context, f types.Fixture) (*types.ImportResult, error)
	GetStats(ctx context.Context) (*types.StoreStats, error)
	Ping(ctx context.Context) error
	Dialect() string
	Close() error
}
