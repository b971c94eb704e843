// Package activity serves the reverse-chronological audit feed.
package activity

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyperengineering/pulse/internal/store"
	"github.com/hyperengineering/pulse/internal/types"
)

// Page size bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Filter narrows the feed. Zero values mean "no constraint"; From and To are
// inclusive.
type Filter struct {
	Action       string
	ResourceType string
	UserID       string
	From         *time.Time
	To           *time.Time
}

// Request is one validated feed query.
type Request struct {
	Filter
	Cursor *types.AuditCursor
	Limit  int
}

// Service queries the audit log and joins acting users onto entries.
type Service struct {
	store        store.AuditReader
	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
}

// NewService creates a feed service. Non-positive limits fall back to
// DefaultLimit and MaxLimit.
func NewService(s store.AuditReader, defaultLimit, maxLimit int) *Service {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		store:        s,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       slog.Default().With("component", "activity"),
	}
}

// DefaultLimit returns the page size used when a request omits limit.
func (s *Service) DefaultLimit() int { return s.defaultLimit }

// MaxLimit returns the largest page size served.
func (s *Service) MaxLimit() int { return s.maxLimit }

// Query returns one page of the feed. It never fails: a page fetch error
// yields an empty page and a user lookup error yields entries without user
// details. Both are logged.
func (s *Service) Query(ctx context.Context, workspaceID string, req Request) types.ActivityPage {
	start := time.Now()

	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	entries, err := s.store.FetchAuditPage(ctx, types.AuditPageQuery{
		WorkspaceID:  workspaceID,
		Action:       req.Action,
		ResourceType: req.ResourceType,
		UserID:       req.UserID,
		From:         req.From,
		To:           req.To,
		Before:       req.Cursor,
		Limit:        limit + 1,
	})
	if err != nil {
		s.logger.Warn("activity page fetch failed, returning empty page",
			"workspace_id", workspaceID,
			"error", err,
		)
		return types.ActivityPage{Logs: []types.ActivityLog{}}
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}

	users := s.lookupUsers(ctx, workspaceID, entries)

	logs := make([]types.ActivityLog, len(entries))
	for i, e := range entries {
		logs[i] = types.ActivityLog{AuditLogEntry: e}
		if u, ok := users[e.UserID]; ok {
			logs[i].User = &u
		}
	}

	page := types.ActivityPage{Logs: logs, HasMore: hasMore}
	if hasMore {
		last := entries[len(entries)-1]
		cursor := FormatCursor(last.CreatedAt)
		id := last.ID
		page.NextCursor = &cursor
		page.NextCursorID = &id
	}

	s.logger.Debug("activity page served",
		"workspace_id", workspaceID,
		"count", len(logs),
		"has_more", hasMore,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return page
}

// lookupUsers resolves the page's distinct acting users in one call.
func (s *Service) lookupUsers(ctx context.Context, workspaceID string, entries []types.AuditLogEntry) map[string]types.User {
	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.UserID == "" {
			continue
		}
		if _, ok := seen[e.UserID]; ok {
			continue
		}
		seen[e.UserID] = struct{}{}
		ids = append(ids, e.UserID)
	}
	if len(ids) == 0 {
		return nil
	}

	users, err := s.store.LookupUsers(ctx, ids)
	if err != nil {
		s.logger.Warn("activity user lookup failed, returning entries without users",
			"workspace_id", workspaceID,
			"users", len(ids),
			"error", err,
		)
		return nil
	}
	return users
}

// FormatCursor renders a created_at value as a feed cursor.
func FormatCursor(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
