package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hyperengineering/pulse/internal/types"
	"github.com/oklog/ulid/v2"
)

// ImportFixture writes a bulk load of collaborator-owned rows in one
// transaction. Missing ids are generated and missing timestamps default to
// the import time. Parents must precede children within the fixture.
func (s *SQLStore) ImportFixture(ctx context.Context, f types.Fixture) (*types.ImportResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	stamp := func(t time.Time) string {
		if t.IsZero() {
			return formatTime(now)
		}
		return formatTime(t)
	}
	var result types.ImportResult

	for _, u := range f.Users {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, display_name, email, avatar_url) VALUES (?, ?, ?, ?)`,
			u.ID, u.Name, u.Email, u.AvatarURL); err != nil {
			return nil, fmt.Errorf("insert user %s: %w", u.ID, err)
		}
		result.Users++
	}

	for _, o := range f.Objectives {
		archived := 0
		if o.Archived {
			archived = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO objectives (`+objectiveColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			orNewID(o.ID), o.WorkspaceID, o.Title, o.Period, archived,
			stamp(o.CreatedAt), stamp(o.UpdatedAt)); err != nil {
			return nil, fmt.Errorf("insert objective %q: %w", o.Title, err)
		}
		result.Objectives++
	}

	for _, kr := range f.KeyResults {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO key_results (`+keyResultColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			orNewID(kr.ID), kr.WorkspaceID, kr.ObjectiveID, kr.Title, kr.TargetValue, kr.CurrentValue,
			kr.Unit, stamp(kr.CreatedAt), stamp(kr.UpdatedAt)); err != nil {
			return nil, fmt.Errorf("insert key result %q: %w", kr.Title, err)
		}
		result.KeyResults++
	}

	for _, m := range f.ActionMaps {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO action_maps (`+actionMapColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			orNewID(m.ID), m.WorkspaceID, m.Title, nullString(m.KeyResultID),
			stamp(m.CreatedAt), stamp(m.UpdatedAt)); err != nil {
			return nil, fmt.Errorf("insert action map %q: %w", m.Title, err)
		}
		result.ActionMaps++
	}

	for _, item := range f.Items {
		status := item.Status
		if status == "" {
			status = types.ActionItemNotStarted
		}
		priority := item.Priority
		if priority == "" {
			priority = "medium"
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO action_items (`+actionItemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			orNewID(item.ID), item.WorkspaceID, item.ActionMapID, item.Title, string(status), priority,
			item.SortOrder, stamp(item.CreatedAt), stamp(item.UpdatedAt)); err != nil {
			return nil, fmt.Errorf("insert action item %q: %w", item.Title, err)
		}
		result.Items++
	}

	for _, t := range f.Tasks {
		status := t.Status
		if status == "" {
			status = types.TaskNotStarted
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			orNewID(t.ID), t.WorkspaceID, t.Title, string(status), nullString(t.ActionItemID),
			nullString(t.CalendarOriginID), stamp(t.CreatedAt), stamp(t.UpdatedAt)); err != nil {
			return nil, fmt.Errorf("insert task %q: %w", t.Title, err)
		}
		result.Tasks++
	}

	for _, r := range f.Approaches {
		var status sql.NullString
		if r.ResultStatus != nil {
			status = sql.NullString{String: string(*r.ResultStatus), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO approach_records (id, workspace_id, user_id, approach_type, result_status, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			orNewID(r.ID), r.WorkspaceID, r.UserID, string(r.Type), status, stamp(r.CreatedAt)); err != nil {
			return nil, fmt.Errorf("insert approach record: %w", err)
		}
		result.Approaches++
	}

	for _, e := range f.AuditLogs {
		entry := e
		if err := s.insertAuditLog(ctx, tx, &entry); err != nil {
			return nil, err
		}
		result.AuditLogs++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &result, nil
}

func orNewID(id string) string {
	if id == "" {
		return ulid.Make().String()
	}
	return id
}
