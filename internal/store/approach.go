package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hyperengineering/pulse/internal/types"
	"github.com/oklog/ulid/v2"
)

// ListApproachRecords returns a user's approach records, newest first.
func (s *SQLStore) ListApproachRecords(ctx context.Context, workspaceID, userID string) ([]types.ApproachRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, user_id, approach_type, result_status, created_at
		FROM approach_records
		WHERE workspace_id = ? AND user_id = ?
		ORDER BY created_at DESC, id DESC`,
		workspaceID, userID)
	if err != nil {
		return nil, fmt.Errorf("list approach records: %w", err)
	}
	defer rows.Close()

	records := make([]types.ApproachRecord, 0)
	for rows.Next() {
		var (
			r            types.ApproachRecord
			approachType string
			resultStatus sql.NullString
			createdAt    string
		)
		if err := rows.Scan(&r.ID, &r.WorkspaceID, &r.UserID, &approachType, &resultStatus, &createdAt); err != nil {
			return nil, fmt.Errorf("scan approach record: %w", err)
		}
		r.Type = types.ApproachType(approachType)
		if resultStatus.Valid {
			rs := types.ResultStatus(resultStatus.String)
			r.ResultStatus = &rs
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

const goalColumns = `id, workspace_id, user_id, goal_period, target_count, goal_year, week_or_month, created_at, updated_at`

// ListApproachGoals returns a user's goals, newest period first.
func (s *SQLStore) ListApproachGoals(ctx context.Context, userID string) ([]types.ApproachGoal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+goalColumns+` FROM approach_goals
		WHERE user_id = ?
		ORDER BY goal_year DESC, week_or_month DESC, goal_period ASC, created_at ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list approach goals: %w", err)
	}
	defer rows.Close()

	goals := make([]types.ApproachGoal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approach goal: %w", err)
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// UpsertApproachGoal replaces the target of the oldest goal with the same
// (user, period, year, week_or_month) key, or inserts a new goal.
func (s *SQLStore) UpsertApproachGoal(ctx context.Context, goal types.ApproachGoal) (*types.ApproachGoal, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()

	row := tx.QueryRowContext(ctx, `
		SELECT `+goalColumns+` FROM approach_goals
		WHERE user_id = ? AND goal_period = ? AND goal_year = ? AND week_or_month = ?
		ORDER BY created_at ASC, id ASC
		LIMIT 1`+s.forUpdate(),
		goal.UserID, string(goal.Period), goal.Year, goal.WeekOrMonth)
	existing, err := scanGoal(row)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("find approach goal: %w", err)
	}

	var (
		stored  types.ApproachGoal
		created bool
		action  string
		details map[string]any
	)

	if existing != nil {
		stored = *existing
		details = map[string]any{
			"period":        string(goal.Period),
			"year":          goal.Year,
			"week_or_month": goal.WeekOrMonth,
			"previous":      existing.TargetCount,
			"target_count":  goal.TargetCount,
		}
		stored.TargetCount = goal.TargetCount
		stored.UpdatedAt = now
		if _, err := tx.ExecContext(ctx,
			`UPDATE approach_goals SET target_count = ?, updated_at = ? WHERE id = ?`,
			stored.TargetCount, formatTime(now), stored.ID); err != nil {
			return nil, false, fmt.Errorf("update approach goal: %w", err)
		}
		action = types.AuditActionUpdate
	} else {
		stored = goal
		stored.ID = ulid.Make().String()
		stored.CreatedAt = now
		stored.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO approach_goals (`+goalColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			stored.ID, stored.WorkspaceID, stored.UserID, string(stored.Period), stored.TargetCount,
			stored.Year, stored.WeekOrMonth, formatTime(now), formatTime(now)); err != nil {
			return nil, false, fmt.Errorf("insert approach goal: %w", err)
		}
		created = true
		action = types.AuditActionCreate
		details = map[string]any{
			"period":        string(goal.Period),
			"year":          goal.Year,
			"week_or_month": goal.WeekOrMonth,
			"target_count":  goal.TargetCount,
		}
	}

	entry := types.AuditLogEntry{
		WorkspaceID:  goal.WorkspaceID,
		UserID:       goal.UserID,
		Action:       action,
		ResourceType: types.AuditResourceApproachGoal,
		ResourceID:   stored.ID,
		Details:      details,
		CreatedAt:    now,
	}
	if err := s.insertAuditLog(ctx, tx, &entry); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit transaction: %w", err)
	}
	return &stored, created, nil
}

func scanGoal(r rowScanner) (*types.ApproachGoal, error) {
	var (
		g                    types.ApproachGoal
		period               string
		createdAt, updatedAt string
	)
	if err := r.Scan(&g.ID, &g.WorkspaceID, &g.UserID, &period, &g.TargetCount, &g.Year,
		&g.WeekOrMonth, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	g.Period = types.GoalPeriod(period)
	var err error
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}
