package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperengineering/pulse/internal/types"
)

const objectiveColumns = `id, workspace_id, title, period_label, archived, created_at, updated_at`

// ListObjectives returns the workspace's objectives, newest first.
func (s *SQLStore) ListObjectives(ctx context.Context, workspaceID string, filter types.ObjectiveFilter) ([]types.Objective, error) {
	where := []string{"workspace_id = ?"}
	args := []any{workspaceID}
	if !filter.IncludeArchived {
		where = append(where, "archived = 0")
	}
	if filter.Period != "" {
		where = append(where, "period_label = ?")
		args = append(args, filter.Period)
	}

	query := `SELECT ` + objectiveColumns + ` FROM objectives WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list objectives: %w", err)
	}
	defer rows.Close()

	objectives := make([]types.Objective, 0)
	for rows.Next() {
		o, err := scanObjective(rows)
		if err != nil {
			return nil, fmt.Errorf("scan objective: %w", err)
		}
		objectives = append(objectives, *o)
	}
	return objectives, rows.Err()
}

// GetObjective returns one objective or ErrNotFound.
func (s *SQLStore) GetObjective(ctx context.Context, workspaceID, id string) (*types.Objective, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+objectiveColumns+` FROM objectives WHERE workspace_id = ? AND id = ?`,
		workspaceID, id)
	o, err := scanObjective(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("objective %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get objective: %w", err)
	}
	return o, nil
}

func scanObjective(r rowScanner) (*types.Objective, error) {
	var (
		o                    types.Objective
		archived             int
		createdAt, updatedAt string
	)
	if err := r.Scan(&o.ID, &o.WorkspaceID, &o.Title, &o.Period, &archived, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	o.Archived = archived != 0
	var err error
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

const keyResultColumns = `id, workspace_id, objective_id, title, target_value, current_value, unit, created_at, updated_at`

// ListKeyResults returns key results in creation order.
func (s *SQLStore) ListKeyResults(ctx context.Context, workspaceID, objectiveID string) ([]types.KeyResult, error) {
	query := `SELECT ` + keyResultColumns + ` FROM key_results WHERE workspace_id = ?`
	args := []any{workspaceID}
	if objectiveID != "" {
		query += ` AND objective_id = ?`
		args = append(args, objectiveID)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list key results: %w", err)
	}
	defer rows.Close()

	results := make([]types.KeyResult, 0)
	for rows.Next() {
		kr, err := scanKeyResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan key result: %w", err)
		}
		results = append(results, *kr)
	}
	return results, rows.Err()
}

// GetKeyResult returns one key result or ErrNotFound.
func (s *SQLStore) GetKeyResult(ctx context.Context, workspaceID, id string) (*types.KeyResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+keyResultColumns+` FROM key_results WHERE workspace_id = ? AND id = ?`,
		workspaceID, id)
	kr, err := scanKeyResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("key result %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get key result: %w", err)
	}
	return kr, nil
}

func scanKeyResult(r rowScanner) (*types.KeyResult, error) {
	var (
		kr                   types.KeyResult
		createdAt, updatedAt string
	)
	if err := r.Scan(&kr.ID, &kr.WorkspaceID, &kr.ObjectiveID, &kr.Title, &kr.TargetValue,
		&kr.CurrentValue, &kr.Unit, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if kr.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if kr.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &kr, nil
}

const actionMapColumns = `id, workspace_id, title, key_result_id, created_at, updated_at`

// ListActionMaps returns action maps, newest first.
func (s *SQLStore) ListActionMaps(ctx context.Context, workspaceID string, filter types.ActionMapFilter) ([]types.ActionMap, error) {
	query := `SELECT ` + actionMapColumns + ` FROM action_maps WHERE workspace_id = ?`
	args := []any{workspaceID}
	if filter.KeyResultID != "" {
		query += ` AND key_result_id = ?`
		args = append(args, filter.KeyResultID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list action maps: %w", err)
	}
	defer rows.Close()

	maps := make([]types.ActionMap, 0)
	for rows.Next() {
		m, err := scanActionMap(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action map: %w", err)
		}
		maps = append(maps, *m)
	}
	return maps, rows.Err()
}

// GetActionMap returns one action map or ErrNotFound.
func (s *SQLStore) GetActionMap(ctx context.Context, workspaceID, id string) (*types.ActionMap, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+actionMapColumns+` FROM action_maps WHERE workspace_id = ? AND id = ?`,
		workspaceID, id)
	m, err := scanActionMap(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("action map %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get action map: %w", err)
	}
	return m, nil
}

func scanActionMap(r rowScanner) (*types.ActionMap, error) {
	var (
		m                    types.ActionMap
		keyResultID          sql.NullString
		createdAt, updatedAt string
	)
	if err := r.Scan(&m.ID, &m.WorkspaceID, &m.Title, &keyResultID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	m.KeyResultID = stringPtr(keyResultID)
	var err error
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

const actionItemColumns = `id, workspace_id, action_map_id, title, status, priority, sort_order, created_at, updated_at`

// ListActionItems returns the items of one action map in display order.
func (s *SQLStore) ListActionItems(ctx context.Context, workspaceID, actionMapID string) ([]types.ActionItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+actionItemColumns+` FROM action_items
		WHERE workspace_id = ? AND action_map_id = ?
		ORDER BY sort_order ASC, created_at ASC, id ASC`,
		workspaceID, actionMapID)
	if err != nil {
		return nil, fmt.Errorf("list action items: %w", err)
	}
	defer rows.Close()

	items := make([]types.ActionItem, 0)
	for rows.Next() {
		item, err := scanActionItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetActionItem returns one action item or ErrNotFound.
func (s *SQLStore) GetActionItem(ctx context.Context, workspaceID, id string) (*types.ActionItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+actionItemColumns+` FROM action_items WHERE workspace_id = ? AND id = ?`,
		workspaceID, id)
	item, err := scanActionItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("action item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get action item: %w", err)
	}
	return item, nil
}

func scanActionItem(r rowScanner) (*types.ActionItem, error) {
	var (
		item                 types.ActionItem
		status               string
		createdAt, updatedAt string
	)
	if err := r.Scan(&item.ID, &item.WorkspaceID, &item.ActionMapID, &item.Title, &status,
		&item.Priority, &item.SortOrder, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	item.Status = types.ActionItemStatus(status)
	var err error
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}

const taskColumns = `id, workspace_id, title, status, action_item_id, calendar_origin_id, created_at, updated_at`

// ListTasksByActionItem returns the tasks linked to one action item.
func (s *SQLStore) ListTasksByActionItem(ctx context.Context, workspaceID, actionItemID string) ([]types.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks
		WHERE workspace_id = ? AND action_item_id = ?
		ORDER BY created_at ASC, id ASC`,
		workspaceID, actionItemID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]types.Task, 0)
	for rows.Next() {
		var (
			t                    types.Task
			status               string
			itemID, originID     sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&t.ID, &t.WorkspaceID, &t.Title, &status, &itemID, &originID,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Status = types.TaskStatus(status)
		t.ActionItemID = stringPtr(itemID)
		t.CalendarOriginID = stringPtr(originID)
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
