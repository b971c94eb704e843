package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperengineering/pulse/internal/types"
	"github.com/oklog/ulid/v2"
)

// FetchAuditPage reads one keyset page of the audit log. A cursor without an
// id selects rows strictly older than its timestamp; with an id, rows sharing
// the timestamp but ordered after the id are included as well.
func (s *SQLStore) FetchAuditPage(ctx context.Context, q types.AuditPageQuery) ([]types.AuditLogEntry, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("fetch audit page: limit must be positive, got %d", q.Limit)
	}

	where := []string{"workspace_id = ?"}
	args := []any{q.WorkspaceID}

	if q.Action != "" {
		where = append(where, "action = ?")
		args = append(args, q.Action)
	}
	if q.ResourceType != "" {
		where = append(where, "resource_type = ?")
		args = append(args, q.ResourceType)
	}
	if q.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, q.UserID)
	}
	if q.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, formatTime(*q.From))
	}
	if q.To != nil {
		where = append(where, "created_at <= ?")
		args = append(args, formatTime(*q.To))
	}
	if c := q.Before; c != nil {
		ts := formatTime(c.CreatedAt)
		if c.ID == "" {
			where = append(where, "created_at < ?")
			args = append(args, ts)
		} else {
			where = append(where, "(created_at < ? OR (created_at = ? AND id < ?))")
			args = append(args, ts, ts, c.ID)
		}
	}

	query := `SELECT id, workspace_id, user_id, action, resource_type, resource_id, details, created_at
		FROM audit_logs WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC, id DESC
		LIMIT ?`
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch audit page: %w", err)
	}
	defer rows.Close()

	entries := make([]types.AuditLogEntry, 0, q.Limit)
	for rows.Next() {
		var (
			e                  types.AuditLogEntry
			details, createdAt string
		)
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &e.UserID, &e.Action, &e.ResourceType,
			&e.ResourceID, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		e.Details = map[string]any{}
		if details != "" {
			if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
				return nil, fmt.Errorf("decode details of %s: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LookupUsers resolves a batch of user ids. Unknown ids are absent from the
// result.
func (s *SQLStore) LookupUsers(ctx context.Context, ids []string) (map[string]types.User, error) {
	users := make(map[string]types.User, len(ids))

	seen := make(map[string]struct{}, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		args = append(args, id)
	}
	if len(args) == 0 {
		return users, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, display_name, email, avatar_url FROM users WHERE id IN (`+placeholders(len(args))+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("lookup users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u types.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[u.ID] = u
	}
	return users, rows.Err()
}

// AppendAuditLog writes one audit entry, assigning an id and timestamp when
// absent.
func (s *SQLStore) AppendAuditLog(ctx context.Context, entry types.AuditLogEntry) (*types.AuditLogEntry, error) {
	if err := s.insertAuditLog(ctx, s.db, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *SQLStore) insertAuditLog(ctx context.Context, ex execer, entry *types.AuditLogEntry) error {
	if entry.ID == "" {
		entry.ID = ulid.Make().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if entry.Details == nil {
		entry.Details = map[string]any{}
	}

	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO audit_logs (id, workspace_id, user_id, action, resource_type, resource_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.WorkspaceID, entry.UserID, entry.Action, entry.ResourceType,
		entry.ResourceID, string(details), formatTime(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
