// Package client is a typed HTTP client for the Pulse report API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperengineering/pulse/internal/types"
)

// Config holds the client configuration.
type Config struct {
	BaseURL     string        // Pulse service URL, e.g. http://localhost:8080
	APIKey      string        // Bearer token; empty against a dev-mode server
	WorkspaceID string        // Caller workspace UUID
	UserID      string        // Caller user UUID
	Timeout     time.Duration // Per-request timeout (default: 30 seconds)
}

// Client issues authenticated requests on behalf of one caller identity.
type Client struct {
	baseURL     string
	apiKey      string
	workspaceID string
	userID      string
	http        *http.Client
}

// New creates a client. BaseURL, WorkspaceID and UserID are required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("BaseURL is required")
	}
	if cfg.WorkspaceID == "" || cfg.UserID == "" {
		return nil, errors.New("WorkspaceID and UserID are required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		workspaceID: cfg.WorkspaceID,
		userID:      cfg.UserID,
		http:        &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// FieldError is one field-level validation problem reported by the server.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx response decoded from an RFC 7807 problem body.
type APIError struct {
	StatusCode int          `json:"status"`
	Type       string       `json:"type"`
	Title      string       `json:"title"`
	Detail     string       `json:"detail"`
	Errors     []FieldError `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("pulse: %d %s", e.StatusCode, e.Title)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	for _, fe := range e.Errors {
		msg += fmt.Sprintf("; %s %s", fe.Field, fe.Message)
	}
	return msg
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Health calls the public health endpoint. A degraded server returns an
// *APIError with status 503.
func (c *Client) Health(ctx context.Context) (*types.HealthResponse, error) {
	var out types.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ObjectiveQuery filters ListObjectives.
type ObjectiveQuery struct {
	IncludeArchived bool
	Period          string
}

// ListObjectives returns the workspace's objectives with progress.
func (c *Client) ListObjectives(ctx context.Context, q ObjectiveQuery) ([]types.ObjectiveRollup, error) {
	params := url.Values{}
	if q.IncludeArchived {
		params.Set("include_archived", "true")
	}
	if q.Period != "" {
		params.Set("period", q.Period)
	}
	var out []types.ObjectiveRollup
	return out, c.do(ctx, http.MethodGet, "/api/v1/objectives", params, nil, &out)
}

// GetObjective returns one objective and its key results.
func (c *Client) GetObjective(ctx context.Context, id string) (*types.ObjectiveDetail, error) {
	var out types.ObjectiveDetail
	if err := c.do(ctx, http.MethodGet, "/api/v1/objectives/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListKeyResults returns key results, optionally restricted to one objective.
func (c *Client) ListKeyResults(ctx context.Context, objectiveID string) ([]types.KeyResultRollup, error) {
	params := url.Values{}
	if objectiveID != "" {
		params.Set("objective_id", objectiveID)
	}
	var out []types.KeyResultRollup
	return out, c.do(ctx, http.MethodGet, "/api/v1/key-results", params, nil, &out)
}

// GetKeyResult returns one key result and its action maps.
func (c *Client) GetKeyResult(ctx context.Context, id string) (*types.KeyResultDetail, error) {
	var out types.KeyResultDetail
	if err := c.do(ctx, http.MethodGet, "/api/v1/key-results/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListActionMaps returns action maps, optionally restricted to one key result.
func (c *Client) ListActionMaps(ctx context.Context, keyResultID string) ([]types.ActionMapRollup, error) {
	params := url.Values{}
	if keyResultID != "" {
		params.Set("key_result_id", keyResultID)
	}
	var out []types.ActionMapRollup
	return out, c.do(ctx, http.MethodGet, "/api/v1/action-maps", params, nil, &out)
}

// GetActionMap returns one action map and its items.
func (c *Client) GetActionMap(ctx context.Context, id string) (*types.ActionMapDetail, error) {
	var out types.ActionMapDetail
	if err := c.do(ctx, http.MethodGet, "/api/v1/action-maps/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListActionItems returns the items of one action map.
func (c *Client) ListActionItems(ctx context.Context, actionMapID string) ([]types.ActionItemRollup, error) {
	params := url.Values{"action_map_id": {actionMapID}}
	var out []types.ActionItemRollup
	return out, c.do(ctx, http.MethodGet, "/api/v1/action-items", params, nil, &out)
}

// GetActionItem returns one action item and its tasks.
func (c *Client) GetActionItem(ctx context.Context, id string) (*types.ActionItemDetail, error) {
	var out types.ActionItemDetail
	if err := c.do(ctx, http.MethodGet, "/api/v1/action-items/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActivityQuery holds the feed's optional parameters. Zero values are
// omitted from the request.
type ActivityQuery struct {
	Limit        int
	Cursor       string
	CursorID     string
	Action       string
	ResourceType string
	UserID       string
	FromDate     string
	ToDate       string
}

func (q ActivityQuery) values() url.Values {
	params := url.Values{}
	set := func(k, v string) {
		if v != "" {
			params.Set(k, v)
		}
	}
	if q.Limit != 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	set("cursor", q.Cursor)
	set("cursor_id", q.CursorID)
	set("action", q.Action)
	set("resource_type", q.ResourceType)
	set("user_id", q.UserID)
	set("from_date", q.FromDate)
	set("to_date", q.ToDate)
	return params
}

// Activity returns one page of the workspace activity feed.
func (c *Client) Activity(ctx context.Context, q ActivityQuery) (*types.ActivityPage, error) {
	var out types.ActivityPage
	if err := c.do(ctx, http.MethodGet, "/api/v1/activity", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NextActivity returns the query for the page after page, or false when
// page is the last one.
func NextActivity(q ActivityQuery, page *types.ActivityPage) (ActivityQuery, bool) {
	if page == nil || !page.HasMore || page.NextCursor == nil {
		return q, false
	}
	q.Cursor = *page.NextCursor
	q.CursorID = ""
	if page.NextCursorID != nil {
		q.CursorID = *page.NextCursorID
	}
	return q, true
}

// ApproachStats returns the caller's approach statistics.
func (c *Client) ApproachStats(ctx context.Context) (*types.ApproachStats, error) {
	var out types.ApproachStats
	if err := c.do(ctx, http.MethodGet, "/api/v1/approaches/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListGoals returns the caller's approach goals.
func (c *Client) ListGoals(ctx context.Context) ([]types.ApproachGoal, error) {
	var out types.GoalListResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/approaches/goals", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Goals, nil
}

// UpsertGoal creates or replaces the caller's goal for one period.
func (c *Client) UpsertGoal(ctx context.Context, in types.GoalInput) (*types.GoalUpsertResponse, error) {
	var out types.GoalUpsertResponse
	if err := c.do(ctx, http.MethodPut, "/api/v1/approaches/goals", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends an authenticated request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("X-Workspace-ID", c.workspaceID)
	req.Header.Set("X-User-ID", c.userID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Title == "" {
			apiErr.Title = http.StatusText(resp.StatusCode)
			apiErr.Detail = strings.TrimSpace(string(data))
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
