package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/pulse/internal/activity"
	"github.com/hyperengineering/pulse/internal/approach"
	"github.com/hyperengineering/pulse/internal/rollup"
	"github.com/hyperengineering/pulse/internal/store"
	"github.com/hyperengineering/pulse/internal/types"
	"github.com/hyperengineering/pulse/internal/validation"
)

// maxBodyBytes bounds request bodies; goal payloads are tiny.
const maxBodyBytes = 64 << 10

// HandlerConfig carries the tunables the handlers pass to their services.
type HandlerConfig struct {
	APIKey         string
	Version        string
	MaxConcurrency int
	DefaultLimit   int
	MaxLimit       int
	// Location is the report time zone. Nil means UTC.
	Location *time.Location
}

// Handler implements the API handlers
type Handler struct {
	store   store.Store
	rollups *rollup.Service
	feed    *activity.Service
	dates   *activity.DateParser
	goals   *approach.GoalService
	apiKey  string
	version string
	now     func() time.Time
}

// NewHandler creates a new Handler over s.
func NewHandler(s store.Store, cfg HandlerConfig) *Handler {
	return &Handler{
		store:   s,
		rollups: rollup.NewService(s, cfg.MaxConcurrency),
		feed:    activity.NewService(s, cfg.DefaultLimit, cfg.MaxLimit),
		dates:   activity.NewDateParser(cfg.Location),
		goals:   approach.NewGoalService(s, cfg.Location),
		apiKey:  cfg.APIKey,
		version: cfg.Version,
		now:     time.Now,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		slog.Error("health check failed", "component", "api", "error", err)
		WriteProblem(w, r, http.StatusServiceUnavailable, "Store unavailable")
		return
	}
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:  "healthy",
		Version: h.version,
		Dialect: h.store.Dialect(),
		Stats:   *stats,
	})
}

// ListObjectives handles GET /api/v1/objectives
func (h *Handler) ListObjectives(w http.ResponseWriter, r *http.Request) {
	id := MustIdentityFromContext(r.Context())
	q := r.URL.Query()

	var (
		c      validation.Collector
		filter types.ObjectiveFilter
	)
	if v := q.Get("include_archived"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.Add(&validation.ValidationError{Field: "include_archived", Message: "must be true or false"})
		}
		filter.IncludeArchived = b
	}
	if v := q.Get("period"); v != "" {
		c.Add(validation.ValidateIdentifier("period", v))
		filter.Period = v
	}
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", c.Errors())
		return
	}

	objectives, err := h.rollups.ListObjectives(r.Context(), id.WorkspaceID, filter)
	if err != nil {
		h.logFailure(r, "list_objectives", id, err)
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, objectives)
}

// GetObjective handles GET /api/v1/objectives/{id}
func (h *Handler) GetObjective(w http.ResponseWriter, r *http.Request) {
	id := MustIdentityFromContext(r.Context())

	detail, err := h.rollups.GetObjective(r.Context(), id.WorkspaceID, chi.URLParam(r, "id"))
	if err != nil {
		h.logFailure(r, "get_objective", id, err)
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// ListKeyResults handles GET /api/v1/key-results
func (h *Handler) ListKeyResults(w http.ResponseWriter, r *http.Request) {
	id := MustIdentityFromContext(r.Context())

	krs, err := h.rollups.ListKeyResults(r.Context(), id.WorkspaceID, r.URL.Query().Get("objective_id"))
	if err != nil {
		h.logFailure(r, "list_key_results", id, err)
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, krs)
}

// GetKeyResult handles GET /api/v1/key-results/{id}
func (h *Handler) GetKeyResult(w http.ResponseWriter, r *http.Request) {
	id := MustIdentityFromContext(r.Context())

	detail, err := h.rollups.GetKeyResult(r.Context(), id.WorkspaceID, chi.URLParam(r, "id"))
	if err != nil {
		h.logFailure(r, "get_key_result", id, err)
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// ListActionMaps handles GET /api/v1/action-maps
func (h *Handler) ListActionMaps(w http.ResponseWriter, r *http.Request) {
	id := MustIdentityFromContext(r.Context())
	filter := types.ActionMapFilter{KeyResultID: r.URL.Query().Get("key_result_id")}

	maps, err := h.rollups.ListActionMaps(r.Context(), id.WorkspaceID, filter)
	if err != nil {
		h.logFailure(r, "list_action_maps", id, err)
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, maps)
}

// GetActionMap handles GET /api/v1/action-maps/{id}
func (h *Handler) GetActionMap(w http.ResponseWriter, r *http.Request) {
	id := MustIdentityFromContext(r.Context())

	detail, err := h.rollups.GetActionMap(r.Context(), id.WorkspaceID, chi.URLParam(r, "id"))
	if err != nil {
		h.logFailure(r, "get_action_map", id, err)
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// ListActionItems handles GET /api/v1/action-items
func (h *Handler) ListActionItems(w http.ResponseWriter, r *http.Request) {
	id := MustIdentityFromContext(r.Context())
	mapID := r.URL.Query().Get("action_map_id")
	if err := validation.ValidateRequired("action_map_id", mapID); err != nil {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", []validation.ValidationError{*err})
		return
	}

	items, err := h.rollups.ListActionItems(r.Context(), id.WorkspaceID, mapID)
	if err != nil {
		h.logFailure(r, "list_action_items", id, err)
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetActionItem handles GET /api/v1/action-items/{id}
func (h *Handler) GetActionItem(w http.ResponseWriter, r *http.Request) {
	id := MustIdentityFromContext(r.Context())

	detail, err := h.rollups.GetActionItem(r.Context(), id.WorkspaceID, chi.URLParam(r, "id"))
	if err != nil {
		h.logFailure(r, "get_action_item", id, err)
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Activity handles GET /api/v1/activity. Store failures degrade to an empty
// page; only malformed parameters produce an error response.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := MustIdentityFromContext(r.Context())
	q := r.URL.Query()

	req, errs := h.feed.ParseRequest(activity.Params{
		Limit:        q.Get("limit"),
		Cursor:       q.Get("cursor"),
		CursorID:     q.Get("cursor_id"),
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
		UserID:       q.Get("user_id"),
		FromDate:     q.Get("from_date"),
		ToDate:       q.Get("to_date"),
	}, h.dates, h.now())
	if len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	page := h.feed.Query(r.Context(), id.WorkspaceID, req)
	writeJSON(w, http.StatusOK, page)

	slog.Debug("activity served",
		"component", "api",
		"action", "activity",
		"workspace_id", id.WorkspaceID,
		"limit", req.Limit,
		"entries_returned", len(page.Logs),
		"has_more", page.HasMore,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// ApproachStats handles GET /api/v1/approaches/stats
func (h *Handler) ApproachStats(w http.ResponseWriter, r *http.Request) {
	id := MustIdentityFromContext(r.Context())

	stats, err := h.goals.Stats(r.Context(), id.WorkspaceID, id.UserID, h.now())
	if err != nil {
		h.logFailure(r, "approach_stats", id, err)
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListGoals handles GET /api/v1/approaches/goals
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	id := MustIdentityFromContext(r.Context())

	goals, err := h.goals.List(r.Context(), id.UserID)
	if err != nil {
		h.logFailure(r, "list_goals", id, err)
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.GoalListResponse{Goals: goals})
}

// UpsertGoal handles PUT /api/v1/approaches/goals. Responds 201 when a goal
// was created and 200 when an existing one was replaced.
func (h *Handler) UpsertGoal(w http.ResponseWriter, r *http.Request) {
	id := MustIdentityFromContext(r.Context())

	var in types.GoalInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}
	in.Period = strings.TrimSpace(in.Period)

	goal, created, err := h.goals.Upsert(r.Context(), id.WorkspaceID, id.UserID, in, h.now())
	if err != nil {
		h.logFailure(r, "upsert_goal", id, err)
		MapStoreError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, types.GoalUpsertResponse{Goal: *goal, Created: created})
}

// logFailure records a failed request. Not-found and validation outcomes are
// expected and logged at debug.
func (h *Handler) logFailure(r *http.Request, action string, id Identity, err error) {
	level := slog.LevelError
	var invalid *approach.InvalidInputError
	if errors.Is(err, store.ErrNotFound) || errors.As(err, &invalid) {
		level = slog.LevelDebug
	}
	slog.Log(r.Context(), level, "request failed",
		"component", "api",
		"action", action,
		"workspace_id", id.WorkspaceID,
		"path", r.URL.Path,
		"error", err,
	)
}
