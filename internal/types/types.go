package types

import (
	"encoding/json"
	"time"
)

// ActionItemStatus is the workflow state of an action item.
type ActionItemStatus string

const (
	ActionItemNotStarted ActionItemStatus = "not_started"
	ActionItemInProgress ActionItemStatus = "in_progress"
	ActionItemBlocked    ActionItemStatus = "blocked"
	ActionItemDone       ActionItemStatus = "done"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not_started"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// Objective is the top of the OKR hierarchy.
type Objective struct {
	ID          string    `json:"id" yaml:"id"`
	WorkspaceID string    `json:"workspace_id" yaml:"workspace_id"`
	Title       string    `json:"title" yaml:"title"`
	Period      string    `json:"period" yaml:"period"`
	Archived    bool      `json:"archived" yaml:"archived"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// KeyResult is a measurable outcome owned by an Objective.
type KeyResult struct {
	ID           string    `json:"id" yaml:"id"`
	WorkspaceID  string    `json:"workspace_id" yaml:"workspace_id"`
	ObjectiveID  string    `json:"objective_id" yaml:"objective_id"`
	Title        string    `json:"title" yaml:"title"`
	TargetValue  float64   `json:"target_value" yaml:"target_value"`
	CurrentValue float64   `json:"current_value" yaml:"current_value"`
	Unit         string    `json:"unit" yaml:"unit"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// ActionMap is an action plan, optionally linked to a KeyResult.
type ActionMap struct {
	ID          string    `json:"id" yaml:"id"`
	WorkspaceID string    `json:"workspace_id" yaml:"workspace_id"`
	Title       string    `json:"title" yaml:"title"`
	KeyResultID *string   `json:"key_result_id" yaml:"key_result_id"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// ActionItem is a step inside an ActionMap.
type ActionItem struct {
	ID          string           `json:"id" yaml:"id"`
	WorkspaceID string           `json:"workspace_id" yaml:"workspace_id"`
	ActionMapID string           `json:"action_map_id" yaml:"action_map_id"`
	Title       string           `json:"title" yaml:"title"`
	Status      ActionItemStatus `json:"status" yaml:"status"`
	Priority    string           `json:"priority" yaml:"priority"`
	SortOrder   int              `json:"sort_order" yaml:"sort_order"`
	CreatedAt   time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" yaml:"updated_at"`
}

// Task is a unit of work, optionally linked to one ActionItem.
type Task struct {
	ID               string     `json:"id" yaml:"id"`
	WorkspaceID      string     `json:"workspace_id" yaml:"workspace_id"`
	Title            string     `json:"title" yaml:"title"`
	Status           TaskStatus `json:"status" yaml:"status"`
	ActionItemID     *string    `json:"action_item_id" yaml:"action_item_id"`
	CalendarOriginID *string    `json:"calendar_origin_id,omitempty" yaml:"calendar_origin_id"`
	CreatedAt        time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" yaml:"updated_at"`
}

// ObjectiveFilter narrows an objective listing.
type ObjectiveFilter struct {
	IncludeArchived bool
	Period          string
}

// ActionMapFilter narrows an action map listing. An empty KeyResultID lists
// every map in the workspace.
type ActionMapFilter struct {
	KeyResultID string
}

// --- Rollup DTOs ---

// ObjectiveRollup is an Objective annotated from its KeyResults.
type ObjectiveRollup struct {
	Objective
	ProgressRate   int `json:"progress_rate"`
	KeyResultCount int `json:"key_result_count"`
}

// ObjectiveDetail adds the annotated key results of one objective.
type ObjectiveDetail struct {
	ObjectiveRollup
	KeyResults []KeyResultRollup `json:"key_results"`
}

// KeyResultRollup is a KeyResult annotated with its own ratio and the number
// of action maps that reference it.
type KeyResultRollup struct {
	KeyResult
	ProgressRate   int `json:"progress_rate"`
	ActionMapCount int `json:"action_map_count"`
}

// KeyResultDetail adds the annotated action maps linked to one key result.
type KeyResultDetail struct {
	KeyResultRollup
	ActionMaps []ActionMapRollup `json:"action_maps"`
}

// ActionMapRollup is an ActionMap annotated from its ActionItems.
type ActionMapRollup struct {
	ActionMap
	ProgressRate       int `json:"progress_rate"`
	ActionItemCount    int `json:"action_item_count"`
	CompletedItemCount int `json:"completed_item_count"`
}

// ActionMapDetail adds the annotated items of one action map.
type ActionMapDetail struct {
	ActionMapRollup
	ActionItems []ActionItemRollup `json:"action_items"`
}

// ActionItemRollup is an ActionItem annotated from its linked Tasks.
type ActionItemRollup struct {
	ActionItem
	ProgressRate       int `json:"progress_rate"`
	LinkedTaskCount    int `json:"linked_task_count"`
	CompletedTaskCount int `json:"completed_task_count"`
}

// ActionItemDetail adds the linked tasks of one action item.
type ActionItemDetail struct {
	ActionItemRollup
	Tasks []Task `json:"tasks"`
}

// --- Audit / activity ---

// User is the identity joined onto activity entries.
type User struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Email     string `json:"email" yaml:"email"`
	AvatarURL string `json:"avatar_url,omitempty" yaml:"avatar_url"`
}

// AuditLogEntry is an immutable record of a mutating operation.
type AuditLogEntry struct {
	ID           string         `json:"id" yaml:"id"`
	WorkspaceID  string         `json:"workspace_id" yaml:"workspace_id"`
	UserID       string         `json:"user_id" yaml:"user_id"`
	Action       string         `json:"action" yaml:"action"`
	ResourceType string         `json:"resource_type" yaml:"resource_type"`
	ResourceID   string         `json:"resource_id" yaml:"resource_id"`
	Details      map[string]any `json:"details" yaml:"details"`
	CreatedAt    time.Time      `json:"created_at" yaml:"created_at"`
}

// Audit actions written by this service.
const (
	AuditActionCreate       = "create"
	AuditActionUpdate       = "update"
	AuditActionDelete       = "delete"
	AuditActionStatusChange = "status_change"
	AuditActionInviteSent   = "invite_sent"
)

// AuditResourceApproachGoal is the resource type recorded for goal upserts.
const AuditResourceApproachGoal = "approach_goal"

// AuditCursor is the keyset position of the last entry a caller has seen.
// An empty ID selects the timestamp-only predicate.
type AuditCursor struct {
	CreatedAt time.Time
	ID        string
}

// AuditPageQuery is the store-level page request for the audit log.
// From and To are inclusive bounds; nil means unbounded.
type AuditPageQuery struct {
	WorkspaceID  string
	Action       string
	ResourceType string
	UserID       string
	From         *time.Time
	To           *time.Time
	Before       *AuditCursor
	Limit        int
}

// ActivityLog is an audit entry enriched with the acting user.
type ActivityLog struct {
	AuditLogEntry
	User *User `json:"user,omitempty"`
}

// ActivityPage is one page of the activity feed.
type ActivityPage struct {
	Logs         []ActivityLog `json:"logs"`
	HasMore      bool          `json:"hasMore"`
	NextCursor   *string       `json:"nextCursor"`
	NextCursorID *string       `json:"nextCursorId"`
}

// MarshalJSON ensures a nil Logs slice marshals as [] not null.
func (p ActivityPage) MarshalJSON() ([]byte, error) {
	if p.Logs == nil {
		p.Logs = []ActivityLog{}
	}
	type Alias ActivityPage
	return json.Marshal(Alias(p))
}

// --- Approaches ---

// ApproachType classifies a sales approach.
type ApproachType string

const (
	ApproachCall    ApproachType = "call"
	ApproachEmail   ApproachType = "email"
	ApproachMeeting ApproachType = "meeting"
	ApproachVisit   ApproachType = "visit"
	ApproachOther   ApproachType = "other"
)

// ApproachTypes lists every histogram bucket in display order.
var ApproachTypes = []ApproachType{ApproachCall, ApproachEmail, ApproachMeeting, ApproachVisit, ApproachOther}

// ResultStatus is the outcome of an approach.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultPending ResultStatus = "pending"
	ResultFailed  ResultStatus = "failed"
)

// ResultStatuses lists every result bucket.
var ResultStatuses = []ResultStatus{ResultSuccess, ResultPending, ResultFailed}

// ApproachRecord is one logged approach. A nil ResultStatus means unclassified.
type ApproachRecord struct {
	ID           string        `json:"id" yaml:"id"`
	WorkspaceID  string        `json:"workspace_id" yaml:"workspace_id"`
	UserID       string        `json:"user_id" yaml:"user_id"`
	Type         ApproachType  `json:"type" yaml:"type"`
	ResultStatus *ResultStatus `json:"result_status" yaml:"result_status"`
	CreatedAt    time.Time     `json:"created_at" yaml:"created_at"`
}

// GoalPeriod is the granularity of an approach goal.
type GoalPeriod string

const (
	GoalWeekly  GoalPeriod = "weekly"
	GoalMonthly GoalPeriod = "monthly"
)

// PeriodKey identifies one week or month of one year.
type PeriodKey struct {
	Year        int `json:"year"`
	WeekOrMonth int `json:"week_or_month"`
}

// ApproachGoal is a user's target count for one period.
type ApproachGoal struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspace_id"`
	UserID      string     `json:"user_id"`
	Period      GoalPeriod `json:"period"`
	TargetCount int        `json:"target_count"`
	Year        int        `json:"year"`
	WeekOrMonth int        `json:"week_or_month"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Key returns the goal's period key.
func (g ApproachGoal) Key() PeriodKey {
	return PeriodKey{Year: g.Year, WeekOrMonth: g.WeekOrMonth}
}

// GoalInput is the upsert payload. Nil Year/WeekOrMonth default to the
// current period.
type GoalInput struct {
	Period      string `json:"period"`
	TargetCount int    `json:"target_count"`
	Year        *int   `json:"year,omitempty"`
	WeekOrMonth *int   `json:"week_or_month,omitempty"`
}

// GoalUpsertResponse reports the stored goal and whether it was created.
type GoalUpsertResponse struct {
	Goal    ApproachGoal `json:"goal"`
	Created bool         `json:"created"`
}

// GoalListResponse wraps a user's goals.
type GoalListResponse struct {
	Goals []ApproachGoal `json:"goals"`
}

// ApproachStats is the aggregate view over a user's approaches.
// Goal fields are nil when no goal exists for the current period.
type ApproachStats struct {
	Total                  int                  `json:"total"`
	ThisMonth              int                  `json:"thisMonth"`
	ThisWeek               int                  `json:"thisWeek"`
	ByType                 map[ApproachType]int `json:"byType"`
	ByResultStatus         map[ResultStatus]int `json:"byResultStatus"`
	SuccessRate            int                  `json:"successRate"`
	WeeklyGoal             *int                 `json:"weeklyGoal"`
	MonthlyGoal            *int                 `json:"monthlyGoal"`
	WeeklyAchievementRate  *int                 `json:"weeklyAchievementRate"`
	MonthlyAchievementRate *int                 `json:"monthlyAchievementRate"`
}

// --- Store bookkeeping ---

// StoreStats holds aggregate row counts for health reporting.
type StoreStats struct {
	Objectives   int64 `json:"objectives"`
	ActionMaps   int64 `json:"action_maps"`
	AuditEntries int64 `json:"audit_entries"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string     `json:"status"`
	Version string     `json:"version"`
	Dialect string     `json:"dialect"`
	Stats   StoreStats `json:"stats"`
}

// Fixture is a bulk load of collaborator-owned rows, used for seeding
// development databases and tests.
type Fixture struct {
	Users      []User           `yaml:"users"`
	Objectives []Objective      `yaml:"objectives"`
	KeyResults []KeyResult      `yaml:"key_results"`
	ActionMaps []ActionMap      `yaml:"action_maps"`
	Items      []ActionItem     `yaml:"action_items"`
	Tasks      []Task           `yaml:"tasks"`
	Approaches []ApproachRecord `yaml:"approaches"`
	AuditLogs  []AuditLogEntry  `yaml:"audit_logs"`
}

// ImportResult counts rows written by a fixture import.
type ImportResult struct {
	Users      int `json:"users"`
	Objectives int `json:"objectives"`
	KeyResults int `json:"key_results"`
	ActionMaps int `json:"action_maps"`
	Items      int `json:"action_items"`
	Tasks      int `json:"tasks"`
	Approaches int `json:"approaches"`
	AuditLogs  int `json:"audit_logs"`
}
