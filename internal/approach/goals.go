package approach

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hyperengineering/pulse/internal/store"
	"github.com/hyperengineering/pulse/internal/types"
	"github.com/hyperengineering/pulse/internal/validation"
)

// InvalidInputError carries field-level problems with a goal payload.
type InvalidInputError struct {
	Errors []validation.ValidationError
}

func (e *InvalidInputError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + " " + fe.Message
	}
	return "invalid goal: " + strings.Join(parts, "; ")
}

// GoalService upserts approach goals and computes stats against them.
type GoalService struct {
	store  store.ApproachStore
	loc    *time.Location
	logger *slog.Logger
}

// NewGoalService creates a goal service whose periods are evaluated in loc.
// A nil loc means UTC.
func NewGoalService(s store.ApproachStore, loc *time.Location) *GoalService {
	if loc == nil {
		loc = time.UTC
	}
	return &GoalService{
		store:  s,
		loc:    loc,
		logger: slog.Default().With("component", "approach"),
	}
}

// Upsert validates in, fills a missing year or week_or_month from the period
// containing now, and stores the goal. An existing goal with the same
// (user, period, year, week_or_month) is updated in place.
func (g *GoalService) Upsert(ctx context.Context, workspaceID, userID string, in types.GoalInput, now time.Time) (*types.ApproachGoal, bool, error) {
	if errs := validation.ValidateGoalInput(in); len(errs) > 0 {
		return nil, false, &InvalidInputError{Errors: errs}
	}

	period := types.GoalPeriod(in.Period)
	key := PeriodKey(period, now.In(g.loc))
	if in.Year != nil {
		key.Year = *in.Year
	}
	if in.WeekOrMonth != nil {
		key.WeekOrMonth = *in.WeekOrMonth
	}
	if period == types.GoalWeekly {
		if last := WeeksInYear(key.Year); key.WeekOrMonth > last {
			return nil, false, &InvalidInputError{Errors: []validation.ValidationError{{
				Field:   "week_or_month",
				Message: fmt.Sprintf("%d has only %d weeks", key.Year, last),
			}}}
		}
	}

	goal, created, err := g.store.UpsertApproachGoal(ctx, types.ApproachGoal{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Period:      period,
		TargetCount: in.TargetCount,
		Year:        key.Year,
		WeekOrMonth: key.WeekOrMonth,
	})
	if err != nil {
		return nil, false, fmt.Errorf("upsert goal: %w", err)
	}

	action := types.AuditActionUpdate
	if created {
		action = types.AuditActionCreate
	}
	g.logger.Info("approach goal stored",
		"action", action,
		"workspace_id", workspaceID,
		"goal_id", goal.ID,
		"period", string(period),
		"year", key.Year,
		"week_or_month", key.WeekOrMonth,
	)
	return goal, created, nil
}

// List returns the user's goals, newest period first.
func (g *GoalService) List(ctx context.Context, userID string) ([]types.ApproachGoal, error) {
	goals, err := g.store.ListApproachGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

// Stats loads the user's records and goals and aggregates them as of now in
// the service's time zone.
func (g *GoalService) Stats(ctx context.Context, workspaceID, userID string, now time.Time) (*types.ApproachStats, error) {
	records, err := g.store.ListApproachRecords(ctx, workspaceID, userID)
	if err != nil {
		return nil, fmt.Errorf("list approach records: %w", err)
	}
	goals, err := g.store.ListApproachGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	stats := Compute(records, goals, now.In(g.loc))
	return &stats, nil
}
