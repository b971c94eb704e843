package approach

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hyperengineering/pulse/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApproachStore struct {
	mu      sync.Mutex
	records []types.ApproachRecord
	goals   []types.ApproachGoal
	err     error
	upserts []types.ApproachGoal
}

func (f *fakeApproachStore) ListApproachRecords(_ context.Context, workspaceID, userID string) ([]types.ApproachRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]types.ApproachRecord, 0)
	for _, r := range f.records {
		if r.WorkspaceID == workspaceID && r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeApproachStore) ListApproachGoals(_ context.Context, userID string) ([]types.ApproachGoal, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]types.ApproachGoal, 0)
	for _, g := range f.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeApproachStore) UpsertApproachGoal(_ context.Context, goal types.ApproachGoal) (*types.ApproachGoal, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, goal)
	if f.err != nil {
		return nil, false, f.err
	}
	for i, g := range f.goals {
		if g.UserID == goal.UserID && g.Period == goal.Period && g.Key() == goal.Key() {
			f.goals[i].TargetCount = goal.TargetCount
			stored := f.goals[i]
			return &stored, false, nil
		}
	}
	goal.ID = "goal-" + string(rune('a'+len(f.goals)))
	f.goals = append(f.goals, goal)
	return &goal, true, nil
}

const (
	goalWorkspace = "6f1c2d4e-8a9b-4c3d-9e2f-1a2b3c4d5e6f"
	goalUser      = "9b8a7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

func intp(v int) *int { return &v }

func TestGoalService_UpsertDefaultsToCurrentPeriod(t *testing.T) {
	f := &fakeApproachStore{}
	svc := NewGoalService(f, nil)

	goal, created, err := svc.Upsert(context.Background(), goalWorkspace, goalUser,
		types.GoalInput{Period: "weekly", TargetCount: 12}, statsNow)
	require.NoError(t, err)

	assert.True(t, created)
	assert.Equal(t, 2026, goal.Year)
	assert.Equal(t, 16, goal.WeekOrMonth)
	assert.Equal(t, goalWorkspace, goal.WorkspaceID)
	assert.Equal(t, goalUser, goal.UserID)
}

func TestGoalService_UpsertExplicitKeyReplaces(t *testing.T) {
	f := &fakeApproachStore{}
	svc := NewGoalService(f, nil)
	ctx := context.Background()
	in := types.GoalInput{Period: "monthly", TargetCount: 5, Year: intp(2026), WeekOrMonth: intp(3)}

	first, created, err := svc.Upsert(ctx, goalWorkspace, goalUser, in, statsNow)
	require.NoError(t, err)
	require.True(t, created)

	in.TargetCount = 9
	second, created, err := svc.Upsert(ctx, goalWorkspace, goalUser, in, statsNow)
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 9, second.TargetCount)
	assert.Len(t, f.goals, 1)
}

func TestGoalService_UpsertUsesLocation(t *testing.T) {
	f := &fakeApproachStore{}
	tokyo := time.FixedZone("JST", 9*60*60)
	svc := NewGoalService(f, tokyo)

	// April 30th 20:00 UTC is already May in Tokyo.
	now := time.Date(2026, 4, 30, 20, 0, 0, 0, time.UTC)
	goal, _, err := svc.Upsert(context.Background(), goalWorkspace, goalUser,
		types.GoalInput{Period: "monthly", TargetCount: 3}, now)
	require.NoError(t, err)

	assert.Equal(t, 5, goal.WeekOrMonth)
}

func TestGoalService_UpsertRejectsInvalidInput(t *testing.T) {
	f := &fakeApproachStore{}
	svc := NewGoalService(f, nil)

	_, _, err := svc.Upsert(context.Background(), goalWorkspace, goalUser,
		types.GoalInput{Period: "daily", TargetCount: 0}, statsNow)

	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	require.Len(t, invalid.Errors, 2)
	assert.Equal(t, "period", invalid.Errors[0].Field)
	assert.Equal(t, "target_count", invalid.Errors[1].Field)
	assert.Contains(t, err.Error(), "invalid goal")
	assert.Empty(t, f.upserts, "store never reached")
}

func TestGoalService_UpsertRejectsWeekPastYearEnd(t *testing.T) {
	f := &fakeApproachStore{}
	svc := NewGoalService(f, nil)

	_, _, err := svc.Upsert(context.Background(), goalWorkspace, goalUser,
		types.GoalInput{Period: "weekly", TargetCount: 3, Year: intp(2025), WeekOrMonth: intp(54)}, statsNow)

	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	require.Len(t, invalid.Errors, 1)
	assert.Equal(t, "week_or_month", invalid.Errors[0].Field)
	assert.Contains(t, invalid.Errors[0].Message, "53")
	assert.Empty(t, f.upserts)

	goal, created, err := svc.Upsert(context.Background(), goalWorkspace, goalUser,
		types.GoalInput{Period: "weekly", TargetCount: 3, Year: intp(2028), WeekOrMonth: intp(54)}, statsNow)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 54, goal.WeekOrMonth)
}

func TestGoalService_UpsertWrapsStoreError(t *testing.T) {
	boom := errors.New("disk full")
	svc := NewGoalService(&fakeApproachStore{err: boom}, nil)

	_, _, err := svc.Upsert(context.Background(), goalWorkspace, goalUser,
		types.GoalInput{Period: "weekly", TargetCount: 1}, statsNow)

	assert.ErrorIs(t, err, boom)
}

func TestGoalService_Stats(t *testing.T) {
	success := types.ResultSuccess
	f := &fakeApproachStore{
		records: []types.ApproachRecord{
			{WorkspaceID: goalWorkspace, UserID: goalUser, Type: types.ApproachCall, ResultStatus: &success, CreatedAt: statsNow.Add(-time.Hour)},
			{WorkspaceID: goalWorkspace, UserID: goalUser, Type: types.ApproachEmail, CreatedAt: statsNow.AddDate(0, -2, 0)},
			{WorkspaceID: "other", UserID: goalUser, Type: types.ApproachCall, CreatedAt: statsNow},
		},
		goals: []types.ApproachGoal{
			{UserID: goalUser, Period: types.GoalWeekly, TargetCount: 2, Year: 2026, WeekOrMonth: 16},
		},
	}
	svc := NewGoalService(f, nil)

	stats, err := svc.Stats(context.Background(), goalWorkspace, goalUser, statsNow)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ThisWeek)
	assert.Equal(t, 100, stats.SuccessRate)
	require.NotNil(t, stats.WeeklyAchievementRate)
	assert.Equal(t, 50, *stats.WeeklyAchievementRate)
	assert.Nil(t, stats.MonthlyGoal)
}

func TestGoalService_StatsError(t *testing.T) {
	svc := NewGoalService(&fakeApproachStore{err: errors.New("gone")}, nil)

	_, err := svc.Stats(context.Background(), goalWorkspace, goalUser, statsNow)
	assert.Error(t, err)
}

func TestGoalService_List(t *testing.T) {
	f := &fakeApproachStore{goals: []types.ApproachGoal{{UserID: goalUser}, {UserID: "someone"}}}
	svc := NewGoalService(f, nil)

	goals, err := svc.List(context.Background(), goalUser)
	require.NoError(t, err)
	assert.Len(t, goals, 1)
}
