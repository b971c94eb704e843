package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hyperengineering/pulse/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListApproachRecords(t *testing.T) {
	s := newTestStore(t)
	success := types.ResultSuccess
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	seed(t, s, types.Fixture{Approaches: []types.ApproachRecord{
		{WorkspaceID: testWorkspace, UserID: testUser, Type: types.ApproachCall, ResultStatus: &success, CreatedAt: base},
		{WorkspaceID: testWorkspace, UserID: testUser, Type: types.ApproachEmail, CreatedAt: base.Add(time.Hour)},
		{WorkspaceID: testWorkspace, UserID: "other-user", Type: types.ApproachVisit, CreatedAt: base},
	}})

	records, err := s.ListApproachRecords(context.Background(), testWorkspace, testUser)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, types.ApproachEmail, records[0].Type)
	assert.Nil(t, records[0].ResultStatus)
	require.NotNil(t, records[1].ResultStatus)
	assert.Equal(t, types.ResultSuccess, *records[1].ResultStatus)
}

func weeklyGoal(target int) types.ApproachGoal {
	return types.ApproachGoal{
		WorkspaceID: testWorkspace,
		UserID:      testUser,
		Period:      types.GoalWeekly,
		TargetCount: target,
		Year:        2026,
		WeekOrMonth: 16,
	}
}

func TestUpsertApproachGoal_CreateThenReplace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, created, err := s.UpsertApproachGoal(ctx, weeklyGoal(10))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first.ID)

	second, created, err := s.UpsertApproachGoal(ctx, weeklyGoal(25))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID, "replaced in place")
	assert.Equal(t, 25, second.TargetCount)

	goals, err := s.ListApproachGoals(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, 25, goals[0].TargetCount)

	page, err := s.FetchAuditPage(ctx, types.AuditPageQuery{
		WorkspaceID:  testWorkspace,
		ResourceType: types.AuditResourceApproachGoal,
		Limit:        10,
	})
	require.NoError(t, err)
	require.Len(t, page, 2)
	actions := []string{page[0].Action, page[1].Action}
	assert.ElementsMatch(t, []string{types.AuditActionCreate, types.AuditActionUpdate}, actions)
	for _, e := range page {
		assert.Equal(t, first.ID, e.ResourceID)
	}
}

func TestUpsertApproachGoal_DistinctKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.UpsertApproachGoal(ctx, weeklyGoal(10))
	require.NoError(t, err)

	monthly := weeklyGoal(40)
	monthly.Period = types.GoalMonthly
	monthly.WeekOrMonth = 4
	_, created, err := s.UpsertApproachGoal(ctx, monthly)
	require.NoError(t, err)
	assert.True(t, created)

	nextWeek := weeklyGoal(12)
	nextWeek.WeekOrMonth = 17
	_, created, err = s.UpsertApproachGoal(ctx, nextWeek)
	require.NoError(t, err)
	assert.True(t, created)

	goals, err := s.ListApproachGoals(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, goals, 3)
	assert.Equal(t, 17, goals[0].WeekOrMonth, "newest period first")
}

func TestUpsertApproachGoal_ConcurrentWritersKeepOneRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(target int) {
			defer wg.Done()
			_, _, err := s.UpsertApproachGoal(ctx, weeklyGoal(target))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	goals, err := s.ListApproachGoals(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, goals, 1)
}
