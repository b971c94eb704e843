package rollup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hyperengineering/pulse/internal/store"
	"github.com/hyperengineering/pulse/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ws = "6f1c2d4e-8a9b-4c3d-9e2f-1a2b3c4d5e6f"

// fakeHierarchy is an in-memory store.HierarchyReader. failOn names a parent
// id whose children fetch returns errFetch.
type fakeHierarchy struct {
	objectives []types.Objective
	keyResults []types.KeyResult
	actionMaps []types.ActionMap
	items      []types.ActionItem
	tasks      []types.Task

	failOn string

	mu           sync.Mutex
	childFetches map[string]int
	inFlight     atomic.Int32
	maxInFlight  atomic.Int32
}

var errFetch = errors.New("connection reset")

var _ store.HierarchyReader = (*fakeHierarchy)(nil)

func (f *fakeHierarchy) enter(parentID string) func() {
	f.mu.Lock()
	if f.childFetches == nil {
		f.childFetches = map[string]int{}
	}
	f.childFetches[parentID]++
	f.mu.Unlock()

	n := f.inFlight.Add(1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeHierarchy) fetches(parentID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.childFetches[parentID]
}

func (f *fakeHierarchy) ListObjectives(_ context.Context, _ string, filter types.ObjectiveFilter) ([]types.Objective, error) {
	out := make([]types.Objective, 0)
	for _, o := range f.objectives {
		if o.Archived && !filter.IncludeArchived {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeHierarchy) GetObjective(_ context.Context, _ string, id string) (*types.Objective, error) {
	for _, o := range f.objectives {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, fmt.Errorf("objective %s: %w", id, store.ErrNotFound)
}

func (f *fakeHierarchy) ListKeyResults(_ context.Context, _ string, objectiveID string) ([]types.KeyResult, error) {
	defer f.enter(objectiveID)()
	if objectiveID != "" && objectiveID == f.failOn {
		return nil, errFetch
	}
	out := make([]types.KeyResult, 0)
	for _, kr := range f.keyResults {
		if objectiveID == "" || kr.ObjectiveID == objectiveID {
			out = append(out, kr)
		}
	}
	return out, nil
}

func (f *fakeHierarchy) GetKeyResult(_ context.Context, _ string, id string) (*types.KeyResult, error) {
	for _, kr := range f.keyResults {
		if kr.ID == id {
			return &kr, nil
		}
	}
	return nil, fmt.Errorf("key result %s: %w", id, store.ErrNotFound)
}

func (f *fakeHierarchy) ListActionMaps(_ context.Context, _ string, filter types.ActionMapFilter) ([]types.ActionMap, error) {
	defer f.enter(filter.KeyResultID)()
	if filter.KeyResultID != "" && filter.KeyResultID == f.failOn {
		return nil, errFetch
	}
	out := make([]types.ActionMap, 0)
	for _, m := range f.actionMaps {
		if filter.KeyResultID == "" || (m.KeyResultID != nil && *m.KeyResultID == filter.KeyResultID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeHierarchy) GetActionMap(_ context.Context, _ string, id string) (*types.ActionMap, error) {
	for _, m := range f.actionMaps {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("action map %s: %w", id, store.ErrNotFound)
}

func (f *fakeHierarchy) ListActionItems(_ context.Context, _ string, actionMapID string) ([]types.ActionItem, error) {
	defer f.enter(actionMapID)()
	if actionMapID == f.failOn {
		return nil, errFetch
	}
	out := make([]types.ActionItem, 0)
	for _, item := range f.items {
		if item.ActionMapID == actionMapID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeHierarchy) GetActionItem(_ context.Context, _ string, id string) (*types.ActionItem, error) {
	for _, item := range f.items {
		if item.ID == id {
			return &item, nil
		}
	}
	return nil, fmt.Errorf("action item %s: %w", id, store.ErrNotFound)
}

func (f *fakeHierarchy) ListTasksByActionItem(_ context.Context, _ string, actionItemID string) ([]types.Task, error) {
	defer f.enter(actionItemID)()
	if actionItemID == f.failOn {
		return nil, errFetch
	}
	out := make([]types.Task, 0)
	for _, t := range f.tasks {
		if t.ActionItemID != nil && *t.ActionItemID == actionItemID {
			out = append(out, t)
		}
	}
	return out, nil
}

func strPtr(s string) *string { return &s }

func okrFixture() *fakeHierarchy {
	return &fakeHierarchy{
		objectives: []types.Objective{
			{ID: "obj-1", WorkspaceID: ws, Title: "Grow revenue"},
			{ID: "obj-2", WorkspaceID: ws, Title: "No key results"},
			{ID: "obj-3", WorkspaceID: ws, Title: "Archived", Archived: true},
		},
		keyResults: []types.KeyResult{
			{ID: "kr-1", ObjectiveID: "obj-1", CurrentValue: 50, TargetValue: 100},
			{ID: "kr-2", ObjectiveID: "obj-1", CurrentValue: 3, TargetValue: 5},
			{ID: "kr-3", ObjectiveID: "obj-3", CurrentValue: 9, TargetValue: 0},
		},
		actionMaps: []types.ActionMap{
			{ID: "map-1", KeyResultID: strPtr("kr-1")},
			{ID: "map-2", KeyResultID: strPtr("kr-1")},
			{ID: "map-3"},
		},
		items: []types.ActionItem{
			{ID: "item-1", ActionMapID: "map-1", Status: types.ActionItemDone},
			{ID: "item-2", ActionMapID: "map-1", Status: types.ActionItemNotStarted},
			{ID: "item-3", ActionMapID: "map-1", Status: types.ActionItemNotStarted},
			{ID: "item-4", ActionMapID: "map-2", Status: types.ActionItemBlocked},
		},
		tasks: []types.Task{
			{ID: "task-1", ActionItemID: strPtr("item-1"), Status: types.TaskDone},
			{ID: "task-2", ActionItemID: strPtr("item-1"), Status: types.TaskDone},
			{ID: "task-3", ActionItemID: strPtr("item-2"), Status: types.TaskInProgress},
			{ID: "task-4", Status: types.TaskDone},
		},
	}
}

func TestListObjectives_MeanOfKeyResultRatios(t *testing.T) {
	f := okrFixture()
	svc := NewService(f, 4)

	got, err := svc.ListObjectives(context.Background(), ws, types.ObjectiveFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "obj-1", got[0].ID)
	assert.Equal(t, 55, got[0].ProgressRate)
	assert.Equal(t, 2, got[0].KeyResultCount)

	assert.Equal(t, 0, got[1].ProgressRate, "no key results yields 0")
	assert.Equal(t, 0, got[1].KeyResultCount)

	assert.Equal(t, 1, f.fetches("obj-1"), "exactly one children fetch per parent")
	assert.Equal(t, 0, f.fetches("kr-1"), "list mode does not recurse")
}

func TestListObjectives_ZeroTargetKeyResult(t *testing.T) {
	svc := NewService(okrFixture(), 0)

	got, err := svc.ListObjectives(context.Background(), ws, types.ObjectiveFilter{IncludeArchived: true})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 0, got[2].ProgressRate)
	assert.Equal(t, 1, got[2].KeyResultCount)
}

func TestListObjectives_FailsClosed(t *testing.T) {
	f := okrFixture()
	f.failOn = "obj-2"
	svc := NewService(f, 1)

	got, err := svc.ListObjectives(context.Background(), ws, types.ObjectiveFilter{})
	assert.Nil(t, got)
	assert.ErrorIs(t, err, errFetch)
}

func TestGetObjective_Detail(t *testing.T) {
	svc := NewService(okrFixture(), 2)

	d, err := svc.GetObjective(context.Background(), ws, "obj-1")
	require.NoError(t, err)
	assert.Equal(t, 55, d.ProgressRate)
	require.Len(t, d.KeyResults, 2)
	assert.Equal(t, 50, d.KeyResults[0].ProgressRate)
	assert.Equal(t, 2, d.KeyResults[0].ActionMapCount)
	assert.Equal(t, 60, d.KeyResults[1].ProgressRate)
	assert.Equal(t, 0, d.KeyResults[1].ActionMapCount)
}

func TestGetObjective_NotFound(t *testing.T) {
	svc := NewService(okrFixture(), 2)

	_, err := svc.GetObjective(context.Background(), ws, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListKeyResults(t *testing.T) {
	svc := NewService(okrFixture(), 2)
	ctx := context.Background()

	krs, err := svc.ListKeyResults(ctx, ws, "obj-1")
	require.NoError(t, err)
	require.Len(t, krs, 2)
	assert.Equal(t, 50, krs[0].ProgressRate)

	all, err := svc.ListKeyResults(ctx, ws, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = svc.ListKeyResults(ctx, ws, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetKeyResult_LinkedActionMaps(t *testing.T) {
	svc := NewService(okrFixture(), 2)

	d, err := svc.GetKeyResult(context.Background(), ws, "kr-1")
	require.NoError(t, err)
	assert.Equal(t, 50, d.ProgressRate)
	assert.Equal(t, 2, d.ActionMapCount)
	require.Len(t, d.ActionMaps, 2)
	assert.Equal(t, 33, d.ActionMaps[0].ProgressRate)
	assert.Equal(t, 0, d.ActionMaps[1].ProgressRate)
}

func TestListActionMaps_OneThirdDone(t *testing.T) {
	svc := NewService(okrFixture(), 2)

	maps, err := svc.ListActionMaps(context.Background(), ws, types.ActionMapFilter{})
	require.NoError(t, err)
	require.Len(t, maps, 3)

	assert.Equal(t, 33, maps[0].ProgressRate)
	assert.Equal(t, 3, maps[0].ActionItemCount)
	assert.Equal(t, 1, maps[0].CompletedItemCount)

	assert.Equal(t, 0, maps[2].ProgressRate, "no items yields 0")
	assert.Equal(t, 0, maps[2].ActionItemCount)
}

func TestListActionMaps_FailsClosed(t *testing.T) {
	f := okrFixture()
	f.failOn = "map-3"
	svc := NewService(f, 8)

	_, err := svc.ListActionMaps(context.Background(), ws, types.ActionMapFilter{})
	assert.ErrorIs(t, err, errFetch)
}

func TestGetActionMap_Detail(t *testing.T) {
	svc := NewService(okrFixture(), 2)

	d, err := svc.GetActionMap(context.Background(), ws, "map-1")
	require.NoError(t, err)
	assert.Equal(t, 33, d.ProgressRate)
	require.Len(t, d.ActionItems, 3)
	assert.Equal(t, 100, d.ActionItems[0].ProgressRate)
	assert.Equal(t, 0, d.ActionItems[1].ProgressRate)
	assert.Equal(t, 1, d.ActionItems[1].LinkedTaskCount)
	assert.Equal(t, 0, d.ActionItems[2].LinkedTaskCount)
}

func TestListActionItems_RequiresExistingMap(t *testing.T) {
	svc := NewService(okrFixture(), 2)

	_, err := svc.ListActionItems(context.Background(), ws, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetActionItem_TwoDoneTasks(t *testing.T) {
	svc := NewService(okrFixture(), 2)

	d, err := svc.GetActionItem(context.Background(), ws, "item-1")
	require.NoError(t, err)
	assert.Equal(t, 100, d.ProgressRate)
	assert.Equal(t, 2, d.LinkedTaskCount)
	assert.Equal(t, 2, d.CompletedTaskCount)
	assert.Len(t, d.Tasks, 2)
}

func TestGetActionItem_ChildFetchFailure(t *testing.T) {
	f := okrFixture()
	f.failOn = "item-1"
	svc := NewService(f, 2)

	_, err := svc.GetActionItem(context.Background(), ws, "item-1")
	assert.ErrorIs(t, err, errFetch)
}

func TestBatch_RespectsConcurrencyLimitAndOrder(t *testing.T) {
	f := &fakeHierarchy{}
	for i := 0; i < 40; i++ {
		f.items = append(f.items, types.ActionItem{ID: fmt.Sprintf("item-%02d", i), ActionMapID: "map"})
	}
	f.actionMaps = []types.ActionMap{{ID: "map"}}
	svc := NewService(f, 3)

	got, err := svc.ListActionItems(context.Background(), ws, "map")
	require.NoError(t, err)
	require.Len(t, got, 40)
	for i, item := range got {
		assert.Equal(t, fmt.Sprintf("item-%02d", i), item.ID)
	}
	assert.LessOrEqual(t, f.maxInFlight.Load(), int32(3))
}

func TestBatch_EmptyListIsNotNil(t *testing.T) {
	svc := NewService(&fakeHierarchy{}, 2)

	got, err := svc.ListObjectives(context.Background(), ws, types.ObjectiveFilter{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
