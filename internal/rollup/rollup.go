// Package rollup decorates OKR and action-plan rows with progress computed
// from their direct children at read time. Nothing is cached or persisted.
//
// List operations fetch each parent's children exactly once and never recurse
// further; detail operations additionally annotate the children one level
// down. Any children fetch failure fails the whole call.
package rollup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyperengineering/pulse/internal/progress"
	"github.com/hyperengineering/pulse/internal/store"
	"github.com/hyperengineering/pulse/internal/types"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrency bounds per-parent fetches in list mode.
const DefaultMaxConcurrency = 8

// Service computes hierarchy rollups over a store.HierarchyReader.
type Service struct {
	store          store.HierarchyReader
	maxConcurrency int
	logger         *slog.Logger
}

// NewService creates a rollup service. A non-positive maxConcurrency uses
// DefaultMaxConcurrency.
func NewService(s store.HierarchyReader, maxConcurrency int) *Service {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Service{
		store:          s,
		maxConcurrency: maxConcurrency,
		logger:         slog.Default().With("component", "rollup"),
	}
}

// forEach runs fn for every index with bounded concurrency. The first error
// cancels the remaining calls.
func (s *Service) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	return g.Wait()
}

func (s *Service) logBatch(action, workspaceID string, n int, start time.Time) {
	s.logger.Debug("rollup computed",
		"action", action,
		"workspace_id", workspaceID,
		"parents", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// --- Objectives ---

// ListObjectives annotates each objective with the mean of its key results'
// progress.
func (s *Service) ListObjectives(ctx context.Context, workspaceID string, filter types.ObjectiveFilter) ([]types.ObjectiveRollup, error) {
	start := time.Now()
	objectives, err := s.store.ListObjectives(ctx, workspaceID, filter)
	if err != nil {
		return nil, fmt.Errorf("list objectives: %w", err)
	}

	out := make([]types.ObjectiveRollup, len(objectives))
	err = s.forEach(ctx, len(objectives), func(ctx context.Context, i int) error {
		krs, err := s.store.ListKeyResults(ctx, workspaceID, objectives[i].ID)
		if err != nil {
			return fmt.Errorf("key results of objective %s: %w", objectives[i].ID, err)
		}
		out[i] = objectiveRollup(objectives[i], krs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logBatch("list_objectives", workspaceID, len(out), start)
	return out, nil
}

// GetObjective returns one objective with its key results, each carrying its
// own ratio and linked action map count.
func (s *Service) GetObjective(ctx context.Context, workspaceID, id string) (*types.ObjectiveDetail, error) {
	o, err := s.store.GetObjective(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}

	krs, err := s.store.ListKeyResults(ctx, workspaceID, o.ID)
	if err != nil {
		return nil, fmt.Errorf("key results of objective %s: %w", o.ID, err)
	}

	annotated, err := s.annotateKeyResults(ctx, workspaceID, krs)
	if err != nil {
		return nil, err
	}

	return &types.ObjectiveDetail{
		ObjectiveRollup: objectiveRollup(*o, krs),
		KeyResults:      annotated,
	}, nil
}

func objectiveRollup(o types.Objective, krs []types.KeyResult) types.ObjectiveRollup {
	rates := make([]int, len(krs))
	for i, kr := range krs {
		rates[i] = progress.Ratio(kr.CurrentValue, kr.TargetValue)
	}
	return types.ObjectiveRollup{
		Objective:      o,
		ProgressRate:   progress.Mean(rates),
		KeyResultCount: len(krs),
	}
}

// --- Key results ---

// ListKeyResults annotates key results of one objective (or of the whole
// workspace when objectiveID is empty).
func (s *Service) ListKeyResults(ctx context.Context, workspaceID, objectiveID string) ([]types.KeyResultRollup, error) {
	start := time.Now()
	if objectiveID != "" {
		if _, err := s.store.GetObjective(ctx, workspaceID, objectiveID); err != nil {
			return nil, err
		}
	}

	krs, err := s.store.ListKeyResults(ctx, workspaceID, objectiveID)
	if err != nil {
		return nil, fmt.Errorf("list key results: %w", err)
	}

	out, err := s.annotateKeyResults(ctx, workspaceID, krs)
	if err != nil {
		return nil, err
	}
	s.logBatch("list_key_results", workspaceID, len(out), start)
	return out, nil
}

// GetKeyResult returns one key result with the action maps linked to it.
func (s *Service) GetKeyResult(ctx context.Context, workspaceID, id string) (*types.KeyResultDetail, error) {
	kr, err := s.store.GetKeyResult(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}

	maps, err := s.store.ListActionMaps(ctx, workspaceID, types.ActionMapFilter{KeyResultID: kr.ID})
	if err != nil {
		return nil, fmt.Errorf("action maps of key result %s: %w", kr.ID, err)
	}

	annotated, err := s.annotateActionMaps(ctx, workspaceID, maps)
	if err != nil {
		return nil, err
	}

	return &types.KeyResultDetail{
		KeyResultRollup: types.KeyResultRollup{
			KeyResult:      *kr,
			ProgressRate:   progress.Ratio(kr.CurrentValue, kr.TargetValue),
			ActionMapCount: len(maps),
		},
		ActionMaps: annotated,
	}, nil
}

func (s *Service) annotateKeyResults(ctx context.Context, workspaceID string, krs []types.KeyResult) ([]types.KeyResultRollup, error) {
	out := make([]types.KeyResultRollup, len(krs))
	err := s.forEach(ctx, len(krs), func(ctx context.Context, i int) error {
		maps, err := s.store.ListActionMaps(ctx, workspaceID, types.ActionMapFilter{KeyResultID: krs[i].ID})
		if err != nil {
			return fmt.Errorf("action maps of key result %s: %w", krs[i].ID, err)
		}
		out[i] = types.KeyResultRollup{
			KeyResult:      krs[i],
			ProgressRate:   progress.Ratio(krs[i].CurrentValue, krs[i].TargetValue),
			ActionMapCount: len(maps),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// --- Action maps ---

// ListActionMaps annotates each action map with its item completion.
func (s *Service) ListActionMaps(ctx context.Context, workspaceID string, filter types.ActionMapFilter) ([]types.ActionMapRollup, error) {
	start := time.Now()
	maps, err := s.store.ListActionMaps(ctx, workspaceID, filter)
	if err != nil {
		return nil, fmt.Errorf("list action maps: %w", err)
	}

	out, err := s.annotateActionMaps(ctx, workspaceID, maps)
	if err != nil {
		return nil, err
	}
	s.logBatch("list_action_maps", workspaceID, len(out), start)
	return out, nil
}

// GetActionMap returns one action map with its items, each annotated from
// its linked tasks.
func (s *Service) GetActionMap(ctx context.Context, workspaceID, id string) (*types.ActionMapDetail, error) {
	m, err := s.store.GetActionMap(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListActionItems(ctx, workspaceID, m.ID)
	if err != nil {
		return nil, fmt.Errorf("items of action map %s: %w", m.ID, err)
	}

	annotated, err := s.annotateActionItems(ctx, workspaceID, items)
	if err != nil {
		return nil, err
	}

	return &types.ActionMapDetail{
		ActionMapRollup: actionMapRollup(*m, items),
		ActionItems:     annotated,
	}, nil
}

func (s *Service) annotateActionMaps(ctx context.Context, workspaceID string, maps []types.ActionMap) ([]types.ActionMapRollup, error) {
	out := make([]types.ActionMapRollup, len(maps))
	err := s.forEach(ctx, len(maps), func(ctx context.Context, i int) error {
		items, err := s.store.ListActionItems(ctx, workspaceID, maps[i].ID)
		if err != nil {
			return fmt.Errorf("items of action map %s: %w", maps[i].ID, err)
		}
		out[i] = actionMapRollup(maps[i], items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func actionMapRollup(m types.ActionMap, items []types.ActionItem) types.ActionMapRollup {
	done := 0
	for _, item := range items {
		if item.Status == types.ActionItemDone {
			done++
		}
	}
	return types.ActionMapRollup{
		ActionMap:          m,
		ProgressRate:       progress.Fraction(done, len(items)),
		ActionItemCount:    len(items),
		CompletedItemCount: done,
	}
}

// --- Action items ---

// ListActionItems annotates the items of one action map with task
// completion. The action map must exist.
func (s *Service) ListActionItems(ctx context.Context, workspaceID, actionMapID string) ([]types.ActionItemRollup, error) {
	start := time.Now()
	if _, err := s.store.GetActionMap(ctx, workspaceID, actionMapID); err != nil {
		return nil, err
	}

	items, err := s.store.ListActionItems(ctx, workspaceID, actionMapID)
	if err != nil {
		return nil, fmt.Errorf("list action items: %w", err)
	}

	out, err := s.annotateActionItems(ctx, workspaceID, items)
	if err != nil {
		return nil, err
	}
	s.logBatch("list_action_items", workspaceID, len(out), start)
	return out, nil
}

// GetActionItem returns one action item with its linked tasks.
func (s *Service) GetActionItem(ctx context.Context, workspaceID, id string) (*types.ActionItemDetail, error) {
	item, err := s.store.GetActionItem(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}

	tasks, err := s.store.ListTasksByActionItem(ctx, workspaceID, item.ID)
	if err != nil {
		return nil, fmt.Errorf("tasks of action item %s: %w", item.ID, err)
	}

	return &types.ActionItemDetail{
		ActionItemRollup: actionItemRollup(*item, tasks),
		Tasks:            tasks,
	}, nil
}

func (s *Service) annotateActionItems(ctx context.Context, workspaceID string, items []types.ActionItem) ([]types.ActionItemRollup, error) {
	out := make([]types.ActionItemRollup, len(items))
	err := s.forEach(ctx, len(items), func(ctx context.Context, i int) error {
		tasks, err := s.store.ListTasksByActionItem(ctx, workspaceID, items[i].ID)
		if err != nil {
			return fmt.Errorf("tasks of action item %s: %w", items[i].ID, err)
		}
		out[i] = actionItemRollup(items[i], tasks)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func actionItemRollup(item types.ActionItem, tasks []types.Task) types.ActionItemRollup {
	done := 0
	for _, t := range tasks {
		if t.Status == types.TaskDone {
			done++
		}
	}
	return types.ActionItemRollup{
		ActionItem:         item,
		ProgressRate:       progress.Fraction(done, len(tasks)),
		LinkedTaskCount:    len(tasks),
		CompletedTaskCount: done,
	}
}
