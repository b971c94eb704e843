// Package approach computes sales-approach statistics and maintains the
// per-period approach goals they are measured against.
package approach

import (
	"math"
	"time"

	"github.com/hyperengineering/pulse/internal/progress"
	"github.com/hyperengineering/pulse/internal/types"
)

// Compute aggregates records against goals as of now. Period boundaries are
// taken in now's location. Records without a result status count towards
// totals and type buckets but not towards the success rate.
func Compute(records []types.ApproachRecord, goals []types.ApproachGoal, now time.Time) types.ApproachStats {
	stats := types.ApproachStats{
		Total:          len(records),
		ByType:         make(map[types.ApproachType]int, len(types.ApproachTypes)),
		ByResultStatus: make(map[types.ResultStatus]int, len(types.ResultStatuses)),
	}
	for _, at := range types.ApproachTypes {
		stats.ByType[at] = 0
	}
	for _, rs := range types.ResultStatuses {
		stats.ByResultStatus[rs] = 0
	}

	weekStart := StartOfWeek(now)
	weekEnd := weekStart.AddDate(0, 0, 7)
	monthStart := StartOfMonth(now)
	monthEnd := monthStart.AddDate(0, 1, 0)

	classified := 0
	for _, r := range records {
		if within(r.CreatedAt, weekStart, weekEnd) {
			stats.ThisWeek++
		}
		if within(r.CreatedAt, monthStart, monthEnd) {
			stats.ThisMonth++
		}

		if _, known := stats.ByType[r.Type]; known {
			stats.ByType[r.Type]++
		} else {
			stats.ByType[types.ApproachOther]++
		}

		if r.ResultStatus == nil {
			continue
		}
		if _, known := stats.ByResultStatus[*r.ResultStatus]; known {
			stats.ByResultStatus[*r.ResultStatus]++
			classified++
		}
	}
	stats.SuccessRate = progress.Fraction(stats.ByResultStatus[types.ResultSuccess], classified)

	if g := findGoal(goals, types.GoalWeekly, PeriodKey(types.GoalWeekly, now)); g != nil {
		target := g.TargetCount
		rate := achievementRate(stats.ThisWeek, target)
		stats.WeeklyGoal = &target
		stats.WeeklyAchievementRate = &rate
	}
	if g := findGoal(goals, types.GoalMonthly, PeriodKey(types.GoalMonthly, now)); g != nil {
		target := g.TargetCount
		rate := achievementRate(stats.ThisMonth, target)
		stats.MonthlyGoal = &target
		stats.MonthlyAchievementRate = &rate
	}

	return stats
}

// within reports whether t falls in [start, end).
func within(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

func findGoal(goals []types.ApproachGoal, period types.GoalPeriod, key types.PeriodKey) *types.ApproachGoal {
	for i := range goals {
		if goals[i].Period == period && goals[i].Key() == key {
			return &goals[i]
		}
	}
	return nil
}

// achievementRate is count/target as a rounded percentage. It is not capped:
// beating a goal reports more than 100.
func achievementRate(count, target int) int {
	if target <= 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(target) * 100))
}
