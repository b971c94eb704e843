package approach

import (
	"time"

	"github.com/hyperengineering/pulse/internal/types"
)

// WeekOfYear numbers weeks from 1, starting a new week every Sunday. Week 1
// is the (possibly partial) week containing January 1st:
//
//	ceil((dayOfYear + weekdayOfJan1) / 7), Sunday = 0
//
// Goal keys are stored with this numbering, so it must not change.
func WeekOfYear(t time.Time) int {
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	return (t.YearDay() + int(jan1.Weekday()) + 6) / 7
}

// WeeksInYear returns the number of the last week of year, 53 or 54.
func WeeksInYear(year int) int {
	return WeekOfYear(time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC))
}

// PeriodKey returns the (year, week) or (year, month) key containing t.
// It is the only place goal keys are derived, both when storing a goal with
// defaulted fields and when looking goals up for stats.
func PeriodKey(period types.GoalPeriod, t time.Time) types.PeriodKey {
	if period == types.GoalMonthly {
		return types.PeriodKey{Year: t.Year(), WeekOrMonth: int(t.Month())}
	}
	return types.PeriodKey{Year: t.Year(), WeekOrMonth: WeekOfYear(t)}
}

// StartOfWeek returns 00:00 of the most recent Sunday at or before t, in t's
// location.
func StartOfWeek(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// StartOfMonth returns 00:00 on the first of t's month, in t's location.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
