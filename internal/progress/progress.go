// Package progress computes completion percentages from raw child values.
//
// Every function is total: zero or negative denominators yield 0 instead of
// an error, and results are always within [0, 100].
package progress

import "math"

// Ratio returns round(min(current/target, 1) * 100).
// A non-positive or infinite target yields 0.
func Ratio(current, target float64) int {
	if target <= 0 || math.IsNaN(target) || math.IsInf(target, 0) || math.IsNaN(current) {
		return 0
	}
	if current <= 0 {
		return 0
	}
	r := current / target
	if math.IsNaN(r) {
		return 0
	}
	if r > 1 {
		r = 1
	}
	return int(math.Round(r * 100))
}

// Fraction returns round(done/total * 100), or 0 when total is zero.
// done is clamped into [0, total].
func Fraction(done, total int) int {
	if total <= 0 {
		return 0
	}
	if done < 0 {
		done = 0
	}
	if done > total {
		done = total
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// Mean returns the rounded arithmetic mean of already-computed percentages.
// An empty slice yields 0.
func Mean(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return int(math.Round(float64(sum) / float64(len(values))))
}
