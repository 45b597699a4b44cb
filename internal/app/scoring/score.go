// Package scoring turns a test run outcome and the remaining round time into
// a 0..100 score: 70 points for accuracy, 30 for speed.
package scoring

import "math"

const (
	AccuracyWeight = 70.0
	TimeWeight     = 30.0
)

// Calculate returns round(passed/total*70 + timeLeft/allotted*30). Inputs are
// clamped so the result always lies in [0, 100].
func Calculate(testsPassed, totalTests, timeLeftSeconds, allottedSeconds int) int {
	if totalTests <= 0 {
		return 0
	}
	testsPassed = clamp(testsPassed, 0, totalTests)

	accuracy := float64(testsPassed) / float64(totalTests) * AccuracyWeight

	var timeComponent float64
	if allottedSeconds > 0 {
		timeLeft := clamp(timeLeftSeconds, 0, allottedSeconds)
		timeComponent = float64(timeLeft) / float64(allottedSeconds) * TimeWeight
	}

	return int(math.Round(accuracy + timeComponent))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
