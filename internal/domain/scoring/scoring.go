// Package scoring derives summary numbers from judge score sets.
package scoring

import (
	"math"

	"github.com/okian/edusynth/internal/domain/model"
)

// DefaultTolerance is how far a reported average may sit from the metric
// mean before it is flagged.
const DefaultTolerance = 0.5

// Mean returns the arithmetic mean of the scores for codes. Codes absent
// from set are skipped; ok is false when none are present.
func Mean(set model.ScoreSet, codes []string) (mean float64, ok bool) {
	var sum float64
	n := 0
	for _, c := range codes {
		v, present := set[c]
		if !present {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Drift compares the reported average against the metric mean. It returns
// the computed mean and whether the gap exceeds tolerance.
func Drift(set model.ScoreSet, codes []string, tolerance float64) (mean float64, drifted bool) {
	mean, ok := Mean(set, codes)
	if !ok {
		return 0, false
	}
	reported, ok := set[model.AverageKey]
	if !ok {
		return mean, false
	}
	return mean, math.Abs(reported-mean) > tolerance
}
