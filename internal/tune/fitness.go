package tune

import (
	"fmt"
	"math"
)

// Fitness scores one speed-search trial against the phase's first trial.
//
// The value gain is the baseline's size relative to the reference source
// raised to log2(costRatio). It is the same for every trial of a run, so the
// ranking follows the cost relative to the baseline.
func Fitness(t, baseline Record, referenceSize uint64, costRatio float64, basis CostBasis) float64 {
	gain := 1.0
	if referenceSize > 0 && baseline.OutputSize > 0 {
		gain = math.Pow(float64(baseline.OutputSize)/float64(referenceSize), math.Log2(costRatio))
	}

	rawCost := 1.0
	if base := baseline.Cost(basis); base > 0 {
		if c := t.Cost(basis); c > 0 {
			rawCost = c / base
		}
	}
	return gain / rawCost
}

// SelectFittest returns the speed-search record with the highest fitness.
// The first record is the baseline; ties keep the earliest maximizer.
// ok is false when records is empty.
func SelectFittest(records []Record, referenceSize uint64, costRatio float64, basis CostBasis) (best Record, ok bool) {
	if len(records) == 0 {
		return Record{}, false
	}
	baseline := records[0]

	bestFitness := math.Inf(-1)
	for _, r := range records {
		f := Fitness(r, baseline, referenceSize, costRatio, basis)
		if debugTune {
			fmt.Printf("[TUNE-DEBUG] fitness %s = %.4f\n", r.Speed, f)
		}
		if f > bestFitness {
			bestFitness = f
			best = r
			ok = true
		}
	}
	return best, ok
}
