package tune

import (
	"fmt"
	"math"
	"os"
)

var debugTune = os.Getenv("SCV_DEBUG_TUNE") == "1"

// ProposeNext returns the next control value to try given one phase's
// records. It is a pure function of its inputs.
//
// Until the target is bracketed the last value is doubled or halved (bitrate)
// or stepped by QuantizerStep (quantizer). Once observations exist on both
// sides, the mean of the two observations closest to the target is returned.
func ProposeNext(records []Record, mode ControlMode, target, def float64) float64 {
	if len(records) == 0 {
		return def
	}

	allBelow, allAbove := true, true
	for _, r := range records {
		if r.Quality < target {
			allAbove = false
		} else {
			allBelow = false
		}
	}

	last := records[len(records)-1].Control

	if allBelow {
		next := last * 2
		if mode == Quantizer {
			next = math.Max(0, last-QuantizerStep)
		}
		if debugTune {
			fmt.Printf("[TUNE-DEBUG] all %d below %.2f: %.2f -> %.2f\n", len(records), target, last, next)
		}
		return next
	}

	if allAbove {
		next := last / 2
		if mode == Quantizer {
			next = math.Min(MaxQuantizer, last+QuantizerStep)
		}
		if debugTune {
			fmt.Printf("[TUNE-DEBUG] all %d above %.2f: %.2f -> %.2f\n", len(records), target, last, next)
		}
		return next
	}

	first, second := closestPair(records, target)
	next := (records[first].Control + records[second].Control) / 2
	if mode == Quantizer {
		next = math.Floor(next)
	}
	if debugTune {
		fmt.Printf("[TUNE-DEBUG] bracketed by %.2f (q=%.2f) and %.2f (q=%.2f) -> %.2f\n",
			records[first].Control, records[first].Quality,
			records[second].Control, records[second].Quality, next)
	}
	return next
}

// closestPair returns the indices of the two records closest to target.
// Ties keep the earlier record. Requires len(records) >= 2.
func closestPair(records []Record, target float64) (int, int) {
	first, second := -1, -1
	for i, r := range records {
		d := math.Abs(r.Quality - target)
		switch {
		case first < 0 || d < math.Abs(records[first].Quality-target):
			second = first
			first = i
		case second < 0 || d < math.Abs(records[second].Quality-target):
			second = i
		}
	}
	return first, second
}

// withinTolerance reports whether quality is strictly closer than tol to target.
func withinTolerance(quality, target, tol float64) bool {
	return math.Abs(quality-target) < tol
}
