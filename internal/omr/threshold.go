package omr

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Threshold finds the cut point separating marked from unmarked bubble
// intensities for one sheet. It sorts the values and places the threshold
// in the middle of the largest gap wider than MinJump; if no such gap
// exists (all bubbles similar), it falls back to the mean. The result
// never exceeds GlobalThreshold.
//
// Adapting per sheet absorbs the scan-to-scan variation in darkness and
// marking pressure that a fixed cutoff cannot.
func Threshold(values []float64, p Params) float64 {
	if len(values) == 0 {
		return math.Min(p.DefaultThreshold, p.GlobalThreshold)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	maxGap := 0.0
	threshold := math.Min(p.DefaultThreshold, p.GlobalThreshold)
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i] - sorted[i-1]
		if gap > p.MinJump && gap > maxGap {
			maxGap = gap
			threshold = (sorted[i] + sorted[i-1]) / 2
		}
	}

	if maxGap == 0 {
		threshold = stat.Mean(sorted, nil)
	}

	return math.Min(threshold, p.GlobalThreshold)
}

// ThresholdValues extracts the intensities that participate in threshold
// calculation: every reading except the sentinel cells, whose fixed
// intensity would otherwise distort the gap search.
func ThresholdValues(readings []Reading) []float64 {
	values := make([]float64, 0, len(readings))
	for _, r := range readings {
		if r.Bubble.Sentinel() {
			continue
		}
		values = append(values, r.Value)
	}
	return values
}
