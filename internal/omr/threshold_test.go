package omr

import (
	"math"
	"testing"
)

func TestThresholdLargestGap(t *testing.T) {
	p := DefaultParams()
	values := []float64{50, 55, 60, 180, 185, 190}
	if got := Threshold(values, p); got != 120 {
		t.Errorf("Threshold = %v, want 120 (midpoint of the 60/180 gap)", got)
	}
}

func TestThresholdPicksWidestGap(t *testing.T) {
	p := DefaultParams()
	// Two qualifying gaps; the widest one (90..200) wins
	values := []float64{10, 50, 90, 200}
	if got := Threshold(values, p); got != 145 {
		t.Errorf("Threshold = %v, want 145", got)
	}
}

func TestThresholdInputOrderIrrelevant(t *testing.T) {
	p := DefaultParams()
	if got := Threshold([]float64{190, 60, 185, 50, 180, 55}, p); got != 120 {
		t.Errorf("Threshold on shuffled input = %v, want 120", got)
	}
}

func TestThresholdFallsBackToMean(t *testing.T) {
	p := DefaultParams()
	values := []float64{128, 128, 128, 128}
	if got := Threshold(values, p); got != 128 {
		t.Errorf("Threshold = %v, want mean 128", got)
	}
	// Gaps exist but none exceeds MinJump
	values = []float64{50, 60, 70}
	if got := Threshold(values, p); got != 60 {
		t.Errorf("Threshold = %v, want mean 60", got)
	}
}

func TestThresholdCappedAtGlobal(t *testing.T) {
	p := DefaultParams()
	// Midpoint of the gap is 220, above the global ceiling
	values := []float64{200, 240}
	if got := Threshold(values, p); got != p.GlobalThreshold {
		t.Errorf("Threshold = %v, want cap %v", got, p.GlobalThreshold)
	}
	// Mean fallback above the ceiling is capped too
	values = []float64{250, 250}
	if got := Threshold(values, p); got != p.GlobalThreshold {
		t.Errorf("Threshold = %v, want cap %v", got, p.GlobalThreshold)
	}
}

func TestThresholdEmptyInput(t *testing.T) {
	p := DefaultParams()
	want := math.Min(p.DefaultThreshold, p.GlobalThreshold)
	if got := Threshold(nil, p); got != want {
		t.Errorf("Threshold(nil) = %v, want %v", got, want)
	}
}

func TestThresholdDoesNotMutateInput(t *testing.T) {
	p := DefaultParams()
	values := []float64{190, 50, 120}
	Threshold(values, p)
	if values[0] != 190 || values[1] != 50 || values[2] != 120 {
		t.Errorf("Threshold reordered its input: %v", values)
	}
}
