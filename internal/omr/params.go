// Package omr implements optical mark recognition for scanned exam answer
// sheets: sampling bubble intensities, separating marked from unmarked
// with an adaptive threshold, assembling answers, and orchestrating a
// whole batch of pages.
package omr

import (
	"github.com/maxslarsson/exam-grading/internal/alignment"
	"github.com/maxslarsson/exam-grading/internal/report"
)

// Params collects the tunable constants of a recognition run. Lengths are
// in LaTeX points, intensities on the 0-255 grayscale range. The zero
// value is not useful; start from DefaultParams.
type Params struct {
	// BubbleRadius is the printed bubble radius. Sampling reads the
	// square inscribed in the bubble so the printed outline itself never
	// contributes to the mean.
	BubbleRadius float64

	// AnchorRadius and AnchorDistance describe the corner registration
	// markers: their printed radius and their center's distance from
	// each page edge.
	AnchorRadius   float64
	AnchorDistance float64

	// MinMarkerConfidence is the correlation score below which a corner
	// marker counts as not found and the page stays unaligned.
	MinMarkerConfidence float64

	// MinJump is the smallest intensity gap between consecutive sorted
	// bubble values treated as the marked/unmarked divide.
	MinJump float64

	// GlobalThreshold caps the adaptive threshold. Nothing at or above
	// it is ever marked; it keeps an all-dark photocopy from marking
	// every bubble on the page.
	GlobalThreshold float64

	// DefaultThreshold is used when a page yields no intensities to
	// adapt to.
	DefaultThreshold float64

	// SentinelIntensity is recorded for decimal-point and fraction-slash
	// cells, which have no printed bubble to sample.
	SentinelIntensity float64

	// TopCrop is the fraction of page height dropped from the top of
	// review PDF pages to cut the sheet header.
	TopCrop float64

	// DefaultDPI is assumed when an image carries no resolution
	// metadata.
	DefaultDPI float64

	// Style holds the overlay drawing colors.
	Style report.Style
}

// DefaultParams returns the settings matching the printed answer-sheet
// layout and typical 200 DPI scans.
func DefaultParams() Params {
	return Params{
		BubbleRadius:        7,
		AnchorRadius:        10,
		AnchorDistance:      30,
		MinMarkerConfidence: 0.6,
		MinJump:             25,
		GlobalThreshold:     210,
		DefaultThreshold:    200,
		SentinelIntensity:   100,
		TopCrop:             0.09,
		DefaultDPI:          200,
		Style:               report.DefaultStyle(),
	}
}

// AlignmentOptions derives the marker detection settings from the params.
func (p Params) AlignmentOptions() alignment.Options {
	return alignment.Options{
		AnchorRadius:   p.AnchorRadius,
		AnchorDistance: p.AnchorDistance,
		MinConfidence:  p.MinMarkerConfidence,
	}
}
