package omr

import (
	"image"
	"math"

	"github.com/maxslarsson/exam-grading/internal/bubble"
	"github.com/maxslarsson/exam-grading/internal/report"
	"github.com/maxslarsson/exam-grading/pkg/geometry"

	"gocv.io/x/gocv"
)

// Reading is one sampled bubble on one sheet image.
type Reading struct {
	Bubble bubble.Bubble
	// Value is the mean grayscale intensity over Box (0 = black,
	// 255 = white). Sentinel cells carry Params.SentinelIntensity.
	Value float64
	// Box is the sampled area in aligned-image pixels, already clipped.
	Box geometry.RectInt
}

// Marked reports whether the bubble counts as filled in. Sentinel cells
// are always marked; everything else must be darker than both the adaptive
// threshold and the global ceiling.
func (r Reading) Marked(threshold float64, p Params) bool {
	if r.Bubble.Sentinel() {
		return true
	}
	return r.Value < threshold && r.Value < p.GlobalThreshold
}

// sampleBox returns the pixel rectangle to average for a bubble: the
// square inscribed in the printed circle, converted edge by edge so the
// truncating unit conversion matches the layout tooling.
func sampleBox(b bubble.Bubble, xdpi, ydpi float64, p Params) geometry.RectInt {
	offset := p.BubbleRadius / math.Sqrt2
	return geometry.NewRectInt(
		geometry.PointToPixel(b.X-offset, xdpi),
		geometry.PointToPixel(b.Y-offset, ydpi),
		geometry.PointToPixel(b.X+offset, xdpi),
		geometry.PointToPixel(b.Y+offset, ydpi),
	)
}

// SampleBubbles reads the mean intensity of every bubble on the page.
// Readings come back in table order, which downstream CSV output relies
// on. Boxes clipped to nothing are recorded as fully white: a bubble that
// fell off the image cannot be marked.
func SampleBubbles(img gocv.Mat, bubbles []bubble.Bubble, xdpi, ydpi float64, p Params) []Reading {
	readings := make([]Reading, 0, len(bubbles))

	for _, b := range bubbles {
		box := sampleBox(b, xdpi, ydpi, p).Clip(img.Cols(), img.Rows())
		r := Reading{Bubble: b, Box: box}

		switch {
		case b.Sentinel():
			r.Value = p.SentinelIntensity
		case box.Empty():
			r.Value = 255
		default:
			region := img.Region(image.Rect(box.MinX, box.MinY, box.MaxX, box.MaxY))
			r.Value = region.Mean().Val1
			region.Close()
		}

		readings = append(readings, r)
	}
	return readings
}

// Marks converts readings into overlay annotations consistent with the
// assembler's marked/unmarked decisions.
func Marks(readings []Reading, threshold float64, p Params) []report.Mark {
	marks := make([]report.Mark, 0, len(readings))
	for _, r := range readings {
		state := report.Unmarked
		switch {
		case r.Bubble.Sentinel():
			state = report.Sentinel
		case r.Marked(threshold, p):
			state = report.Marked
		}
		marks = append(marks, report.Mark{Box: r.Box, State: state})
	}
	return marks
}
