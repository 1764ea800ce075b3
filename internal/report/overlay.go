// Package report renders the human-review artifacts of a recognition run:
// annotated overlays, per-student review PDFs and per-page threshold
// graphs.
package report

import (
	"image"
	"image/color"

	"github.com/maxslarsson/exam-grading/pkg/geometry"

	"gocv.io/x/gocv"
)

// MarkState classifies how a sampled bubble should be drawn.
type MarkState int

const (
	Unmarked MarkState = iota
	Marked
	// Sentinel positions (decimal points, fraction slashes) have no
	// printed bubble; they get a dot marker instead of a box.
	Sentinel
)

// Mark is one annotation on the overlay.
type Mark struct {
	Box   geometry.RectInt
	State MarkState
}

// Style holds the overlay drawing colors. Colors are RGBA; the conversion
// to the Mat's BGR layout happens in gocv.
type Style struct {
	Marked   color.RGBA
	Unmarked color.RGBA
	Sentinel color.RGBA
}

// DefaultStyle returns the review colors: red boxes on marked bubbles,
// gray on unmarked, green dots on sentinel positions.
func DefaultStyle() Style {
	return Style{
		Marked:   color.RGBA{R: 255, A: 255},
		Unmarked: color.RGBA{R: 130, G: 130, B: 130, A: 255},
		Sentinel: color.RGBA{G: 255, A: 255},
	}
}

// Overlay draws the marks onto a color copy of a grayscale page. The
// returned Mat is owned by the caller.
func Overlay(gray gocv.Mat, marks []Mark, style Style) gocv.Mat {
	overlay := gocv.NewMat()
	gocv.CvtColor(gray, &overlay, gocv.ColorGrayToBGR)

	for _, m := range marks {
		switch m.State {
		case Sentinel:
			center := m.Box.Center()
			pt := image.Point{X: int(center.X), Y: int(center.Y)}
			gocv.Circle(&overlay, pt, 5, style.Sentinel, 2)
			gocv.Circle(&overlay, pt, 2, style.Sentinel, -1)
		case Marked:
			gocv.Rectangle(&overlay, rect(m.Box), style.Marked, 2)
		default:
			gocv.Rectangle(&overlay, rect(m.Box), style.Unmarked, 2)
		}
	}
	return overlay
}

func rect(r geometry.RectInt) image.Rectangle {
	return image.Rect(r.MinX, r.MinY, r.MaxX, r.MaxY)
}
