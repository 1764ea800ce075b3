// Package alignment locates the four corner registration markers on a
// scanned sheet and warps the page into the canonical coordinate frame the
// bubble table is authored in.
package alignment

import (
	"fmt"
	"image"
	"log"
	"math"

	"github.com/maxslarsson/exam-grading/internal/scan"
	"github.com/maxslarsson/exam-grading/pkg/geometry"

	"gocv.io/x/gocv"
)

// Options configures corner marker detection.
type Options struct {
	AnchorRadius   float64 // marker radius in LaTeX points
	AnchorDistance float64 // marker center distance from each page edge, LaTeX points
	MinConfidence  float64 // minimum normalized correlation score to accept a match
}

// DefaultOptions returns the detection settings matching the printed
// answer-sheet layout.
func DefaultOptions() Options {
	return Options{
		AnchorRadius:   10,
		AnchorDistance: 30,
		MinConfidence:  0.6,
	}
}

// Corner identifies one of the four registration marker positions. The
// numeric order is the contract between marker search and the perspective
// solve: centers and canonical targets are paired by this order, never by
// sorting coordinates.
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomLeft
	BottomRight
)

func (c Corner) String() string {
	switch c {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomLeft:
		return "bottom-left"
	case BottomRight:
		return "bottom-right"
	default:
		return "unknown"
	}
}

// Marker is one detected registration mark.
type Marker struct {
	Corner     Corner
	Center     geometry.Point2D // center in page pixels
	Confidence float64
}

// PrepareTemplate scales the marker template to its printed size at the
// page's DPI and runs it through the same blur/normalize pass as the page.
// The returned Mat is owned by the caller.
func PrepareTemplate(tmpl gocv.Mat, dpi float64, opts Options) gocv.Mat {
	size := geometry.PointToPixel(2*opts.AnchorRadius, dpi)
	scaled := gocv.NewMat()
	gocv.Resize(tmpl, &scaled, image.Point{X: size, Y: size}, 0, 0, gocv.InterpolationLinear)
	scan.Preprocess(&scaled)
	return scaled
}

// FindMarkers searches for the registration mark in a window at each of the
// four page corners and returns the matches in TopLeft, TopRight,
// BottomLeft, BottomRight order. It fails if any window's best correlation
// score is below opts.MinConfidence, or if the detected centers are not
// geometrically consistent with their corners.
func FindMarkers(img, tmpl gocv.Mat, opts Options) ([4]Marker, error) {
	var markers [4]Marker

	w := img.Cols()
	h := img.Rows()
	// Search near the actual corners only; page content further in can
	// correlate with the marker shape.
	margin := w / 4

	windows := [4]image.Rectangle{
		image.Rect(0, 0, margin, margin),
		image.Rect(w-margin, 0, w, margin),
		image.Rect(0, h-margin, margin, h),
		image.Rect(w-margin, h-margin, w, h),
	}

	for i, win := range windows {
		corner := Corner(i)
		center, conf, err := matchInWindow(img, tmpl, win)
		if err != nil {
			return markers, fmt.Errorf("%s marker: %w", corner, err)
		}
		if math.IsNaN(conf) || conf < opts.MinConfidence {
			return markers, fmt.Errorf("%s marker confidence too low (%.3f)", corner, conf)
		}
		markers[i] = Marker{Corner: corner, Center: center, Confidence: conf}
	}

	if err := validateOrder(markers, w, h); err != nil {
		return markers, err
	}
	return markers, nil
}

// matchInWindow runs normalized cross-correlation matching of tmpl inside
// one corner window and returns the best match center in page coordinates.
func matchInWindow(img, tmpl gocv.Mat, win image.Rectangle) (geometry.Point2D, float64, error) {
	if tmpl.Cols() > win.Dx() || tmpl.Rows() > win.Dy() {
		return geometry.Point2D{}, 0, fmt.Errorf("template (%dx%d) larger than search window (%dx%d)",
			tmpl.Cols(), tmpl.Rows(), win.Dx(), win.Dy())
	}

	region := img.Region(win)
	defer region.Close()

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.MatchTemplate(region, tmpl, &result, gocv.TmCcoeffNormed, mask)

	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)

	center := geometry.Point2D{
		X: float64(win.Min.X + maxLoc.X + tmpl.Cols()/2),
		Y: float64(win.Min.Y + maxLoc.Y + tmpl.Rows()/2),
	}
	return center, float64(maxVal), nil
}

// validateOrder checks that each detected center lies in its own quadrant
// relative to the centroid of the four. The perspective solve pairs centers
// with canonical targets positionally, so an out-of-place center would
// produce a flipped or rotated warp instead of an error.
func validateOrder(markers [4]Marker, w, h int) error {
	var cx, cy float64
	for _, m := range markers {
		cx += m.Center.X
		cy += m.Center.Y
	}
	cx /= 4
	cy /= 4

	for _, m := range markers {
		left := m.Corner == TopLeft || m.Corner == BottomLeft
		top := m.Corner == TopLeft || m.Corner == TopRight
		if left != (m.Center.X < cx) || top != (m.Center.Y < cy) {
			return fmt.Errorf("%s marker at (%.0f,%.0f) is not in its own quadrant (centroid %.0f,%.0f)",
				m.Corner, m.Center.X, m.Center.Y, cx, cy)
		}
	}
	return nil
}

// CanonicalTargets returns where the four marker centers belong on a
// perfectly aligned w×h page: opts.AnchorDistance points in from each edge,
// in corner order.
func CanonicalTargets(w, h int, dpi float64, opts Options) [4]geometry.Point2D {
	offset := float64(geometry.PointToPixel(opts.AnchorDistance, dpi))
	fw := float64(w)
	fh := float64(h)
	return [4]geometry.Point2D{
		{X: offset, Y: offset},
		{X: fw - offset, Y: offset},
		{X: offset, Y: fh - offset},
		{X: fw - offset, Y: fh - offset},
	}
}

// Align warps a preprocessed grayscale page into the canonical frame using
// its corner markers. Marker trouble is never fatal: the page is returned
// unchanged (cloned) with aligned=false so that downstream sampling can
// still run on unaligned coordinates. tmpl must already be prepared with
// PrepareTemplate.
func Align(img, tmpl gocv.Mat, dpi float64, opts Options) (aligned gocv.Mat, ok bool) {
	markers, err := FindMarkers(img, tmpl, opts)
	if err != nil {
		log.Printf("Warning: alignment skipped: %v", err)
		return img.Clone(), false
	}

	var centers [4]geometry.Point2D
	for i, m := range markers {
		centers[i] = m.Center
	}
	targets := CanonicalTargets(img.Cols(), img.Rows(), dpi, opts)

	homography, err := PerspectiveFromPoints(centers, targets)
	if err != nil {
		log.Printf("Warning: alignment skipped: %v", err)
		return img.Clone(), false
	}

	return WarpPerspective(img, homography, img.Cols(), img.Rows()), true
}
