// Package geometry provides the geometric primitives shared by the
// alignment and mark-recognition packages.
package geometry

import (
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint2D creates a new Point2D.
func NewPoint2D(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// RectInt represents a pixel-aligned rectangle. Min is inclusive, Max is
// exclusive, matching image.Rectangle conventions.
type RectInt struct {
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// NewRectInt creates a RectInt from its corner coordinates.
func NewRectInt(minX, minY, maxX, maxY int) RectInt {
	return RectInt{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// Clip returns the rectangle clipped to a width×height image.
func (r RectInt) Clip(width, height int) RectInt {
	if r.MinX < 0 {
		r.MinX = 0
	}
	if r.MinY < 0 {
		r.MinY = 0
	}
	if r.MaxX > width {
		r.MaxX = width
	}
	if r.MaxY > height {
		r.MaxY = height
	}
	return r
}

// Empty returns true if the rectangle covers no pixels.
func (r RectInt) Empty() bool {
	return r.MaxX <= r.MinX || r.MaxY <= r.MinY
}

// Width returns the rectangle width in pixels.
func (r RectInt) Width() int {
	return r.MaxX - r.MinX
}

// Height returns the rectangle height in pixels.
func (r RectInt) Height() int {
	return r.MaxY - r.MinY
}

// Center returns the center of the rectangle.
func (r RectInt) Center() Point2D {
	return Point2D{
		X: float64(r.MinX+r.MaxX) / 2,
		Y: float64(r.MinY+r.MaxY) / 2,
	}
}
