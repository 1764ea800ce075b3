package geometry

// Homography is a 3×3 projective transform in row-major order with the
// bottom-right element fixed at 1.
type Homography [3][3]float64

// Identity returns the identity homography.
func Identity() Homography {
	return Homography{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// Apply maps a point through the homography, performing the perspective
// divide.
func (h Homography) Apply(p Point2D) Point2D {
	w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
	if w == 0 {
		return Point2D{}
	}
	return Point2D{
		X: (h[0][0]*p.X + h[0][1]*p.Y + h[0][2]) / w,
		Y: (h[1][0]*p.X + h[1][1]*p.Y + h[1][2]) / w,
	}
}
