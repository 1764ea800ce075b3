package alignment

import (
	"fmt"
	"image"

	"github.com/maxslarsson/exam-grading/pkg/geometry"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// PerspectiveFromPoints solves for the homography mapping the four src
// points onto the four dst points. Points are paired by index. The solve is
// done in pure Go for cross-version compatibility; only the warp itself
// goes through OpenCV.
func PerspectiveFromPoints(src, dst [4]geometry.Point2D) (geometry.Homography, error) {
	// Each correspondence (x,y)→(u,v) contributes two rows of the 8×8
	// system A·h = b with h = [h00 h01 h02 h10 h11 h12 h20 h21] and h22
	// fixed at 1:
	//   u = (h00·x + h01·y + h02) / (h20·x + h21·y + 1)
	//   v = (h10·x + h11·y + h12) / (h20·x + h21·y + 1)
	A := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y

		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		A.Set(i*2, 6, -u*x)
		A.Set(i*2, 7, -u*y)
		b.SetVec(i*2, u)

		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		A.Set(i*2+1, 6, -v*x)
		A.Set(i*2+1, 7, -v*y)
		b.SetVec(i*2+1, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(A, b); err != nil {
		return geometry.Homography{}, fmt.Errorf("degenerate marker geometry: %w", err)
	}

	return geometry.Homography{
		{h.AtVec(0), h.AtVec(1), h.AtVec(2)},
		{h.AtVec(3), h.AtVec(4), h.AtVec(5)},
		{h.AtVec(6), h.AtVec(7), 1},
	}, nil
}

// WarpPerspective applies a homography to an image, producing a new
// width×height Mat owned by the caller.
func WarpPerspective(src gocv.Mat, h geometry.Homography, width, height int) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer m.Close()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, h[r][c])
		}
	}

	dst := gocv.NewMat()
	gocv.WarpPerspective(src, &dst, m, image.Point{X: width, Y: height})
	return dst
}
