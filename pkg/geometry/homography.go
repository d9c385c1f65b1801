package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateQuad is returned when four correspondences do not determine a
// unique projective transform (duplicate or collinear corners).
var ErrDegenerateQuad = errors.New("degenerate quadrilateral")

// maxSystemCondition bounds the condition number of the normalised DLT
// system. Well-shaped quads sit several orders of magnitude below it.
const maxSystemCondition = 1e10

// Homography is a 3x3 projective transform acting on homogeneous points.
type Homography [3][3]float64

// Apply maps a point through the homography. The second result is false when
// the point lands on the line at infinity.
func (h Homography) Apply(p Point2D) (Point2D, bool) {
	w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
	if math.Abs(w) < 1e-12 {
		return Point2D{}, false
	}
	return Point2D{
		X: (h[0][0]*p.X + h[0][1]*p.Y + h[0][2]) / w,
		Y: (h[1][0]*p.X + h[1][1]*p.Y + h[1][2]) / w,
	}, true
}

// Inverse returns the inverse homography, if it exists.
func (h Homography) Inverse() (Homography, bool) {
	var inv mat.Dense
	if err := inv.Inverse(h.dense()); err != nil {
		return Homography{}, false
	}
	return homographyFromDense(&inv)
}

func (h Homography) dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		h[0][0], h[0][1], h[0][2],
		h[1][0], h[1][1], h[1][2],
		h[2][0], h[2][1], h[2][2],
	})
}

// homographyFromDense copies a 3x3 matrix and scales it so h[2][2] == 1.
func homographyFromDense(m mat.Matrix) (Homography, bool) {
	var h Homography
	scale := m.At(2, 2)
	if math.Abs(scale) < 1e-15 {
		scale = 1
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			v := m.At(r, c) / scale
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Homography{}, false
			}
			h[r][c] = v
		}
	}
	return h, true
}

// HomographyFromQuads solves the 8-DOF projective transform that maps each
// src corner onto the matching dst corner. Both quads are normalised
// (centroid at the origin, mean distance sqrt(2)) before the linear solve.
func HomographyFromQuads(src, dst [4]Point2D) (Homography, error) {
	if !IsConvex(src[:]) || !IsConvex(dst[:]) {
		return Homography{}, ErrDegenerateQuad
	}

	tSrc, nSrc, ok := normalizeQuad(src)
	if !ok {
		return Homography{}, ErrDegenerateQuad
	}
	tDst, nDst, ok := normalizeQuad(dst)
	if !ok {
		return Homography{}, ErrDegenerateQuad
	}

	// x' = (h0 x + h1 y + h2) / (h6 x + h7 y + 1)
	// y' = (h3 x + h4 y + h5) / (h6 x + h7 y + 1)
	A := mat.NewDense(8, 8, nil)
	B := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		x, y := nSrc[i].X, nSrc[i].Y
		u, v := nDst[i].X, nDst[i].Y

		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		A.Set(i*2, 6, -u*x)
		A.Set(i*2, 7, -u*y)
		B.SetVec(i*2, u)

		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		A.Set(i*2+1, 6, -v*x)
		A.Set(i*2+1, 7, -v*y)
		B.SetVec(i*2+1, v)
	}

	if c := mat.Cond(A, 1); math.IsInf(c, 1) || c > maxSystemCondition {
		return Homography{}, fmt.Errorf("%w: condition number %.3g", ErrDegenerateQuad, c)
	}

	var params mat.VecDense
	if err := params.SolveVec(A, B); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerateQuad, err)
	}

	hn := mat.NewDense(3, 3, []float64{
		params.AtVec(0), params.AtVec(1), params.AtVec(2),
		params.AtVec(3), params.AtVec(4), params.AtVec(5),
		params.AtVec(6), params.AtVec(7), 1,
	})

	var tDstInv mat.Dense
	if err := tDstInv.Inverse(tDst); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerateQuad, err)
	}

	// H = Tdst^-1 * Hn * Tsrc
	var partial, full mat.Dense
	partial.Mul(hn, tSrc)
	full.Mul(&tDstInv, &partial)

	h, ok := homographyFromDense(&full)
	if !ok {
		return Homography{}, ErrDegenerateQuad
	}
	return h, nil
}

// normalizeQuad returns the similarity transform that moves the quad's
// centroid to the origin and scales its mean radius to sqrt(2), together
// with the transformed corners.
func normalizeQuad(q [4]Point2D) (*mat.Dense, [4]Point2D, bool) {
	c := Centroid(q[:])
	var meanDist float64
	for _, p := range q {
		meanDist += p.Distance(c)
	}
	meanDist /= 4
	if meanDist < 1e-9 {
		return nil, q, false
	}

	s := math.Sqrt2 / meanDist
	t := mat.NewDense(3, 3, []float64{
		s, 0, -s * c.X,
		0, s, -s * c.Y,
		0, 0, 1,
	})

	var out [4]Point2D
	for i, p := range q {
		out[i] = Point2D{X: s * (p.X - c.X), Y: s * (p.Y - c.Y)}
	}
	return t, out, true
}
