// Package mapping converts between source-frame pixels and millimetres on
// the calibrated rectangle through a perspective transform.
package mapping

import (
	"errors"
	"fmt"
	"math"

	"sample-calibrator/pkg/geometry"
)

var (
	// ErrOutOfBounds is returned when a pixel maps outside the rectangle.
	ErrOutOfBounds = errors.New("point outside calibrated rectangle")
	// ErrSingular is returned when the corners do not define a usable
	// perspective transform.
	ErrSingular = errors.New("rectangle corners do not define a perspective transform")
)

// DefaultPrecision is the number of destination units per millimetre.
const DefaultPrecision = 10

// boundsSlack absorbs floating-point noise so the rectangle's own corners
// map inside the accepted range.
const boundsSlack = 1e-6

// Mapper holds the forward (pixel to scaled mm) and inverse homographies for
// one rectangle. It is immutable once built.
type Mapper struct {
	corners   [4]geometry.FramePoint
	widthMM   float64
	heightMM  float64
	precision float64
	forward   geometry.Homography
	inverse   geometry.Homography
}

// Build computes the mapping from the rectangle's corners onto a
// widthMM x heightMM plane sampled at precision units per millimetre. The
// corners may be given in any order; they are sorted TL, TR, BR, BL first.
func Build(corners [4]geometry.FramePoint, widthMM, heightMM, precision float64) (*Mapper, error) {
	if precision <= 0 {
		precision = DefaultPrecision
	}
	if widthMM <= 0 || heightMM <= 0 {
		return nil, fmt.Errorf("%w: size %vx%v mm", ErrSingular, widthMM, heightMM)
	}

	var src [4]geometry.Point2D
	for i, c := range corners {
		src[i] = geometry.Point2D(c)
	}
	src = geometry.OrderCorners(src)

	wk, hk := widthMM*precision, heightMM*precision
	dst := [4]geometry.Point2D{
		{X: 0, Y: 0},
		{X: wk - 1, Y: 0},
		{X: wk - 1, Y: hk - 1},
		{X: 0, Y: hk - 1},
	}

	fwd, err := geometry.HomographyFromQuads(src, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	inv, ok := fwd.Inverse()
	if !ok {
		return nil, ErrSingular
	}

	m := &Mapper{
		widthMM:   widthMM,
		heightMM:  heightMM,
		precision: precision,
		forward:   fwd,
		inverse:   inv,
	}
	for i, c := range src {
		m.corners[i] = geometry.FramePoint(c)
	}
	return m, nil
}

// PixelToMM maps a source-frame pixel to millimetres. Points outside the
// rectangle, and non-finite points, return ErrOutOfBounds.
func (m *Mapper) PixelToMM(p geometry.FramePoint) (geometry.RealPoint, error) {
	q, ok := m.forward.Apply(geometry.Point2D(p))
	if !ok {
		return geometry.RealPoint{}, ErrOutOfBounds
	}
	wk, hk := m.widthMM*m.precision, m.heightMM*m.precision
	if !(q.X >= -boundsSlack && q.X < wk && q.Y >= -boundsSlack && q.Y < hk) {
		return geometry.RealPoint{}, ErrOutOfBounds
	}
	return geometry.RealPoint{
		X: math.Max(q.X, 0) / m.precision,
		Y: math.Max(q.Y, 0) / m.precision,
	}, nil
}

// MMToPixel maps a millimetre position back into the source frame. It does
// not check bounds, so grid and well overlays may extend to the edges.
func (m *Mapper) MMToPixel(p geometry.RealPoint) geometry.FramePoint {
	q, _ := m.inverse.Apply(geometry.Point2D{X: p.X * m.precision, Y: p.Y * m.precision})
	return geometry.FramePoint(q)
}

// Contains reports whether the pixel lies inside the mapped rectangle.
func (m *Mapper) Contains(p geometry.FramePoint) bool {
	_, err := m.PixelToMM(p)
	return err == nil
}

// Corners returns the ordered source corners (TL, TR, BR, BL).
func (m *Mapper) Corners() [4]geometry.FramePoint { return m.corners }

// Size returns the rectangle's real width and height in millimetres.
func (m *Mapper) Size() (widthMM, heightMM float64) { return m.widthMM, m.heightMM }

// Extent returns the largest mm coordinates a pixel can map to.
func (m *Mapper) Extent() geometry.RealPoint {
	return geometry.RealPoint{
		X: (m.widthMM*m.precision - 1) / m.precision,
		Y: (m.heightMM*m.precision - 1) / m.precision,
	}
}
