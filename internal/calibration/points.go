// Package calibration collects the three reference points and derives the
// calibrated rectangle from them.
package calibration

import "sample-calibrator/pkg/geometry"

// PointCount is the number of reference points a calibration needs.
const PointCount = 3

// Set holds the operator's reference points in source-frame coordinates.
// The zero value is an empty set ready to use.
type Set struct {
	points []geometry.FramePoint
}

// NewSet returns an empty calibration set.
func NewSet() *Set { return &Set{} }

// Add appends a point. It is a no-op once the set holds three points and
// reports whether the point was added.
func (s *Set) Add(p geometry.FramePoint) bool {
	if len(s.points) >= PointCount {
		return false
	}
	s.points = append(s.points, p)
	return true
}

// RemoveNearest removes the point closest to p, provided it lies strictly
// within radius. Callers pass a zoom-adjusted radius (see view.State.PickRadius).
func (s *Set) RemoveNearest(p geometry.FramePoint, radius float64) bool {
	idx := geometry.NearestWithin(geometry.FramePoints(s.points), geometry.Point2D(p), radius)
	if idx < 0 {
		return false
	}
	s.points = append(s.points[:idx], s.points[idx+1:]...)
	return true
}

// Len returns the number of points selected so far.
func (s *Set) Len() int { return len(s.points) }

// Complete reports whether exactly three points are selected.
func (s *Set) Complete() bool { return len(s.points) == PointCount }

// Points returns a copy of the selected points in click order.
func (s *Set) Points() []geometry.FramePoint {
	out := make([]geometry.FramePoint, len(s.points))
	copy(out, s.points)
	return out
}

// Triangle returns the three points when the set is complete.
func (s *Set) Triangle() ([PointCount]geometry.FramePoint, bool) {
	var tri [PointCount]geometry.FramePoint
	if !s.Complete() {
		return tri, false
	}
	copy(tri[:], s.points)
	return tri, true
}

// Restore replaces the set with previously selected points, keeping at most
// three of them.
func (s *Set) Restore(points []geometry.FramePoint) {
	if len(points) > PointCount {
		points = points[:PointCount]
	}
	s.points = append(s.points[:0], points...)
}

// Reset removes all points.
func (s *Set) Reset() { s.points = s.points[:0] }
