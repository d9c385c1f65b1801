package calibration

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"sample-calibrator/pkg/geometry"

	"gonum.org/v1/gonum/stat"
)

// ErrCollinear is returned when the three reference points do not span a
// triangle, so no circumcenter or orientation can be derived.
var ErrCollinear = errors.New("calibration points are collinear")

// collinearEpsilon bounds the circumcenter determinant below which the
// points are treated as collinear.
const collinearEpsilon = 1e-6

// ScaleMode selects how the pixel-per-millimetre factor is estimated.
type ScaleMode int

const (
	// ScaleAverage divides the mean pixel side by the mean reference side.
	ScaleAverage ScaleMode = iota
	// ScalePerEdge averages the per-edge ratios, pairing edges in click
	// order: p0-p1, p1-p2, p2-p0.
	ScalePerEdge
)

func (m ScaleMode) String() string {
	switch m {
	case ScalePerEdge:
		return "per-edge"
	default:
		return "average"
	}
}

// ParseScaleMode maps a config value to a ScaleMode. Unknown values fall
// back to ScaleAverage.
func ParseScaleMode(s string) ScaleMode {
	if s == "per-edge" {
		return ScalePerEdge
	}
	return ScaleAverage
}

// Rectangle is the calibrated rectangle in source-frame pixels.
type Rectangle struct {
	Center          geometry.FramePoint `json:"center"`
	Width           float64             `json:"width"`
	Height          float64             `json:"height"`
	RotationDegrees float64             `json:"rotation_degrees"`
	PixelsPerMM     float64             `json:"pixels_per_mm"`
	// Corners are ordered top-left, top-right, bottom-right, bottom-left.
	Corners [4]geometry.FramePoint `json:"corners"`
}

// Solver derives a Rectangle from three reference points on the rig.
type Solver struct {
	// TriangleSidesMM are the real lengths of p0-p1, p1-p2 and p2-p0.
	TriangleSidesMM [3]float64
	// ShortSideMM and LongSideMM are the rectangle's real side lengths.
	ShortSideMM float64
	LongSideMM  float64
	// AngleOffsetDeg corrects the systematic bias between the marked
	// corner points and the rig's true edge.
	AngleOffsetDeg float64
	Scale          ScaleMode
}

// Solve computes the rectangle anchored to the three points. It returns
// ErrCollinear for degenerate input; the caller keeps its previous result.
func (s Solver) Solve(pts [3]geometry.FramePoint) (Rectangle, error) {
	center, err := Circumcenter(pts)
	if err != nil {
		return Rectangle{}, err
	}

	ppm, err := s.pixelsPerMM(pts)
	if err != nil {
		return Rectangle{}, err
	}

	angle := orientation(pts) + s.AngleOffsetDeg

	// The short side runs along the box width, matching how the rig sits
	// under the camera.
	box := geometry.RotatedRect{
		Center: geometry.Point2D(center),
		Size:   geometry.NewSize(s.ShortSideMM*ppm, s.LongSideMM*ppm),
		Angle:  angle,
	}
	ordered := geometry.OrderCorners(box.BoxPoints())

	rect := Rectangle{
		Center:          center,
		Width:           box.Size.Width,
		Height:          box.Size.Height,
		RotationDegrees: angle,
		PixelsPerMM:     ppm,
	}
	for i, c := range ordered {
		rect.Corners[i] = geometry.FramePoint(c)
	}
	return rect, nil
}

// Circumcenter returns the point equidistant from all three points.
func Circumcenter(pts [3]geometry.FramePoint) (geometry.FramePoint, error) {
	x1, y1 := pts[0].X, pts[0].Y
	x2, y2 := pts[1].X, pts[1].Y
	x3, y3 := pts[2].X, pts[2].Y

	d := 2 * (x1*(y2-y3) + x2*(y3-y1) + x3*(y1-y2))
	if !(math.Abs(d) >= collinearEpsilon) || math.IsInf(d, 0) {
		return geometry.FramePoint{}, ErrCollinear
	}

	s1 := x1*x1 + y1*y1
	s2 := x2*x2 + y2*y2
	s3 := x3*x3 + y3*y3
	return geometry.FramePoint{
		X: (s1*(y2-y3) + s2*(y3-y1) + s3*(y1-y2)) / d,
		Y: (s1*(x3-x2) + s2*(x1-x3) + s3*(x2-x1)) / d,
	}, nil
}

func (s Solver) pixelsPerMM(pts [3]geometry.FramePoint) (float64, error) {
	pixel := []float64{
		pts[0].Distance(pts[1]),
		pts[1].Distance(pts[2]),
		pts[2].Distance(pts[0]),
	}
	sides := s.TriangleSidesMM[:]
	for _, r := range sides {
		if r <= 0 {
			return 0, fmt.Errorf("reference side length must be positive, got %v", r)
		}
	}

	var ppm float64
	switch s.Scale {
	case ScalePerEdge:
		ratios := make([]float64, len(pixel))
		for i := range pixel {
			ratios[i] = pixel[i] / sides[i]
		}
		ppm = stat.Mean(ratios, nil)
	default:
		ppm = stat.Mean(pixel, nil) / stat.Mean(sides, nil)
	}
	if !(ppm > 0) || math.IsInf(ppm, 0) {
		return 0, ErrCollinear
	}
	return ppm, nil
}

// orientation returns the angle in degrees of the segment joining the two
// right-most points (by x), measured from the one further left.
func orientation(pts [3]geometry.FramePoint) float64 {
	sorted := pts
	sort.SliceStable(sorted[:], func(i, j int) bool { return sorted[i].X < sorted[j].X })
	mid, right := sorted[1], sorted[2]
	return math.Atan2(right.Y-mid.Y, right.X-mid.X) * 180 / math.Pi
}
