package geometry

// The workflow juggles three coordinate spaces. Each gets its own defined
// type so that a value cannot silently cross spaces: moving between them
// takes either a transform (view.State, mapping.Mapper) or an explicit
// conversion through Point2D.

// FramePoint is a position in source-frame space: camera pixels, origin at
// the top-left of a captured frame.
type FramePoint Point2D

// ViewPoint is a position in view space: the zoomed and panned viewport the
// pointer reports in.
type ViewPoint Point2D

// RealPoint is a position in real space, in millimetres, with the origin at
// the calibrated rectangle's top-left corner.
type RealPoint Point2D

// Distance returns the pixel distance between two frame points.
func (p FramePoint) Distance(other FramePoint) float64 {
	return Point2D(p).Distance(Point2D(other))
}

// Distance returns the millimetre distance between two real points.
func (p RealPoint) Distance(other RealPoint) float64 {
	return Point2D(p).Distance(Point2D(other))
}

// FramePoints converts frame points to untyped points for math helpers.
func FramePoints(pts []FramePoint) []Point2D {
	out := make([]Point2D, len(pts))
	for i, p := range pts {
		out[i] = Point2D(p)
	}
	return out
}
