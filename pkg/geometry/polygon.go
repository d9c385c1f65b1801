package geometry

import "math"

// RotatedRect is a rectangle of the given size centred on Center and
// rotated by Angle degrees (clockwise in image coordinates, y down).
type RotatedRect struct {
	Center Point2D `json:"center"`
	Size   Size    `json:"size"`
	Angle  float64 `json:"angle"`
}

// BoxPoints returns the four vertices of the rotated rectangle. The order
// follows the usual OpenCV convention (bottom-left, top-left, top-right,
// bottom-right of the unrotated box); use OrderCorners for a stable
// TL, TR, BR, BL order.
func (r RotatedRect) BoxPoints() [4]Point2D {
	rad := r.Angle * math.Pi / 180
	b := math.Cos(rad) * 0.5
	a := math.Sin(rad) * 0.5
	w, h := r.Size.Width, r.Size.Height

	var pts [4]Point2D
	pts[0] = Point2D{
		X: r.Center.X - a*h - b*w,
		Y: r.Center.Y + b*h - a*w,
	}
	pts[1] = Point2D{
		X: r.Center.X + a*h - b*w,
		Y: r.Center.Y - b*h - a*w,
	}
	pts[2] = Point2D{X: 2*r.Center.X - pts[0].X, Y: 2*r.Center.Y - pts[0].Y}
	pts[3] = Point2D{X: 2*r.Center.X - pts[1].X, Y: 2*r.Center.Y - pts[1].Y}
	return pts
}

// OrderCorners orders four corners as top-left, top-right, bottom-right,
// bottom-left. The corner with the smallest x+y is top-left and the largest
// is bottom-right; the corner with the smallest y−x is top-right and the
// largest is bottom-left.
func OrderCorners(pts [4]Point2D) [4]Point2D {
	minSum, maxSum, minDiff, maxDiff := 0, 0, 0, 0
	for i := 1; i < 4; i++ {
		p := pts[i]
		if p.X+p.Y < pts[minSum].X+pts[minSum].Y {
			minSum = i
		}
		if p.X+p.Y > pts[maxSum].X+pts[maxSum].Y {
			maxSum = i
		}
		if p.Y-p.X < pts[minDiff].Y-pts[minDiff].X {
			minDiff = i
		}
		if p.Y-p.X > pts[maxDiff].Y-pts[maxDiff].X {
			maxDiff = i
		}
	}
	return [4]Point2D{pts[minSum], pts[minDiff], pts[maxSum], pts[maxDiff]}
}

// IsConvex returns true if the polygon vertices form a convex polygon.
// The polygon is assumed to be simple (non-self-intersecting). Polygons
// with a zero-length edge or three collinear consecutive vertices are
// reported as not convex.
func IsConvex(polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	n := len(polygon)
	var sign int

	for i := 0; i < n; i++ {
		cross := crossProduct(
			polygon[i],
			polygon[(i+1)%n],
			polygon[(i+2)%n],
		)

		if math.Abs(cross) < 1e-9 {
			return false
		}

		currentSign := 1
		if cross < 0 {
			currentSign = -1
		}

		if sign == 0 {
			sign = currentSign
		} else if currentSign != sign {
			return false
		}
	}

	return true
}

// crossProduct computes the cross product of vectors OA and OB.
func crossProduct(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
