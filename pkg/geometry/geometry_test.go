package geometry

import (
	"errors"
	"math"
	"testing"
)

const eps = 1e-6

func near(a, b Point2D, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

func TestNearestWithin(t *testing.T) {
	pts := []Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 12, Y: 0}}

	if got := NearestWithin(pts, Point2D{X: 11.5, Y: 0}, 5); got != 2 {
		t.Fatalf("expected index 2, got %d", got)
	}
	if got := NearestWithin(pts, Point2D{X: 50, Y: 50}, 5); got != -1 {
		t.Fatalf("expected -1 for far point, got %d", got)
	}
	// Strictly inside the radius only.
	if got := NearestWithin(pts, Point2D{X: 0, Y: 5}, 5); got != -1 {
		t.Fatalf("expected -1 on radius boundary, got %d", got)
	}
	if got := NearestWithin(nil, Point2D{}, 5); got != -1 {
		t.Fatalf("expected -1 for empty set, got %d", got)
	}
}

func TestBoxPointsAxisAligned(t *testing.T) {
	r := RotatedRect{Center: Point2D{X: 10, Y: 20}, Size: Size{Width: 4, Height: 2}}
	got := OrderCorners(r.BoxPoints())
	want := [4]Point2D{{X: 8, Y: 19}, {X: 12, Y: 19}, {X: 12, Y: 21}, {X: 8, Y: 21}}
	for i := range want {
		if !near(got[i], want[i], eps) {
			t.Fatalf("corner %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestBoxPointsRotationPreservesShape(t *testing.T) {
	r := RotatedRect{Center: Point2D{X: 100, Y: 100}, Size: Size{Width: 60, Height: 40}, Angle: 30}
	c := OrderCorners(r.BoxPoints())

	sides := []float64{c[0].Distance(c[1]), c[1].Distance(c[2]), c[2].Distance(c[3]), c[3].Distance(c[0])}
	if math.Abs(sides[0]-sides[2]) > eps || math.Abs(sides[1]-sides[3]) > eps {
		t.Fatalf("opposite sides differ: %v", sides)
	}
	if !near(Centroid(c[:]), r.Center, eps) {
		t.Fatalf("expected centroid %v, got %v", r.Center, Centroid(c[:]))
	}
	if !IsConvex(c[:]) {
		t.Fatalf("ordered corners should form a convex quad: %v", c)
	}
}

func TestOrderCornersShuffled(t *testing.T) {
	tl, tr, br, bl := Point2D{X: 0, Y: 0}, Point2D{X: 10, Y: 1}, Point2D{X: 11, Y: 9}, Point2D{X: 1, Y: 10}
	got := OrderCorners([4]Point2D{br, tl, bl, tr})
	want := [4]Point2D{tl, tr, br, bl}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestHomographyMapsCorners(t *testing.T) {
	src := [4]Point2D{{X: 120, Y: 80}, {X: 510, Y: 110}, {X: 480, Y: 400}, {X: 100, Y: 370}}
	dst := [4]Point2D{{X: 0, Y: 0}, {X: 1299, Y: 0}, {X: 1299, Y: 1199}, {X: 0, Y: 1199}}

	h, err := HomographyFromQuads(src, dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range src {
		got, ok := h.Apply(src[i])
		if !ok || !near(got, dst[i], 1e-6) {
			t.Fatalf("corner %d: expected %v, got %v (ok=%v)", i, dst[i], got, ok)
		}
	}

	inv, ok := h.Inverse()
	if !ok {
		t.Fatalf("expected invertible homography")
	}
	p := Point2D{X: 300, Y: 250}
	q, _ := h.Apply(p)
	back, _ := inv.Apply(q)
	if !near(back, p, 1e-6) {
		t.Fatalf("round trip: expected %v, got %v", p, back)
	}
}

func TestHomographyDegenerate(t *testing.T) {
	dst := [4]Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	cases := map[string][4]Point2D{
		"duplicate": {{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
		"collinear": {{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 10}, {X: 15, Y: 15}},
		"collapsed": {{X: 3, Y: 3}, {X: 3, Y: 3}, {X: 3, Y: 3}, {X: 3, Y: 3}},
	}
	for name, src := range cases {
		if _, err := HomographyFromQuads(src, dst); !errors.Is(err, ErrDegenerateQuad) {
			t.Fatalf("%s: expected ErrDegenerateQuad, got %v", name, err)
		}
	}
}
