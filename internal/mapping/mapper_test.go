package mapping

import (
	"errors"
	"math"
	"testing"

	"sample-calibrator/internal/calibration"
	"sample-calibrator/internal/samples"
	"sample-calibrator/pkg/geometry"
)

func axisAligned(t *testing.T) *Mapper {
	t.Helper()
	m, err := Build([4]geometry.FramePoint{
		{X: 100, Y: 100}, {X: 230, Y: 100}, {X: 230, Y: 220}, {X: 100, Y: 220},
	}, 130, 120, DefaultPrecision)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return m
}

func closeTo(a, b geometry.Point2D, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps
}

func TestRoundTripInsideRectangle(t *testing.T) {
	m := axisAligned(t)
	for _, p := range []geometry.FramePoint{{X: 101, Y: 101}, {X: 165, Y: 160}, {X: 229, Y: 219}} {
		mm, err := m.PixelToMM(p)
		if err != nil {
			t.Fatalf("pixel %v: unexpected error %v", p, err)
		}
		back := m.MMToPixel(mm)
		if !closeTo(geometry.Point2D(back), geometry.Point2D(p), 1e-6) {
			t.Fatalf("expected %v after round trip, got %v", p, back)
		}
	}
}

func TestOutsidePixelsRejected(t *testing.T) {
	m := axisAligned(t)
	for _, p := range []geometry.FramePoint{{X: 99, Y: 150}, {X: 150, Y: 99}, {X: 300, Y: 300}, {X: 231, Y: 150}} {
		if _, err := m.PixelToMM(p); !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("pixel %v: expected ErrOutOfBounds, got %v", p, err)
		}
		if m.Contains(p) {
			t.Fatalf("pixel %v: expected Contains to be false", p)
		}
	}
}

func TestNonFinitePixelsRejected(t *testing.T) {
	m := axisAligned(t)
	nan, inf := math.NaN(), math.Inf(1)
	for _, p := range []geometry.FramePoint{{X: nan, Y: 150}, {X: 150, Y: nan}, {X: inf, Y: 150}, {X: 150, Y: -inf}} {
		if mm, err := m.PixelToMM(p); !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("pixel %v: expected ErrOutOfBounds, got %v (mm %v)", p, err, mm)
		}
		if m.Contains(p) {
			t.Fatalf("pixel %v: expected Contains to be false", p)
		}
	}

	set := samples.NewSet(samples.DefaultIndexWidth)
	if _, err := set.Add(geometry.FramePoint{X: nan, Y: 200}, m); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds adding a NaN sample, got %v", err)
	}
	if set.Len() != 0 {
		t.Fatalf("expected no samples stored, got %d", set.Len())
	}
}

func TestBuildRejectsDegenerateCorners(t *testing.T) {
	cases := map[string][4]geometry.FramePoint{
		"duplicate": {{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
		"collinear": {{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 20, Y: 20}, {X: 30, Y: 30}},
		"collapsed": {{X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}},
	}
	for name, corners := range cases {
		if _, err := Build(corners, 130, 120, DefaultPrecision); !errors.Is(err, ErrSingular) {
			t.Fatalf("%s: expected ErrSingular, got %v", name, err)
		}
	}
	if _, err := Build([4]geometry.FramePoint{{X: 0}, {X: 10}, {X: 10, Y: 10}, {Y: 10}}, 0, 120, 10); !errors.Is(err, ErrSingular) {
		t.Fatalf("expected ErrSingular for zero width, got %v", err)
	}
}

func TestRigRectangleCornersMapToMillimetreCorners(t *testing.T) {
	solver := calibration.Solver{
		TriangleSidesMM: [3]float64{142.408, 142.408, 142.408},
		ShortSideMM:     120,
		LongSideMM:      130,
		AngleOffsetDeg:  5,
	}
	rect, err := solver.Solve([3]geometry.FramePoint{{X: 220, Y: 84}, {X: 498, Y: 223}, {X: 240, Y: 394}})
	if err != nil {
		t.Fatalf("unexpected solve error: %v", err)
	}
	m, err := Build(rect.Corners, 130, 120, DefaultPrecision)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	want := []geometry.Point2D{{X: 0, Y: 0}, {X: 129.9, Y: 0}, {X: 129.9, Y: 119.9}, {X: 0, Y: 119.9}}
	for i, c := range rect.Corners {
		mm, err := m.PixelToMM(c)
		if err != nil {
			t.Fatalf("corner %d: unexpected error %v", i, err)
		}
		if !closeTo(geometry.Point2D(mm), want[i], 1e-6) {
			t.Fatalf("corner %d: expected %v, got %v", i, want[i], mm)
		}
	}
	if !m.Contains(rect.Center) {
		t.Fatalf("expected center %v to be inside", rect.Center)
	}
	if m.Contains(geometry.FramePoint{X: 10, Y: 10}) {
		t.Fatalf("expected frame corner to be outside")
	}
}

func TestBuildOrdersShuffledCorners(t *testing.T) {
	m, err := Build([4]geometry.FramePoint{
		{X: 230, Y: 220}, {X: 100, Y: 100}, {X: 100, Y: 220}, {X: 230, Y: 100},
	}, 130, 120, DefaultPrecision)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c := m.Corners(); c[0] != (geometry.FramePoint{X: 100, Y: 100}) || c[2] != (geometry.FramePoint{X: 230, Y: 220}) {
		t.Fatalf("expected TL/BR ordering, got %v", c)
	}
	mm, err := m.PixelToMM(geometry.FramePoint{X: 100, Y: 100})
	if err != nil || !closeTo(geometry.Point2D(mm), geometry.Point2D{}, 1e-9) {
		t.Fatalf("expected origin, got %v err=%v", mm, err)
	}
	if w, h := m.Size(); w != 130 || h != 120 {
		t.Fatalf("expected 130x120, got %vx%v", w, h)
	}
}

func TestGridLines(t *testing.T) {
	m := axisAligned(t)
	lines := m.GridLines(10, 50)

	var vertical, horizontal, major int
	for _, l := range lines {
		if l.Vertical {
			vertical++
		} else {
			horizontal++
		}
		if l.Major {
			major++
		}
	}
	if vertical != 13 || horizontal != 12 {
		t.Fatalf("expected 13 vertical and 12 horizontal lines, got %d and %d", vertical, horizontal)
	}
	if major != 6 {
		t.Fatalf("expected 6 major lines, got %d", major)
	}
	if !closeTo(geometry.Point2D(lines[0].From), geometry.Point2D{X: 100, Y: 100}, 1e-6) {
		t.Fatalf("expected first line to start at the top-left corner, got %v", lines[0].From)
	}
	if m.GridLines(0, 10) != nil {
		t.Fatalf("expected no lines for zero spacing")
	}
}

func TestWellCenters(t *testing.T) {
	m := axisAligned(t)
	wells := m.WellCenters(8, 12)
	if len(wells) != 96 {
		t.Fatalf("expected 96 wells, got %d", len(wells))
	}
	first, err := m.PixelToMM(wells[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !closeTo(geometry.Point2D(first), geometry.Point2D{X: 130.0 / 24, Y: 7.5}, 1e-6) {
		t.Fatalf("expected first well at (%v,7.5), got %v", 130.0/24, first)
	}
	last, err := m.PixelToMM(wells[95])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !closeTo(geometry.Point2D(last), geometry.Point2D{X: 130 - 130.0/24, Y: 112.5}, 1e-6) {
		t.Fatalf("expected last well near the bottom-right, got %v", last)
	}
}
