package view

import (
	"math"
	"math/rand"
	"testing"

	"sample-calibrator/internal/input"
	"sample-calibrator/pkg/geometry"
)

const tol = 1e-9

func assertPanClamped(t *testing.T, s *State) {
	t.Helper()
	maxX := float64(s.FrameWidth) * (1 - 1/s.Zoom)
	maxY := float64(s.FrameHeight) * (1 - 1/s.Zoom)
	if s.Pan.X < 0 || s.Pan.Y < 0 || s.Pan.X > maxX+tol || s.Pan.Y > maxY+tol {
		t.Fatalf("pan %v out of [0,%v]x[0,%v] at zoom %v", s.Pan, maxX, maxY, s.Zoom)
	}
	if s.Zoom < s.limits.MinZoom || s.Zoom > s.limits.MaxZoom {
		t.Fatalf("zoom %v outside limits %+v", s.Zoom, s.limits)
	}
}

func TestToFrameAtMinimumZoom(t *testing.T) {
	s := New(640, 480, DefaultLimits())
	got := s.ToFrame(geometry.ViewPoint{X: 100, Y: 50})
	if got != (geometry.FramePoint{X: 100, Y: 50}) {
		t.Fatalf("expected identity mapping at zoom 1, got %v", got)
	}
}

func TestZoomKeepsCursorPointFixed(t *testing.T) {
	s := New(640, 480, DefaultLimits())
	cursors := []geometry.ViewPoint{{X: 320, Y: 240}, {X: 10, Y: 470}, {X: 600, Y: 20}, {X: 0, Y: 0}}
	for _, at := range cursors {
		s.Reset()
		for i := 0; i < 6; i++ {
			before := s.ToFrame(at)
			s.ZoomBy(1.2, at)
			after := s.ToFrame(at)
			if math.Abs(before.X-after.X) > 1e-9 || math.Abs(before.Y-after.Y) > 1e-9 {
				t.Fatalf("cursor %v tick %d: expected %v, got %v", at, i, before, after)
			}
			assertPanClamped(t, s)
		}
	}
}

func TestZoomLimits(t *testing.T) {
	s := New(640, 480, DefaultLimits())
	at := geometry.ViewPoint{X: 200, Y: 200}
	for i := 0; i < 50; i++ {
		s.Wheel(1, at)
	}
	if s.Zoom != 10 {
		t.Fatalf("expected zoom capped at 10, got %v", s.Zoom)
	}
	for i := 0; i < 50; i++ {
		s.Wheel(-1, at)
	}
	if s.Zoom != 1 {
		t.Fatalf("expected zoom floored at 1, got %v", s.Zoom)
	}
	if s.Pan != (geometry.FramePoint{}) {
		t.Fatalf("expected zero pan at zoom 1, got %v", s.Pan)
	}
}

func TestNoPanAtMinimumZoom(t *testing.T) {
	s := New(640, 480, DefaultLimits())
	s.Handle(input.Down(input.ButtonMiddle, geometry.ViewPoint{X: 300, Y: 300}))
	s.Handle(input.Move(geometry.ViewPoint{X: 100, Y: 50}))
	s.Handle(input.Up(input.ButtonMiddle, geometry.ViewPoint{X: 100, Y: 50}))
	if s.Pan != (geometry.FramePoint{}) {
		t.Fatalf("expected pan to stay at origin, got %v", s.Pan)
	}
}

func TestPanDragFollowsPointer(t *testing.T) {
	s := New(640, 480, DefaultLimits())
	s.ZoomBy(4, geometry.ViewPoint{X: 320, Y: 240})
	start := s.Pan

	s.BeginPan(geometry.ViewPoint{X: 300, Y: 200})
	s.DragPan(geometry.ViewPoint{X: 260, Y: 180})
	s.EndPan()

	want := geometry.FramePoint{X: start.X + 40/s.Zoom, Y: start.Y + 20/s.Zoom}
	if math.Abs(s.Pan.X-want.X) > tol || math.Abs(s.Pan.Y-want.Y) > tol {
		t.Fatalf("expected pan %v, got %v", want, s.Pan)
	}
	if s.Panning() {
		t.Fatalf("expected pan gesture to be finished")
	}

	// Dragging without an active gesture is ignored.
	s.DragPan(geometry.ViewPoint{X: 0, Y: 0})
	if math.Abs(s.Pan.X-want.X) > tol {
		t.Fatalf("expected pan unchanged, got %v", s.Pan)
	}
}

func TestRandomGesturesStayClamped(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := New(800, 600, DefaultLimits())
	for i := 0; i < 2000; i++ {
		at := geometry.ViewPoint{X: rng.Float64() * 800, Y: rng.Float64() * 600}
		switch rng.Intn(5) {
		case 0:
			s.Handle(input.Wheel(1, at))
		case 1:
			s.Handle(input.Wheel(-1, at))
		case 2:
			s.Handle(input.Down(input.ButtonMiddle, at))
		case 3:
			s.Handle(input.Move(geometry.ViewPoint{X: at.X*3 - 800, Y: at.Y*3 - 600}))
		case 4:
			s.Handle(input.Up(input.ButtonMiddle, at))
		}
		assertPanClamped(t, s)
		if s.Zoom == 1 && s.Pan != (geometry.FramePoint{}) {
			t.Fatalf("step %d: expected zero pan at zoom 1, got %v", i, s.Pan)
		}
	}
}

func TestRoundTripViewFrame(t *testing.T) {
	s := New(640, 480, DefaultLimits())
	s.ZoomBy(3, geometry.ViewPoint{X: 100, Y: 400})
	p := geometry.FramePoint{X: 150, Y: 330}
	got := s.ToFrame(s.ToView(p))
	if math.Abs(got.X-p.X) > tol || math.Abs(got.Y-p.Y) > tol {
		t.Fatalf("expected %v, got %v", p, got)
	}
	a := geometry.Point2D(p)
	if v := s.Affine().Apply(a); math.Abs(v.X-s.ToView(p).X) > tol {
		t.Fatalf("affine disagrees with ToView: %v vs %v", v, s.ToView(p))
	}
}

func TestPickRadiusShrinksWithZoom(t *testing.T) {
	s := New(640, 480, DefaultLimits())
	if r := s.PickRadius(15); r != 15 {
		t.Fatalf("expected 15 at zoom 1, got %v", r)
	}
	s.ZoomBy(5, geometry.ViewPoint{})
	if r := s.PickRadius(15); math.Abs(r-3) > tol {
		t.Fatalf("expected 3 at zoom 5, got %v", r)
	}
}

func TestHandleIgnoresSelectionButtons(t *testing.T) {
	s := New(640, 480, DefaultLimits())
	if s.Handle(input.Down(input.ButtonPrimary, geometry.ViewPoint{})) {
		t.Fatalf("primary click should not be consumed by the view")
	}
	if s.Handle(input.Move(geometry.ViewPoint{X: 4, Y: 4})) {
		t.Fatalf("move without pan should not be consumed")
	}
}

func TestFitLetterbox(t *testing.T) {
	f := NewFit(640, 480, 1000, 480)
	if f.Scale != 1 || f.PadX != 180 || f.PadY != 0 {
		t.Fatalf("unexpected fit %+v", f)
	}
	if got := f.ToView(180, 10); got != (geometry.ViewPoint{X: 0, Y: 10}) {
		t.Fatalf("expected (0,10), got %v", got)
	}
	if f.Contains(100, 10) {
		t.Fatalf("expected letterbox bar to be outside the picture")
	}
}
