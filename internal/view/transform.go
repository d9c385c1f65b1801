// Package view maintains the zoom/pan state over a fixed-size source frame
// and maps between view space and source-frame space.
package view

import (
	"math"

	"sample-calibrator/internal/input"
	"sample-calibrator/pkg/geometry"
)

const (
	defaultMinZoom  = 1.0
	defaultMaxZoom  = 10.0
	defaultZoomStep = 1.2
)

// Limits bounds the zoom level and sets the multiplicative wheel step.
type Limits struct {
	MinZoom  float64
	MaxZoom  float64
	ZoomStep float64
}

// DefaultLimits returns zoom bounds [1, 10] with a 1.2x wheel step.
func DefaultLimits() Limits {
	return Limits{MinZoom: defaultMinZoom, MaxZoom: defaultMaxZoom, ZoomStep: defaultZoomStep}
}

func (l Limits) normalized() Limits {
	if l.MinZoom < 1 {
		l.MinZoom = defaultMinZoom
	}
	if l.MaxZoom < l.MinZoom {
		l.MaxZoom = l.MinZoom
	}
	if l.ZoomStep <= 1 {
		l.ZoomStep = defaultZoomStep
	}
	return l
}

// State is the zoom/pan state of one viewport over a source frame.
//
// Pan is the source-frame point shown at the view's top-left corner. It
// always satisfies 0 <= Pan <= FrameSize*(1-1/Zoom) componentwise, so at the
// minimum zoom it is exactly the origin.
type State struct {
	FrameWidth  int
	FrameHeight int
	Zoom        float64
	Pan         geometry.FramePoint

	panning   bool
	panAnchor geometry.FramePoint
	limits    Limits
}

// New creates a view over a frame of the given size at minimum zoom.
func New(frameWidth, frameHeight int, limits Limits) *State {
	limits = limits.normalized()
	return &State{
		FrameWidth:  frameWidth,
		FrameHeight: frameHeight,
		Zoom:        limits.MinZoom,
		limits:      limits,
	}
}

// Limits returns the zoom bounds in effect.
func (s *State) Limits() Limits { return s.limits }

// SetLimits replaces the zoom bounds and re-clamps the current state.
func (s *State) SetLimits(limits Limits) {
	s.limits = limits.normalized()
	s.Zoom = clamp(s.Zoom, s.limits.MinZoom, s.limits.MaxZoom)
	s.ClampPan()
}

// Reset returns to minimum zoom with no pan.
func (s *State) Reset() {
	s.Zoom = s.limits.MinZoom
	s.Pan = geometry.FramePoint{}
	s.panning = false
	s.ClampPan()
}

// ToFrame converts a view-space position to source-frame coordinates.
// All click and hover handling goes through here.
func (s *State) ToFrame(p geometry.ViewPoint) geometry.FramePoint {
	return geometry.FramePoint{
		X: s.Pan.X + p.X/s.Zoom,
		Y: s.Pan.Y + p.Y/s.Zoom,
	}
}

// ToView converts a source-frame position to view-space coordinates.
func (s *State) ToView(p geometry.FramePoint) geometry.ViewPoint {
	return geometry.ViewPoint{
		X: (p.X - s.Pan.X) * s.Zoom,
		Y: (p.Y - s.Pan.Y) * s.Zoom,
	}
}

// Affine returns the source-frame to view-space transform, suitable for
// warping a frame into the viewport.
func (s *State) Affine() geometry.AffineTransform {
	return geometry.Scale(s.Zoom, s.Zoom).Compose(geometry.Translation(-s.Pan.X, -s.Pan.Y))
}

// ZoomBy multiplies the zoom by factor while keeping the source-frame point
// under at fixed on screen. The result is clamped to the zoom limits.
func (s *State) ZoomBy(factor float64, at geometry.ViewPoint) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	anchor := s.ToFrame(at)
	s.Zoom = clamp(s.Zoom*factor, s.limits.MinZoom, s.limits.MaxZoom)
	s.Pan = geometry.FramePoint{
		X: anchor.X - at.X/s.Zoom,
		Y: anchor.Y - at.Y/s.Zoom,
	}
	s.ClampPan()
}

// Wheel applies one wheel tick: positive delta zooms in by the configured
// step, negative zooms out. A zero delta is ignored.
func (s *State) Wheel(delta float64, at geometry.ViewPoint) {
	switch {
	case delta > 0:
		s.ZoomBy(s.limits.ZoomStep, at)
	case delta < 0:
		s.ZoomBy(1/s.limits.ZoomStep, at)
	}
}

// BeginPan starts a pan gesture with the pointer at the given position.
func (s *State) BeginPan(at geometry.ViewPoint) {
	s.panning = true
	s.panAnchor = s.ToFrame(at)
}

// DragPan moves the view so the anchored source point follows the pointer.
// It does nothing unless a pan gesture is active.
func (s *State) DragPan(at geometry.ViewPoint) {
	if !s.panning {
		return
	}
	s.Pan = geometry.FramePoint{
		X: s.panAnchor.X - at.X/s.Zoom,
		Y: s.panAnchor.Y - at.Y/s.Zoom,
	}
	s.ClampPan()
}

// EndPan finishes the pan gesture.
func (s *State) EndPan() {
	s.panning = false
}

// Panning reports whether a pan gesture is in progress.
func (s *State) Panning() bool { return s.panning }

// ClampPan keeps the viewport inside the frame at the current zoom.
func (s *State) ClampPan() {
	maxX := float64(s.FrameWidth) * (1 - 1/s.Zoom)
	maxY := float64(s.FrameHeight) * (1 - 1/s.Zoom)
	s.Pan.X = clamp(s.Pan.X, 0, math.Max(0, maxX))
	s.Pan.Y = clamp(s.Pan.Y, 0, math.Max(0, maxY))
}

// PickRadius converts a fixed on-screen radius to source-frame pixels, so
// hit-testing feels the same at every zoom level.
func (s *State) PickRadius(base float64) float64 {
	return base / s.Zoom
}

// Handle applies the view-control part of a pointer event: middle-button
// pan and wheel zoom. It reports whether the event was consumed.
func (s *State) Handle(ev input.Event) bool {
	switch ev.Kind {
	case input.PointerDown:
		if ev.Button == input.ButtonMiddle {
			s.BeginPan(ev.Pos)
			return true
		}
	case input.PointerUp:
		if ev.Button == input.ButtonMiddle {
			s.EndPan()
			return true
		}
	case input.PointerMove:
		if s.panning {
			s.DragPan(ev.Pos)
			return true
		}
	case input.PointerWheel:
		s.Wheel(ev.Delta, ev.Pos)
		return true
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
