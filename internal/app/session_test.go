package app

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sample-calibrator/internal/config"
	"sample-calibrator/internal/export"
	"sample-calibrator/internal/input"
	"sample-calibrator/pkg/geometry"
)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

var discardLogger = slog.New(slog.NewTextHandler(discardWriter{}, nil))

var rigPoints = []geometry.ViewPoint{{X: 220, Y: 84}, {X: 498, Y: 223}, {X: 240, Y: 394}}

func click(t *testing.T, s *Session, b input.Button, at geometry.ViewPoint) {
	t.Helper()
	if err := s.HandlePointer(input.Down(b, at)); err != nil {
		t.Fatalf("unexpected pointer error: %v", err)
	}
	if err := s.HandlePointer(input.Up(b, at)); err != nil {
		t.Fatalf("unexpected pointer error: %v", err)
	}
}

func calibratedSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(config.DefaultConfig(), discardLogger)
	s.SetFrameSize(640, 480)
	for _, p := range rigPoints {
		click(t, s, input.ButtonPrimary, p)
	}
	if err := s.Next(); err != nil {
		t.Fatalf("calibrate -> placement: %v", err)
	}
	s.Tick()
	if err := s.Next(); err != nil {
		t.Fatalf("placement -> collect: %v", err)
	}
	return s
}

func TestPointerBeforeFrameSize(t *testing.T) {
	s := NewSession(nil, discardLogger)
	if err := s.HandlePointer(input.Down(input.ButtonPrimary, geometry.ViewPoint{})); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
}

func TestNextRequiresThreePoints(t *testing.T) {
	s := NewSession(config.DefaultConfig(), discardLogger)
	s.SetFrameSize(640, 480)
	click(t, s, input.ButtonPrimary, rigPoints[0])
	click(t, s, input.ButtonPrimary, rigPoints[1])
	if err := s.Next(); !errors.Is(err, ErrStepIncomplete) {
		t.Fatalf("expected ErrStepIncomplete, got %v", err)
	}
	if s.Step() != StepCalibrate {
		t.Fatalf("expected to stay on calibrate, got %s", s.Step())
	}
}

func TestCalibrationClicksRespectZoom(t *testing.T) {
	s := NewSession(config.DefaultConfig(), discardLogger)
	s.SetFrameSize(640, 480)
	s.HandlePointer(input.Wheel(1, geometry.ViewPoint{X: 0, Y: 0}))
	click(t, s, input.ButtonPrimary, geometry.ViewPoint{X: 120, Y: 60})

	snap := s.Snapshot()
	if len(snap.Points) != 1 {
		t.Fatalf("expected one point, got %d", len(snap.Points))
	}
	if got := snap.Points[0]; got != (geometry.FramePoint{X: 100, Y: 50}) {
		t.Fatalf("expected frame point (100,50) at zoom 1.2, got %v", got)
	}

	// Secondary click just outside the zoom-adjusted radius misses.
	click(t, s, input.ButtonSecondary, geometry.ViewPoint{X: 120 + 15.1, Y: 60})
	if n := len(s.Snapshot().Points); n != 1 {
		t.Fatalf("expected point to survive, got %d points", n)
	}
	click(t, s, input.ButtonSecondary, geometry.ViewPoint{X: 125, Y: 60})
	if n := len(s.Snapshot().Points); n != 0 {
		t.Fatalf("expected point removed, got %d points", n)
	}
}

func TestCollinearPointsBlockPlacement(t *testing.T) {
	s := NewSession(config.DefaultConfig(), discardLogger)
	s.SetFrameSize(640, 480)
	for _, p := range []geometry.ViewPoint{{X: 10, Y: 10}, {X: 20, Y: 20}, {X: 30, Y: 30}} {
		click(t, s, input.ButtonPrimary, p)
	}
	if err := s.Next(); err != nil {
		t.Fatalf("expected to enter placement, got %v", err)
	}
	s.Tick()
	if s.Snapshot().Rectangle != nil {
		t.Fatalf("expected no rectangle for collinear points")
	}
	if err := s.Next(); !errors.Is(err, ErrStepIncomplete) {
		t.Fatalf("expected ErrStepIncomplete, got %v", err)
	}
	if !s.Back() || s.Step() != StepCalibrate {
		t.Fatalf("expected back to calibrate")
	}
	if n := len(s.Snapshot().Points); n != 3 {
		t.Fatalf("expected points kept after back, got %d", n)
	}
}

func TestCollectWorkflow(t *testing.T) {
	s := calibratedSession(t)

	var sampleEvents int
	s.On(EventSamplesChanged, func(interface{}) { sampleEvents++ })

	click(t, s, input.ButtonPrimary, geometry.ViewPoint{X: 320, Y: 233})
	click(t, s, input.ButtonPrimary, geometry.ViewPoint{X: 10, Y: 10}) // outside
	click(t, s, input.ButtonPrimary, geometry.ViewPoint{X: 400, Y: 250})

	snap := s.Snapshot()
	if len(snap.Samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(snap.Samples))
	}
	if snap.Samples[1].FileIndex != "02" {
		t.Fatalf("expected second file index 02, got %s", snap.Samples[1].FileIndex)
	}
	if len(snap.Grid) == 0 || len(snap.Corners) != 4 {
		t.Fatalf("expected grid and corners in collect snapshot")
	}
	if sampleEvents != 2 {
		t.Fatalf("expected 2 sample events, got %d", sampleEvents)
	}

	click(t, s, input.ButtonSecondary, geometry.ViewPoint{X: 322, Y: 234})
	snap = s.Snapshot()
	if len(snap.Samples) != 1 || snap.Samples[0].FileIndex != "01" {
		t.Fatalf("expected remaining sample renumbered to 01, got %+v", snap.Samples)
	}

	s.HandlePointer(input.Move(geometry.ViewPoint{X: 320, Y: 233}))
	if s.Snapshot().Hover == nil {
		t.Fatalf("expected hover readout inside the rectangle")
	}
	s.HandlePointer(input.Move(geometry.ViewPoint{X: 5, Y: 5}))
	if s.Snapshot().Hover != nil {
		t.Fatalf("expected no hover readout outside")
	}
}

func TestPayloadNeedsRequestName(t *testing.T) {
	s := calibratedSession(t)
	click(t, s, input.ButtonPrimary, geometry.ViewPoint{X: 320, Y: 233})

	if _, err := s.Payload(); !errors.Is(err, export.ErrMissingRequestName) {
		t.Fatalf("expected ErrMissingRequestName, got %v", err)
	}
	s.SetRequestName("run-7")
	s.SetLabel(0, "quartz")
	p, err := s.Payload()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.SessionID != s.ID() || p.Samples[0].SampleID != "quartz" {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestBackToPlacementKeepsSamples(t *testing.T) {
	s := calibratedSession(t)
	click(t, s, input.ButtonPrimary, geometry.ViewPoint{X: 320, Y: 233})
	if !s.Back() || s.Step() != StepPlacement {
		t.Fatalf("expected back to placement")
	}
	s.Tick()
	if err := s.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(s.Snapshot().Samples); n != 1 {
		t.Fatalf("expected samples kept for an unchanged rectangle, got %d", n)
	}
}

func TestSessionFileRoundTrip(t *testing.T) {
	s := calibratedSession(t)
	click(t, s, input.ButtonPrimary, geometry.ViewPoint{X: 320, Y: 233})
	s.SetRequestName("saved")

	f := s.SessionFile()
	path := filepath.Join(t.TempDir(), "s.json")
	if err := f.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored := NewSession(config.DefaultConfig(), discardLogger)
	var loaded interface{}
	restored.On(EventSessionLoaded, func(d interface{}) { loaded = d })
	if err := restored.LoadSessionFile(f); err != nil {
		t.Fatalf("load: %v", err)
	}
	if restored.Step() != StepCollect || loaded != StepCollect {
		t.Fatalf("expected collect step, got %s (event %v)", restored.Step(), loaded)
	}
	if restored.ID() != s.ID() || restored.RequestName() != "saved" {
		t.Fatalf("expected identity restored")
	}
	a, b := s.Snapshot().Samples, restored.Snapshot().Samples
	if len(b) != 1 || a[0] != b[0] {
		t.Fatalf("expected samples %+v, got %+v", a, b)
	}
}

func TestApplyConfigRenumbersWithNewWidth(t *testing.T) {
	s := calibratedSession(t)
	click(t, s, input.ButtonPrimary, geometry.ViewPoint{X: 320, Y: 233})

	cfg := config.DefaultConfig()
	cfg.Export.IndexWidth = 3
	cfg.View.MaxZoom = 4
	s.ApplyConfig(cfg)

	if got := s.Snapshot().Samples[0].FileIndex; got != "001" {
		t.Fatalf("expected 001, got %s", got)
	}
	for i := 0; i < 20; i++ {
		s.HandlePointer(input.Wheel(1, geometry.ViewPoint{X: 100, Y: 100}))
	}
	if z := s.Snapshot().Zoom; z != 4 {
		t.Fatalf("expected zoom capped at 4, got %v", z)
	}
}

func TestApplyConfigReprojectsAndDropsOutsideSamples(t *testing.T) {
	s := calibratedSession(t)
	for _, p := range []geometry.ViewPoint{{X: 380, Y: 270}, {X: 320, Y: 233}, {X: 260, Y: 200}} {
		click(t, s, input.ButtonPrimary, p)
	}
	if n := len(s.Snapshot().Samples); n != 3 {
		t.Fatalf("expected 3 samples before reload, got %d", n)
	}

	var sampleEvents int
	s.On(EventSamplesChanged, func(interface{}) { sampleEvents++ })

	// A 20 mm rig around the same centre only covers the middle click.
	cfg := config.DefaultConfig()
	cfg.Rig.WidthMM = 20
	cfg.Rig.HeightMM = 20
	s.ApplyConfig(cfg)

	snap := s.Snapshot()
	if len(snap.Samples) != 1 {
		t.Fatalf("expected 1 sample after reload, got %+v", snap.Samples)
	}
	got := snap.Samples[0]
	if got.FileIndex != "01" {
		t.Fatalf("expected surviving sample renumbered to 01, got %s", got.FileIndex)
	}
	if got.Pixel != (geometry.FramePoint{X: 320, Y: 233}) {
		t.Fatalf("expected the centre click to survive, got pixel %v", got.Pixel)
	}
	if got.Real.X < 9 || got.Real.X > 11 || got.Real.Y < 9 || got.Real.Y > 11 {
		t.Fatalf("expected mm near (10,10) in the new mapping, got %v", got.Real)
	}
	if sampleEvents == 0 {
		t.Fatalf("expected a samples event after reprojection")
	}
}

func TestStepChangeResetsView(t *testing.T) {
	s := NewSession(config.DefaultConfig(), discardLogger)
	s.SetFrameSize(640, 480)
	s.HandlePointer(input.Wheel(1, geometry.ViewPoint{X: 300, Y: 300}))
	for _, p := range rigPoints {
		click(t, s, input.ButtonPrimary, p)
	}
	if err := s.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := s.Snapshot()
	if snap.Zoom != 1 || snap.Pan != (geometry.FramePoint{}) {
		t.Fatalf("expected view reset on step change, got zoom %v pan %v", snap.Zoom, snap.Pan)
	}
}

func TestConfigReloaderDeliversChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := config.DefaultConfig().Save(path); err != nil {
		t.Fatal(err)
	}
	r := NewConfigReloader(path, time.Hour, discardLogger)

	var got *config.Config
	r.OnReload(func(c *config.Config) { got = c })
	if r.Check() {
		t.Fatalf("expected no reload without a change")
	}

	cfg := config.DefaultConfig()
	cfg.Rig.AngleOffsetDeg = 2
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	if !r.Check() || got == nil || got.Rig.AngleOffsetDeg != 2 {
		t.Fatalf("expected reloaded config, got %+v", got)
	}
	if r.Check() {
		t.Fatalf("expected a single delivery per change")
	}
}
