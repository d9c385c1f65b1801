package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sample-calibrator/internal/calibration"
	"sample-calibrator/internal/samples"
	"sample-calibrator/pkg/geometry"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run"+Ext)

	f := New("5f0c")
	f.RequestName = "run-1"
	f.FrameWidth, f.FrameHeight = 640, 480
	f.Rig = RigSnapshot{WidthMM: 130, HeightMM: 120, Precision: 10}
	f.Points = []geometry.FramePoint{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 7}}
	f.Rectangle = &calibration.Rectangle{PixelsPerMM: 2.5}
	f.Samples = []samples.Sample{{FileIndex: "01", Label: "a", Real: geometry.RealPoint{X: 1.5, Y: 2}}}
	f.SetImage(path, filepath.Join(dir, "frames", "still.png"))

	if err := f.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != "5f0c" || got.RequestName != "run-1" || len(got.Points) != 3 {
		t.Fatalf("unexpected session %+v", got)
	}
	if !got.Calibrated() || got.Rectangle.PixelsPerMM != 2.5 {
		t.Fatalf("expected calibrated session, got %+v", got.Rectangle)
	}
	if got.Samples[0].Label != "a" || got.Samples[0].Real.X != 1.5 {
		t.Fatalf("unexpected samples %+v", got.Samples)
	}
	if got.ImagePath != filepath.Join("frames", "still.png") {
		t.Fatalf("expected relative image path, got %s", got.ImagePath)
	}
	if got.GetImagePath(path) != filepath.Join(dir, "frames", "still.png") {
		t.Fatalf("unexpected absolute image path %s", got.GetImagePath(path))
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "version 99") {
		t.Fatalf("expected version error, got %v", err)
	}
}

func TestUncalibratedSession(t *testing.T) {
	f := New("x")
	if f.Calibrated() {
		t.Fatalf("expected new session to be uncalibrated")
	}
	if f.GetImagePath("/tmp/a.json") != "" {
		t.Fatalf("expected no image path")
	}
}
