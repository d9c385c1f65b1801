package samples

import (
	"errors"
	"testing"

	"sample-calibrator/pkg/geometry"
)

var errOutside = errors.New("outside")

// halfScale maps pixels to half their value in mm and rejects x >= 1000.
type halfScale struct{}

func (halfScale) PixelToMM(p geometry.FramePoint) (geometry.RealPoint, error) {
	if p.X >= 1000 {
		return geometry.RealPoint{}, errOutside
	}
	return geometry.RealPoint{X: p.X / 2, Y: p.Y / 2}, nil
}

func filled(t *testing.T, n int) *Set {
	t.Helper()
	s := NewSet(DefaultIndexWidth)
	for i := 0; i < n; i++ {
		if _, err := s.Add(geometry.FramePoint{X: float64(100 * (i + 1)), Y: 10}, halfScale{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return s
}

func fileIndices(s *Set) []string {
	var out []string
	for _, it := range s.All() {
		out = append(out, it.FileIndex)
	}
	return out
}

func TestAddAssignsPaddedIndices(t *testing.T) {
	s := filled(t, 3)
	got := fileIndices(s)
	want := []string{"01", "02", "03"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if s.All()[0].Label != "" {
		t.Fatalf("expected empty label on new sample")
	}
}

func TestAddRejectsProjectionError(t *testing.T) {
	s := filled(t, 1)
	if _, err := s.Add(geometry.FramePoint{X: 1500, Y: 5}, halfScale{}); !errors.Is(err, errOutside) {
		t.Fatalf("expected projection error, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected set unchanged, got %d samples", s.Len())
	}
}

func TestRemoveNearestRenumbersAndKeepsCoordinates(t *testing.T) {
	s := filled(t, 5)
	before := s.All()

	// Sample index 2 sits at pixel (300,10).
	if !s.RemoveNearest(geometry.FramePoint{X: 302, Y: 11}, 15) {
		t.Fatalf("expected removal")
	}
	after := s.All()
	if len(after) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(after))
	}
	wantIdx := []string{"01", "02", "03", "04"}
	survivors := []Sample{before[0], before[1], before[3], before[4]}
	for i, it := range after {
		if it.FileIndex != wantIdx[i] {
			t.Fatalf("position %d: expected index %s, got %s", i, wantIdx[i], it.FileIndex)
		}
		if it.Real != survivors[i].Real || it.Pixel != survivors[i].Pixel {
			t.Fatalf("position %d: expected coordinates %v, got %v", i, survivors[i].Real, it.Real)
		}
	}

	if s.RemoveNearest(geometry.FramePoint{X: 700, Y: 700}, 15) {
		t.Fatalf("expected no removal far from every sample")
	}
}

func TestEditsOnInvalidIndex(t *testing.T) {
	s := filled(t, 2)
	if s.SetLabel(5, "x") || s.SetLabel(-1, "x") || s.SetFileIndex(2, "9") {
		t.Fatalf("expected edits on invalid indices to report false")
	}
	if s.MoveUp(0) || s.MoveDown(1) || s.MoveUp(7) {
		t.Fatalf("expected moves past the ends to report false")
	}
}

func TestLabelAndIndexEdits(t *testing.T) {
	s := filled(t, 3)
	if !s.SetLabel(1, "  quartz ") {
		t.Fatalf("expected label edit to succeed")
	}
	if !s.SetFileIndex(2, "17") {
		t.Fatalf("expected index edit to succeed")
	}
	recs := s.Records()
	if recs[1].Label != "quartz" || recs[2].FileIndex != "17" {
		t.Fatalf("unexpected records %+v", recs)
	}
	if recs[1].XMM != 100 || recs[1].YMM != 5 {
		t.Fatalf("expected (100,5) mm, got (%v,%v)", recs[1].XMM, recs[1].YMM)
	}
}

func TestReorderKeepsIndicesWithSamples(t *testing.T) {
	s := filled(t, 3)
	s.SetLabel(2, "c")
	if !s.MoveUp(2) {
		t.Fatalf("expected move to succeed")
	}
	all := s.All()
	if all[1].Label != "c" || all[1].FileIndex != "03" {
		t.Fatalf("expected sample c with index 03 at position 1, got %+v", all[1])
	}
	if !s.MoveDown(1) || s.All()[2].Label != "c" {
		t.Fatalf("expected sample c back at the end")
	}
}

func TestIndexWidthAndReset(t *testing.T) {
	s := filled(t, 2)
	s.SetIndexWidth(3)
	if got := fileIndices(s); got[1] != "002" {
		t.Fatalf("expected 002, got %v", got)
	}
	s.Reset()
	if s.Len() != 0 {
		t.Fatalf("expected empty set, got %d", s.Len())
	}
	if _, err := s.Add(geometry.FramePoint{X: 1, Y: 1}, halfScale{}); err != nil || s.All()[0].FileIndex != "001" {
		t.Fatalf("expected numbering to restart at 001, got %v err=%v", fileIndices(s), err)
	}
}
