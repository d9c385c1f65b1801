// Package samples keeps the ordered list of sample positions collected on
// the calibrated rectangle.
package samples

import (
	"fmt"
	"strings"

	"sample-calibrator/pkg/geometry"
)

// DefaultIndexWidth is the zero-padding width for file indices.
const DefaultIndexWidth = 2

// Projector maps a source-frame pixel to millimetres. mapping.Mapper
// satisfies it.
type Projector interface {
	PixelToMM(geometry.FramePoint) (geometry.RealPoint, error)
}

// Sample is one collected position.
type Sample struct {
	FileIndex string              `json:"file"`
	Label     string              `json:"sample_id"`
	Pixel     geometry.FramePoint `json:"pixel"`
	Real      geometry.RealPoint  `json:"real"`
}

// Record is the export view of a sample.
type Record struct {
	FileIndex string
	Label     string
	XMM       float64
	YMM       float64
}

// Set is the ordered sample list. Index i always carries file index i+1
// after any add or remove; explicit edits and reordering leave indices as
// they are until the next renumber.
type Set struct {
	items      []Sample
	indexWidth int
}

// NewSet returns an empty set that pads file indices to width digits.
func NewSet(width int) *Set {
	if width < 1 {
		width = 1
	}
	return &Set{indexWidth: width}
}

// IndexWidth returns the zero-padding width of file indices.
func (s *Set) IndexWidth() int { return s.indexWidth }

// SetIndexWidth changes the padding and renumbers the set.
func (s *Set) SetIndexWidth(width int) {
	if width < 1 {
		width = 1
	}
	s.indexWidth = width
	s.renumber()
}

// Add maps the pixel to millimetres and appends a sample with an empty
// label. Projection errors (typically mapping.ErrOutOfBounds) are returned
// unchanged and leave the set untouched.
func (s *Set) Add(pixel geometry.FramePoint, proj Projector) (Sample, error) {
	mm, err := proj.PixelToMM(pixel)
	if err != nil {
		return Sample{}, err
	}
	sm := Sample{
		FileIndex: s.format(len(s.items) + 1),
		Pixel:     pixel,
		Real:      mm,
	}
	s.items = append(s.items, sm)
	return sm, nil
}

// RemoveNearest removes the sample whose pixel is closest to p, if it lies
// strictly within radius, and renumbers the rest.
func (s *Set) RemoveNearest(p geometry.FramePoint, radius float64) bool {
	pts := make([]geometry.Point2D, len(s.items))
	for i, it := range s.items {
		pts[i] = geometry.Point2D(it.Pixel)
	}
	idx := geometry.NearestWithin(pts, geometry.Point2D(p), radius)
	if idx < 0 {
		return false
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.renumber()
	return true
}

// SetLabel replaces the label of sample i.
func (s *Set) SetLabel(i int, label string) bool {
	if !s.valid(i) {
		return false
	}
	s.items[i].Label = strings.TrimSpace(label)
	return true
}

// SetFileIndex overrides the file index of sample i.
func (s *Set) SetFileIndex(i int, index string) bool {
	if !s.valid(i) {
		return false
	}
	s.items[i].FileIndex = strings.TrimSpace(index)
	return true
}

// MoveUp swaps sample i with the one before it. File indices travel with
// their samples.
func (s *Set) MoveUp(i int) bool {
	if !s.valid(i) || i == 0 {
		return false
	}
	s.items[i-1], s.items[i] = s.items[i], s.items[i-1]
	return true
}

// MoveDown swaps sample i with the one after it.
func (s *Set) MoveDown(i int) bool {
	if !s.valid(i) || i == len(s.items)-1 {
		return false
	}
	s.items[i+1], s.items[i] = s.items[i], s.items[i+1]
	return true
}

// Restore replaces the set's contents, as loaded from a session file.
func (s *Set) Restore(items []Sample) {
	s.items = append(s.items[:0], items...)
}

// Reset removes every sample.
func (s *Set) Reset() { s.items = s.items[:0] }

// Len returns the number of samples.
func (s *Set) Len() int { return len(s.items) }

// All returns a copy of the samples in order.
func (s *Set) All() []Sample {
	out := make([]Sample, len(s.items))
	copy(out, s.items)
	return out
}

// Records returns the export rows in order.
func (s *Set) Records() []Record {
	out := make([]Record, len(s.items))
	for i, it := range s.items {
		out[i] = Record{FileIndex: it.FileIndex, Label: it.Label, XMM: it.Real.X, YMM: it.Real.Y}
	}
	return out
}

func (s *Set) valid(i int) bool { return i >= 0 && i < len(s.items) }

func (s *Set) renumber() {
	for i := range s.items {
		s.items[i].FileIndex = s.format(i + 1)
	}
}

func (s *Set) format(n int) string {
	return fmt.Sprintf("%0*d", s.indexWidth, n)
}
