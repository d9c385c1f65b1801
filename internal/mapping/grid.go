package mapping

import (
	"math"

	"sample-calibrator/pkg/geometry"
)

// GridLine is one millimetre grid line projected into the source frame.
// Straight lines stay straight under a homography, so the two endpoints are
// enough to draw it.
type GridLine struct {
	From     geometry.FramePoint
	To       geometry.FramePoint
	ValueMM  float64
	Vertical bool
	Major    bool
}

// GridLines returns vertical and horizontal lines every spacingMM across the
// rectangle. Lines falling on a multiple of majorEveryMM are flagged Major;
// a non-positive majorEveryMM marks none.
func (m *Mapper) GridLines(spacingMM, majorEveryMM float64) []GridLine {
	if spacingMM <= 0 {
		return nil
	}
	ext := m.Extent()
	var lines []GridLine

	steps := int(math.Floor(ext.X/spacingMM + 1e-9))
	for i := 0; i <= steps; i++ {
		x := float64(i) * spacingMM
		lines = append(lines, GridLine{
			From:     m.MMToPixel(geometry.RealPoint{X: x, Y: 0}),
			To:       m.MMToPixel(geometry.RealPoint{X: x, Y: ext.Y}),
			ValueMM:  x,
			Vertical: true,
			Major:    isMultiple(x, majorEveryMM),
		})
	}

	steps = int(math.Floor(ext.Y/spacingMM + 1e-9))
	for i := 0; i <= steps; i++ {
		y := float64(i) * spacingMM
		lines = append(lines, GridLine{
			From:    m.MMToPixel(geometry.RealPoint{X: 0, Y: y}),
			To:      m.MMToPixel(geometry.RealPoint{X: ext.X, Y: y}),
			ValueMM: y,
			Major:   isMultiple(y, majorEveryMM),
		})
	}
	return lines
}

// WellCenters projects a rows x cols lattice of cell centres, laid evenly
// over the rectangle, into the source frame in row-major order.
func (m *Mapper) WellCenters(rows, cols int) []geometry.FramePoint {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	stepX := m.widthMM / float64(cols)
	stepY := m.heightMM / float64(rows)
	out := make([]geometry.FramePoint, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out = append(out, m.MMToPixel(geometry.RealPoint{
				X: (float64(c) + 0.5) * stepX,
				Y: (float64(r) + 0.5) * stepY,
			}))
		}
	}
	return out
}

func isMultiple(v, step float64) bool {
	if step <= 0 {
		return false
	}
	q := v / step
	return math.Abs(q-math.Round(q)) < 1e-9
}
