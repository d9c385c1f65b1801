package view

import (
	"math"

	"sample-calibrator/pkg/geometry"
)

// Fit letterboxes a frame-sized viewport into a display area, preserving
// aspect ratio and centring the picture.
type Fit struct {
	Scale float64
	PadX  float64
	PadY  float64
	// Width and Height are the displayed picture size in device pixels.
	Width  int
	Height int
}

// NewFit computes the letterbox for a frame of frameW x frameH shown in a
// display of displayW x displayH device pixels.
func NewFit(frameW, frameH, displayW, displayH int) Fit {
	if frameW <= 0 || frameH <= 0 || displayW <= 0 || displayH <= 0 {
		return Fit{Scale: 1}
	}
	scale := math.Min(float64(displayW)/float64(frameW), float64(displayH)/float64(frameH))
	w := int(float64(frameW) * scale)
	h := int(float64(frameH) * scale)
	return Fit{
		Scale:  scale,
		PadX:   float64((displayW - w) / 2),
		PadY:   float64((displayH - h) / 2),
		Width:  w,
		Height: h,
	}
}

// ToView converts a device position to view space.
func (f Fit) ToView(x, y float64) geometry.ViewPoint {
	return geometry.ViewPoint{
		X: (x - f.PadX) / f.Scale,
		Y: (y - f.PadY) / f.Scale,
	}
}

// Contains reports whether the device position falls on the picture rather
// than the letterbox bars.
func (f Fit) Contains(x, y float64) bool {
	return x >= f.PadX && y >= f.PadY &&
		x < f.PadX+float64(f.Width) && y < f.PadY+float64(f.Height)
}
