// Package colorutil provides the overlay palette shared by the renderers.
package colorutil

import (
	"image/color"
)

// Common overlay colors used throughout the application.
var (
	Black   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Green   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow  = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

// Workflow overlay colors.
var (
	CalibrationPoint = color.RGBA{R: 240, G: 40, B: 40, A: 255}
	RectangleOutline = Green
	GridMajor        = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	GridMinor        = color.RGBA{R: 80, G: 80, B: 80, A: 255}
	WellMarker       = color.RGBA{R: 0, G: 100, B: 255, A: 255}
	SamplePoint      = color.RGBA{R: 0, G: 180, B: 240, A: 255}
	SampleText       = White
	ReadoutBackdrop  = White
	ReadoutText      = Black
)
