// Package render draws the workflow overlays onto camera frames and produces
// the zoomed and panned view image.
package render

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"sample-calibrator/internal/app"
	"sample-calibrator/pkg/colorutil"
	"sample-calibrator/pkg/geometry"

	"gocv.io/x/gocv"
)

const (
	pointRadius  = 5
	sampleRadius = 3
	wellRadius   = 4
	readoutPad   = 5
	readoutInset = 10
)

// Renderer turns a frame plus a session snapshot into a view image.
type Renderer struct {
	logger *slog.Logger
}

// New creates a renderer.
func New(logger *slog.Logger) *Renderer {
	return &Renderer{logger: logger}
}

// View draws the snapshot over frame and returns the zoomed view. frame is
// not modified. The caller owns the returned Mat.
func (r *Renderer) View(frame gocv.Mat, snap app.Snapshot) gocv.Mat {
	drawing := frame.Clone()
	defer drawing.Close()

	// Source-space overlays scale with the zoom.
	switch snap.Step {
	case app.StepPlacement:
		drawOutline(&drawing, snap.Corners, colorutil.Magenta)
	case app.StepCollect:
		drawGrid(&drawing, snap)
		drawWells(&drawing, snap.Wells)
		drawOutline(&drawing, snap.Corners, colorutil.RectangleOutline)
		drawSamples(&drawing, snap)
	}

	w, h := frame.Cols(), frame.Rows()
	out := warp(drawing, snap.ViewAffine, w, h)

	// View-space overlays keep a constant on-screen size.
	if snap.Step != app.StepCollect {
		drawPoints(&out, snap)
	}
	if snap.Hover != nil {
		drawReadout(&out, fmt.Sprintf("(%.1f,%.1f) mm", snap.Hover.X, snap.Hover.Y))
	}
	return out
}

// Image renders the view and converts it to an image.Image for display.
func (r *Renderer) Image(frame gocv.Mat, snap app.Snapshot) (image.Image, error) {
	out := r.View(frame, snap)
	defer out.Close()
	img, err := out.ToImage()
	if err != nil {
		r.logger.Warn("render.to_image_failed", "error", err)
		return nil, err
	}
	return img, nil
}

// Still renders the snapshot at zoom 1 over a still image, for headless
// output.
func (r *Renderer) Still(frame gocv.Mat, snap app.Snapshot) gocv.Mat {
	snap.ViewAffine = geometry.Identity()
	snap.Zoom = 1
	snap.Pan = geometry.FramePoint{}
	return r.View(frame, snap)
}

func warp(src gocv.Mat, t geometry.AffineTransform, width, height int) gocv.Mat {
	m := t.ToMatrix()
	transformMat := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer transformMat.Close()
	for row := 0; row < 2; row++ {
		for col := 0; col < 3; col++ {
			transformMat.SetDoubleAt(row, col, m[row][col])
		}
	}

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(src, &dst, transformMat, image.Point{X: width, Y: height},
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})
	return dst
}

func pt(p geometry.FramePoint) image.Point {
	return image.Point{X: int(p.X), Y: int(p.Y)}
}

func drawOutline(dst *gocv.Mat, corners []geometry.FramePoint, col color.RGBA) {
	if len(corners) != 4 {
		return
	}
	poly := make([]image.Point, len(corners))
	for i, c := range corners {
		poly[i] = pt(c)
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{poly})
	defer pv.Close()
	gocv.Polylines(dst, pv, true, col, 2)
}

func drawGrid(dst *gocv.Mat, snap app.Snapshot) {
	for _, l := range snap.Grid {
		col := colorutil.GridMinor
		if l.Major {
			col = colorutil.GridMajor
		}
		gocv.Line(dst, pt(l.From), pt(l.To), col, 1)
	}
}

func drawWells(dst *gocv.Mat, wells []geometry.FramePoint) {
	for _, w := range wells {
		gocv.Circle(dst, pt(w), wellRadius, colorutil.WellMarker, -1)
	}
}

func drawSamples(dst *gocv.Mat, snap app.Snapshot) {
	for _, s := range snap.Samples {
		p := pt(s.Pixel)
		gocv.Circle(dst, p, sampleRadius, colorutil.SamplePoint, -1)
		gocv.Circle(dst, p, sampleRadius, colorutil.White, 1)

		at := image.Point{X: p.X + 8, Y: p.Y + 5}
		shadow := image.Point{X: at.X + 1, Y: at.Y + 1}
		gocv.PutText(dst, s.FileIndex, shadow, gocv.FontHersheySimplex, 0.4, colorutil.Black, 1)
		gocv.PutText(dst, s.FileIndex, at, gocv.FontHersheySimplex, 0.4, colorutil.SampleText, 1)
	}
}

func drawPoints(dst *gocv.Mat, snap app.Snapshot) {
	for i, p := range snap.Points {
		v := snap.ViewAffine.Apply(geometry.Point2D(p))
		c := image.Point{X: int(v.X), Y: int(v.Y)}
		gocv.Circle(dst, c, pointRadius, colorutil.CalibrationPoint, -1)
		gocv.Circle(dst, c, pointRadius, colorutil.White, 1)
		gocv.PutText(dst, fmt.Sprintf("P%d", i), image.Point{X: c.X + 8, Y: c.Y - 8},
			gocv.FontHersheySimplex, 0.45, colorutil.Yellow, 1)
	}
}

// drawReadout puts a boxed label in the bottom-right corner of the view.
func drawReadout(dst *gocv.Mat, text string) {
	size, baseline := gocv.GetTextSizeWithBaseline(text, gocv.FontHersheySimplex, 0.5, 1)
	w, h := dst.Cols(), dst.Rows()
	box := image.Rect(
		w-size.X-readoutPad*2-readoutInset,
		h-size.Y-baseline-readoutPad*2-readoutInset,
		w-readoutInset,
		h-readoutInset,
	)
	gocv.Rectangle(dst, box, colorutil.ReadoutBackdrop, -1)
	gocv.PutText(dst, text, image.Point{X: box.Min.X + readoutPad, Y: box.Max.Y - readoutPad - baseline/2},
		gocv.FontHersheySimplex, 0.5, colorutil.ReadoutText, 1)
}
