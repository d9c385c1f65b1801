// Package canvas provides the live video widget: a letterboxed raster that
// shows the rendered view and reports pointer input in view coordinates.
package canvas

import (
	"image"
	"image/color"
	"sync"

	"sample-calibrator/internal/input"
	"sample-calibrator/internal/view"
	"sample-calibrator/pkg/colorutil"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	xdraw "golang.org/x/image/draw"
)

// VideoCanvas displays view images and translates mouse input.
type VideoCanvas struct {
	widget.BaseWidget

	mu      sync.Mutex
	img     image.Image
	frameW  int
	frameH  int
	message string

	raster *fynecanvas.Raster

	// Callbacks
	onPointer func(ev input.Event)
	onLeave   func()
}

// NewVideoCanvas creates an empty video canvas showing message until the
// first image arrives.
func NewVideoCanvas(message string) *VideoCanvas {
	vc := &VideoCanvas{message: message}
	vc.raster = fynecanvas.NewRaster(vc.draw)
	vc.raster.ScaleMode = fynecanvas.ImageScaleFastest
	vc.raster.SetMinSize(fyne.NewSize(640, 360))
	vc.ExtendBaseWidget(vc)
	return vc
}

// SetImage replaces the displayed view image. It is safe to call from any
// goroutine.
func (vc *VideoCanvas) SetImage(img image.Image) {
	vc.mu.Lock()
	vc.img = img
	if img != nil {
		b := img.Bounds()
		vc.frameW, vc.frameH = b.Dx(), b.Dy()
	}
	vc.mu.Unlock()
	vc.raster.Refresh()
}

// SetMessage sets the text shown while there is no image.
func (vc *VideoCanvas) SetMessage(msg string) {
	vc.mu.Lock()
	vc.message = msg
	vc.img = nil
	vc.mu.Unlock()
	vc.raster.Refresh()
}

// OnPointer registers the pointer event handler.
func (vc *VideoCanvas) OnPointer(callback func(ev input.Event)) {
	vc.onPointer = callback
}

// OnLeave registers the handler called when the pointer leaves the widget.
func (vc *VideoCanvas) OnLeave(callback func()) {
	vc.onLeave = callback
}

func (vc *VideoCanvas) fit() (view.Fit, bool) {
	vc.mu.Lock()
	w, h := vc.frameW, vc.frameH
	vc.mu.Unlock()
	if w == 0 || h == 0 {
		return view.Fit{}, false
	}
	size := vc.Size()
	return view.NewFit(w, h, int(size.Width), int(size.Height)), true
}

func (vc *VideoCanvas) dispatch(build func(f view.Fit) (input.Event, bool)) {
	if vc.onPointer == nil {
		return
	}
	f, ok := vc.fit()
	if !ok {
		return
	}
	ev, ok := build(f)
	if !ok {
		return
	}
	vc.onPointer(ev)
}

func mouseButton(b desktop.MouseButton) input.Button {
	switch b {
	case desktop.MouseButtonPrimary:
		return input.ButtonPrimary
	case desktop.MouseButtonSecondary:
		return input.ButtonSecondary
	case desktop.MouseButtonTertiary:
		return input.ButtonMiddle
	default:
		return input.ButtonNone
	}
}

// MouseDown implements desktop.Mouseable. Presses on the letterbox bars are
// ignored.
func (vc *VideoCanvas) MouseDown(ev *desktop.MouseEvent) {
	x, y := float64(ev.Position.X), float64(ev.Position.Y)
	vc.dispatch(func(f view.Fit) (input.Event, bool) {
		if !f.Contains(x, y) {
			return input.Event{}, false
		}
		return input.Down(mouseButton(ev.Button), f.ToView(x, y)), true
	})
}

// MouseUp implements desktop.Mouseable. Releases are always delivered so a
// pan started on the picture ends even off it.
func (vc *VideoCanvas) MouseUp(ev *desktop.MouseEvent) {
	x, y := float64(ev.Position.X), float64(ev.Position.Y)
	vc.dispatch(func(f view.Fit) (input.Event, bool) {
		return input.Up(mouseButton(ev.Button), f.ToView(x, y)), true
	})
}

// MouseIn implements desktop.Hoverable.
func (vc *VideoCanvas) MouseIn(ev *desktop.MouseEvent) { vc.MouseMoved(ev) }

// MouseMoved implements desktop.Hoverable.
func (vc *VideoCanvas) MouseMoved(ev *desktop.MouseEvent) {
	x, y := float64(ev.Position.X), float64(ev.Position.Y)
	vc.dispatch(func(f view.Fit) (input.Event, bool) {
		return input.Move(f.ToView(x, y)), true
	})
}

// MouseOut implements desktop.Hoverable.
func (vc *VideoCanvas) MouseOut() {
	if vc.onLeave != nil {
		vc.onLeave()
	}
}

// Scrolled implements fyne.Scrollable; the wheel zooms about the pointer.
func (vc *VideoCanvas) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY == 0 {
		return
	}
	x, y := float64(ev.Position.X), float64(ev.Position.Y)
	delta := 1.0
	if ev.Scrolled.DY < 0 {
		delta = -1.0
	}
	vc.dispatch(func(f view.Fit) (input.Event, bool) {
		if !f.Contains(x, y) {
			return input.Event{}, false
		}
		return input.Wheel(delta, f.ToView(x, y)), true
	})
}

// draw is the raster drawing function.
func (vc *VideoCanvas) draw(w, h int) image.Image {
	output := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(output, colorutil.Black)

	vc.mu.Lock()
	img, msg := vc.img, vc.message
	vc.mu.Unlock()

	if img == nil {
		drawMessage(output, msg, colorutil.White)
		return output
	}

	b := img.Bounds()
	f := view.NewFit(b.Dx(), b.Dy(), w, h)
	dst := image.Rect(int(f.PadX), int(f.PadY), int(f.PadX)+f.Width, int(f.PadY)+f.Height)
	xdraw.ApproxBiLinear.Scale(output, dst, img, b, xdraw.Src, nil)
	return output
}

func fill(output *image.RGBA, c color.RGBA) {
	for i := 0; i < len(output.Pix); i += 4 {
		output.Pix[i] = c.R
		output.Pix[i+1] = c.G
		output.Pix[i+2] = c.B
		output.Pix[i+3] = 255
	}
}

// CreateRenderer implements fyne.Widget.
func (vc *VideoCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(vc.raster)
}
