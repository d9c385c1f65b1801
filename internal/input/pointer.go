// Package input defines the pointer events the workflow consumes.
//
// Host toolkits translate their native mouse events into Event values once,
// at the edge; everything downstream switches on Kind and Button.
package input

import "sample-calibrator/pkg/geometry"

// Kind identifies a pointer event.
type Kind int

const (
	PointerDown Kind = iota
	PointerUp
	PointerMove
	PointerWheel
)

func (k Kind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerUp:
		return "up"
	case PointerMove:
		return "move"
	case PointerWheel:
		return "wheel"
	default:
		return "unknown"
	}
}

// Button identifies the pointer button for down/up events.
type Button int

const (
	ButtonNone Button = iota
	ButtonPrimary
	ButtonSecondary
	ButtonMiddle
)

func (b Button) String() string {
	switch b {
	case ButtonPrimary:
		return "primary"
	case ButtonSecondary:
		return "secondary"
	case ButtonMiddle:
		return "middle"
	default:
		return "none"
	}
}

// Event is a pointer event in view-space coordinates.
type Event struct {
	Kind   Kind
	Button Button
	Pos    geometry.ViewPoint
	// Delta is the wheel movement for PointerWheel; positive zooms in.
	Delta float64
}

// Down returns a button-press event.
func Down(b Button, pos geometry.ViewPoint) Event {
	return Event{Kind: PointerDown, Button: b, Pos: pos}
}

// Up returns a button-release event.
func Up(b Button, pos geometry.ViewPoint) Event {
	return Event{Kind: PointerUp, Button: b, Pos: pos}
}

// Move returns a pointer-motion event.
func Move(pos geometry.ViewPoint) Event {
	return Event{Kind: PointerMove, Pos: pos}
}

// Wheel returns a wheel event.
func Wheel(delta float64, pos geometry.ViewPoint) Event {
	return Event{Kind: PointerWheel, Pos: pos, Delta: delta}
}
