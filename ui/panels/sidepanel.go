// Package panels provides UI panels for the application.
package panels

import (
	"fmt"

	"sample-calibrator/internal/app"
	"sample-calibrator/internal/calibration"
	"sample-calibrator/pkg/geometry"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

var stepTitles = map[app.Step]string{
	app.StepCalibrate: "1. Calibrate",
	app.StepPlacement: "2. Place sample holder",
	app.StepCollect:   "3. Collect samples",
}

var stepHelp = map[app.Step]string{
	app.StepCalibrate: "Click the three calibration markers on the rig.\n" +
		"Right-click removes the nearest marker.\n" +
		"Wheel zooms, middle-drag pans.",
	app.StepPlacement: "Check the solved rectangle against the sample holder.\n" +
		"It follows the markers live; go back to adjust them.",
	app.StepCollect: "Click each sample to record it.\n" +
		"Right-click removes the nearest sample.\n" +
		"Edit labels and order in the Samples tab.",
}

// SidePanel provides the main side panel with tabbed sections.
type SidePanel struct {
	session   *app.Session
	container *container.AppTabs

	workflowPanel *WorkflowPanel
	samplesPanel  *SamplesPanel
}

// NewSidePanel creates a new side panel.
func NewSidePanel(session *app.Session) *SidePanel {
	sp := &SidePanel{session: session}

	sp.workflowPanel = NewWorkflowPanel(session)
	sp.samplesPanel = NewSamplesPanel(session)

	sp.container = container.NewAppTabs(
		container.NewTabItem("Workflow", sp.workflowPanel.Container()),
		container.NewTabItem("Samples", sp.samplesPanel.Container()),
	)

	session.On(app.EventStepChanged, func(data interface{}) {
		if step, ok := data.(app.Step); ok && step == app.StepCollect {
			sp.container.SelectIndex(1)
		} else {
			sp.container.SelectIndex(0)
		}
	})
	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// Workflow returns the step navigation panel.
func (sp *SidePanel) Workflow() *WorkflowPanel { return sp.workflowPanel }

// Samples returns the samples panel.
func (sp *SidePanel) Samples() *SamplesPanel { return sp.samplesPanel }

// WorkflowPanel shows the current step, its instructions and the
// navigation buttons.
type WorkflowPanel struct {
	session   *app.Session
	container fyne.CanvasObject

	stepLabel   *widget.Label
	helpLabel   *widget.Label
	pointsLabel *widget.Label
	rectLabel   *widget.Label
	progress    *widget.ProgressBar

	backButton  *widget.Button
	nextButton  *widget.Button
	resetButton *widget.Button

	// Callbacks
	onNextError func(err error)
	onReset     func(step app.Step)
}

// NewWorkflowPanel creates a new workflow panel.
func NewWorkflowPanel(session *app.Session) *WorkflowPanel {
	wp := &WorkflowPanel{session: session}

	wp.stepLabel = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	wp.helpLabel = widget.NewLabel("")
	wp.helpLabel.Wrapping = fyne.TextWrapWord
	wp.pointsLabel = widget.NewLabel("")
	wp.rectLabel = widget.NewLabel("")
	wp.rectLabel.Wrapping = fyne.TextWrapWord
	wp.progress = widget.NewProgressBar()
	wp.progress.Max = 3
	wp.progress.TextFormatter = func() string {
		return fmt.Sprintf("Step %d of 3", int(wp.progress.Value))
	}

	wp.backButton = widget.NewButton("Back", func() {
		session.Back()
	})
	wp.nextButton = widget.NewButton("Next", func() {
		if err := session.Next(); err != nil && wp.onNextError != nil {
			wp.onNextError(err)
		}
	})
	wp.nextButton.Importance = widget.HighImportance
	wp.resetButton = widget.NewButton("Reset", func() {
		if wp.onReset != nil {
			wp.onReset(session.Step())
		}
	})

	wp.container = container.NewVBox(
		wp.progress,
		wp.stepLabel,
		wp.helpLabel,
		widget.NewSeparator(),
		wp.pointsLabel,
		wp.rectLabel,
		widget.NewSeparator(),
		container.NewGridWithColumns(2, wp.backButton, wp.nextButton),
		wp.resetButton,
	)

	session.On(app.EventStepChanged, func(interface{}) { wp.Refresh() })
	session.On(app.EventPointsChanged, func(interface{}) { wp.Refresh() })
	session.On(app.EventRectangleChanged, func(interface{}) { wp.Refresh() })
	session.On(app.EventSessionLoaded, func(interface{}) { wp.Refresh() })
	wp.Refresh()
	return wp
}

// Container returns the panel container.
func (wp *WorkflowPanel) Container() fyne.CanvasObject {
	return wp.container
}

// OnNextError registers the handler for a refused step advance.
func (wp *WorkflowPanel) OnNextError(callback func(err error)) {
	wp.onNextError = callback
}

// OnReset registers the handler for the reset button.
func (wp *WorkflowPanel) OnReset(callback func(step app.Step)) {
	wp.onReset = callback
}

// Refresh redraws the panel from the session.
func (wp *WorkflowPanel) Refresh() {
	snap := wp.session.Snapshot()

	wp.progress.SetValue(float64(snap.Step) + 1)
	wp.stepLabel.SetText(stepTitles[snap.Step])
	wp.helpLabel.SetText(stepHelp[snap.Step])
	wp.pointsLabel.SetText(pointsText(snap.Points))
	wp.rectLabel.SetText(rectangleText(snap.Rectangle))

	if snap.Step == app.StepCalibrate {
		wp.backButton.Disable()
	} else {
		wp.backButton.Enable()
	}
	switch {
	case snap.Step == app.StepCollect:
		wp.nextButton.Disable()
	case snap.Step == app.StepCalibrate && len(snap.Points) < calibration.PointCount:
		wp.nextButton.Disable()
	case snap.Step == app.StepPlacement && snap.Rectangle == nil:
		wp.nextButton.Disable()
	default:
		wp.nextButton.Enable()
	}
}

func pointsText(points []geometry.FramePoint) string {
	text := fmt.Sprintf("Markers: %d/%d", len(points), calibration.PointCount)
	for i, p := range points {
		text += fmt.Sprintf("\n  P%d (%.0f, %.0f)", i, p.X, p.Y)
	}
	return text
}

func rectangleText(r *calibration.Rectangle) string {
	if r == nil {
		return "Rectangle: not solved"
	}
	return fmt.Sprintf("Rectangle: %.0f x %.0f px at %.1f deg\nScale: %.3f px/mm",
		r.Width, r.Height, r.RotationDegrees, r.PixelsPerMM)
}
