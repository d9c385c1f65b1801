package panels

import (
	"fmt"

	"sample-calibrator/internal/app"
	"sample-calibrator/internal/samples"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// SamplesPanel lists collected samples and edits their labels, file indices
// and order.
type SamplesPanel struct {
	session   *app.Session
	container fyne.CanvasObject

	items    []samples.Sample
	selected int

	list         *widget.List
	requestEntry *widget.Entry
	fileEntry    *widget.Entry
	labelEntry   *widget.Entry
	countLabel   *widget.Label
	upButton     *widget.Button
	downButton   *widget.Button
	exportButton *widget.Button

	// Callbacks
	onExport func()
}

// NewSamplesPanel creates a new samples panel.
func NewSamplesPanel(session *app.Session) *SamplesPanel {
	p := &SamplesPanel{session: session, selected: -1}

	p.requestEntry = widget.NewEntry()
	p.requestEntry.SetPlaceHolder("request name")
	p.requestEntry.OnChanged = func(s string) {
		session.SetRequestName(s)
	}

	p.list = widget.NewList(
		func() int { return len(p.items) },
		func() fyne.CanvasObject {
			return widget.NewLabel("00  sample label  (000.00, 000.00)")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id >= len(p.items) {
				return
			}
			s := p.items[id]
			label := s.Label
			if label == "" {
				label = "-"
			}
			obj.(*widget.Label).SetText(fmt.Sprintf("%s  %s  (%.2f, %.2f)", s.FileIndex, label, s.Real.X, s.Real.Y))
		},
	)
	p.list.OnSelected = func(id widget.ListItemID) {
		p.selected = id
		p.syncEditor()
	}
	p.list.OnUnselected = func(widget.ListItemID) {
		p.selected = -1
		p.syncEditor()
	}

	p.fileEntry = widget.NewEntry()
	p.fileEntry.OnSubmitted = func(s string) {
		if p.selected >= 0 {
			session.SetFileIndex(p.selected, s)
		}
	}
	p.labelEntry = widget.NewEntry()
	p.labelEntry.SetPlaceHolder("sample id")
	p.labelEntry.OnSubmitted = func(s string) {
		if p.selected >= 0 {
			session.SetLabel(p.selected, s)
		}
	}

	p.upButton = widget.NewButtonWithIcon("", theme.MoveUpIcon(), func() { p.move(true) })
	p.downButton = widget.NewButtonWithIcon("", theme.MoveDownIcon(), func() { p.move(false) })
	p.exportButton = widget.NewButtonWithIcon("Export...", theme.DocumentSaveIcon(), func() {
		if p.onExport != nil {
			p.onExport()
		}
	})
	p.exportButton.Importance = widget.HighImportance
	p.countLabel = widget.NewLabel("")

	editor := widget.NewForm(
		widget.NewFormItem("File", p.fileEntry),
		widget.NewFormItem("Label", p.labelEntry),
	)

	top := container.NewVBox(
		widget.NewForm(widget.NewFormItem("Request", p.requestEntry)),
		p.countLabel,
	)
	bottom := container.NewVBox(
		widget.NewSeparator(),
		editor,
		container.NewHBox(p.upButton, p.downButton),
		p.exportButton,
	)
	p.container = container.NewBorder(top, bottom, nil, nil, p.list)

	session.On(app.EventSamplesChanged, func(data interface{}) {
		if items, ok := data.([]samples.Sample); ok {
			p.setItems(items)
		}
	})
	session.On(app.EventSessionLoaded, func(interface{}) { p.Reload() })
	session.On(app.EventRequestNameChanged, func(data interface{}) {
		if name, ok := data.(string); ok && name != p.requestEntry.Text {
			p.requestEntry.SetText(name)
		}
	})
	p.Reload()
	return p
}

// Container returns the panel container.
func (p *SamplesPanel) Container() fyne.CanvasObject {
	return p.container
}

// OnExport registers the export button handler.
func (p *SamplesPanel) OnExport(callback func()) {
	p.onExport = callback
}

// Reload rebuilds the panel from the session.
func (p *SamplesPanel) Reload() {
	snap := p.session.Snapshot()
	if p.requestEntry.Text != snap.RequestName {
		p.requestEntry.SetText(snap.RequestName)
	}
	p.setItems(snap.Samples)
}

func (p *SamplesPanel) setItems(items []samples.Sample) {
	p.items = items
	if p.selected >= len(items) {
		p.selected = -1
		p.list.UnselectAll()
	}
	p.countLabel.SetText(fmt.Sprintf("%d samples", len(items)))
	p.list.Refresh()
	p.syncEditor()
}

func (p *SamplesPanel) move(up bool) {
	i := p.selected
	if i < 0 || !p.session.MoveSample(i, up) {
		return
	}
	if up {
		i--
	} else {
		i++
	}
	p.list.Select(i)
}

func (p *SamplesPanel) syncEditor() {
	if p.selected < 0 || p.selected >= len(p.items) {
		p.fileEntry.SetText("")
		p.labelEntry.SetText("")
		p.fileEntry.Disable()
		p.labelEntry.Disable()
		p.upButton.Disable()
		p.downButton.Disable()
	} else {
		s := p.items[p.selected]
		p.fileEntry.SetText(s.FileIndex)
		p.labelEntry.SetText(s.Label)
		p.fileEntry.Enable()
		p.labelEntry.Enable()
		p.upButton.Enable()
		p.downButton.Enable()
	}
	if len(p.items) == 0 {
		p.exportButton.Disable()
	} else {
		p.exportButton.Enable()
	}
}
