// Package dialogs provides application dialogs.
package dialogs

import (
	"fmt"
	"strconv"

	"sample-calibrator/internal/calibration"
	"sample-calibrator/internal/config"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// RigSpecDialog provides a property sheet for the rig geometry and export
// settings. It edits a copy of the configuration; onSave receives the copy
// only after it validates.
type RigSpecDialog struct {
	cfg    config.Config
	window fyne.Window

	// Triangle and rectangle
	sideEntries  [3]*widget.Entry
	widthEntry   *widget.Entry
	heightEntry  *widget.Entry
	angleEntry   *widget.Entry
	scaleSelect  *widget.Select
	precisionEnt *widget.Entry

	// Overlay
	pickEntry *widget.Entry
	wellsChk  *widget.Check

	// Export
	outputEntry *widget.Entry
	widthDigits *widget.Entry
	jobEntry    *widget.Entry
	typeEntry   *widget.Entry

	// Callback
	onSave func(*config.Config)
}

// NewRigSpecDialog creates a new rig settings dialog.
func NewRigSpecDialog(cfg *config.Config, window fyne.Window, onSave func(*config.Config)) *RigSpecDialog {
	return &RigSpecDialog{
		cfg:    *cfg,
		window: window,
		onSave: onSave,
	}
}

// Show displays the dialog.
func (d *RigSpecDialog) Show() {
	content := d.createContent()

	dlg := dialog.NewCustomConfirm(
		"Rig Settings",
		"Save",
		"Cancel",
		content,
		func(save bool) {
			if !save {
				return
			}
			cfg, err := d.applyChanges()
			if err != nil {
				dialog.ShowError(err, d.window)
				return
			}
			if d.onSave != nil {
				d.onSave(cfg)
			}
		},
		d.window,
	)
	dlg.Resize(fyne.NewSize(460, 640))
	dlg.Show()
}

func floatEntry(v float64) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(strconv.FormatFloat(v, 'f', -1, 64))
	return e
}

func intEntry(v int) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(strconv.Itoa(v))
	return e
}

func (d *RigSpecDialog) createContent() fyne.CanvasObject {
	rig := d.cfg.Rig
	for i := range d.sideEntries {
		d.sideEntries[i] = floatEntry(rig.TriangleSidesMM[i])
	}
	d.widthEntry = floatEntry(rig.WidthMM)
	d.heightEntry = floatEntry(rig.HeightMM)
	d.angleEntry = floatEntry(rig.AngleOffsetDeg)
	d.precisionEnt = floatEntry(rig.Precision)

	d.scaleSelect = widget.NewSelect([]string{
		calibration.ScaleAverage.String(),
		calibration.ScalePerEdge.String(),
	}, nil)
	d.scaleSelect.SetSelected(rig.ScaleMode)

	triangleForm := widget.NewForm(
		widget.NewFormItem("Side P0-P1 (mm)", d.sideEntries[0]),
		widget.NewFormItem("Side P1-P2 (mm)", d.sideEntries[1]),
		widget.NewFormItem("Side P2-P0 (mm)", d.sideEntries[2]),
		widget.NewFormItem("Scale", d.scaleSelect),
	)

	rectForm := widget.NewForm(
		widget.NewFormItem("Width (mm)", d.widthEntry),
		widget.NewFormItem("Height (mm)", d.heightEntry),
		widget.NewFormItem("Angle offset (deg)", d.angleEntry),
		widget.NewFormItem("Mapping precision", d.precisionEnt),
	)

	d.pickEntry = floatEntry(d.cfg.View.PickRadius)
	d.wellsChk = widget.NewCheck("Show well markers", nil)
	d.wellsChk.SetChecked(d.cfg.Grid.ShowWells)

	overlayForm := widget.NewForm(
		widget.NewFormItem("Pick radius (px)", d.pickEntry),
		widget.NewFormItem("", d.wellsChk),
	)

	exp := d.cfg.Export
	d.outputEntry = widget.NewEntry()
	d.outputEntry.SetText(exp.OutputDir)
	d.widthDigits = intEntry(exp.IndexWidth)
	d.jobEntry = widget.NewEntry()
	d.jobEntry.SetText(exp.JobType)
	d.typeEntry = widget.NewEntry()
	d.typeEntry.SetText(exp.SampleType)

	exportForm := widget.NewForm(
		widget.NewFormItem("Output folder", d.outputEntry),
		widget.NewFormItem("Index digits", d.widthDigits),
		widget.NewFormItem("Job type", d.jobEntry),
		widget.NewFormItem("Sample type", d.typeEntry),
	)

	return container.NewVScroll(container.NewVBox(
		widget.NewCard("Calibration Triangle", "", triangleForm),
		widget.NewCard("Sample Rectangle", "", rectForm),
		widget.NewCard("Overlay", "", overlayForm),
		widget.NewCard("Export", "", exportForm),
	))
}

// applyChanges parses every field into a fresh copy. A field that does not
// parse is an error rather than silently keeping its old value.
func (d *RigSpecDialog) applyChanges() (*config.Config, error) {
	cfg := d.cfg
	cfg.Grid.Levels = append([]config.GridLevel(nil), d.cfg.Grid.Levels...)

	parse := func(name string, e *widget.Entry, dst *float64) error {
		v, err := strconv.ParseFloat(e.Text, 64)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", name, e.Text)
		}
		*dst = v
		return nil
	}

	for i, e := range d.sideEntries {
		if err := parse(fmt.Sprintf("side %d", i+1), e, &cfg.Rig.TriangleSidesMM[i]); err != nil {
			return nil, err
		}
	}
	fields := []struct {
		name  string
		entry *widget.Entry
		dst   *float64
	}{
		{"width", d.widthEntry, &cfg.Rig.WidthMM},
		{"height", d.heightEntry, &cfg.Rig.HeightMM},
		{"angle offset", d.angleEntry, &cfg.Rig.AngleOffsetDeg},
		{"precision", d.precisionEnt, &cfg.Rig.Precision},
		{"pick radius", d.pickEntry, &cfg.View.PickRadius},
	}
	for _, f := range fields {
		if err := parse(f.name, f.entry, f.dst); err != nil {
			return nil, err
		}
	}
	cfg.Rig.ScaleMode = d.scaleSelect.Selected
	cfg.Grid.ShowWells = d.wellsChk.Checked

	digits, err := strconv.Atoi(d.widthDigits.Text)
	if err != nil {
		return nil, fmt.Errorf("index digits: %q is not a whole number", d.widthDigits.Text)
	}
	cfg.Export.IndexWidth = digits
	cfg.Export.OutputDir = d.outputEntry.Text
	cfg.Export.JobType = d.jobEntry.Text
	cfg.Export.SampleType = d.typeEntry.Text

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
