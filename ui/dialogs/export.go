package dialogs

import (
	"fmt"
	"strings"

	"sample-calibrator/internal/export"
	"sample-calibrator/internal/samples"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// ExportDialog asks for the request name and previews the rows that will be
// written before exporting.
type ExportDialog struct {
	window      fyne.Window
	requestName string
	items       []samples.Sample
	nameEntry *widget.Entry
	onExport  func(requestName string)
}

// NewExportDialog creates an export dialog previewing items, with the
// request name field prefilled.
func NewExportDialog(requestName string, items []samples.Sample, window fyne.Window, onExport func(requestName string)) *ExportDialog {
	return &ExportDialog{
		window:      window,
		requestName: requestName,
		items:       items,
		onExport:    onExport,
	}
}

// Show displays the dialog.
func (d *ExportDialog) Show() {
	d.nameEntry = widget.NewEntry()
	d.nameEntry.SetPlaceHolder("request name")
	d.nameEntry.SetText(d.requestName)

	rows := d.items
	table := widget.NewTable(
		func() (int, int) { return len(rows) + 1, 4 },
		func() fyne.CanvasObject { return widget.NewLabel("000000.00") },
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			label := obj.(*widget.Label)
			label.TextStyle = fyne.TextStyle{}
			if id.Row == 0 {
				label.SetText([]string{"File", "Label", "X (mm)", "Y (mm)"}[id.Col])
				label.TextStyle = fyne.TextStyle{Bold: true}
				return
			}
			r := rows[id.Row-1]
			switch id.Col {
			case 0:
				label.SetText(r.FileIndex)
			case 1:
				label.SetText(r.Label)
			case 2:
				label.SetText(fmt.Sprintf("%.2f", r.Real.X))
			case 3:
				label.SetText(fmt.Sprintf("%.2f", r.Real.Y))
			}
		},
	)
	table.SetColumnWidth(1, 160)

	content := container.NewBorder(
		widget.NewForm(widget.NewFormItem("Request", d.nameEntry)),
		nil, nil, nil,
		table,
	)

	dlg := dialog.NewCustomConfirm(
		fmt.Sprintf("Export %d samples", len(rows)),
		"Export",
		"Cancel",
		content,
		func(ok bool) {
			if !ok {
				return
			}
			name := strings.TrimSpace(d.nameEntry.Text)
			if name == "" {
				dialog.ShowError(export.ErrMissingRequestName, d.window)
				return
			}
			if d.onExport != nil {
				d.onExport(name)
			}
		},
		d.window,
	)
	dlg.Resize(fyne.NewSize(520, 480))
	dlg.Show()
}

// ConfirmReset asks before discarding work. what names the thing being
// cleared, e.g. "calibration points".
func ConfirmReset(window fyne.Window, what string, onConfirm func()) {
	dialog.ShowConfirm("Reset",
		fmt.Sprintf("Clear all %s?", what),
		func(ok bool) {
			if ok {
				onConfirm()
			}
		}, window)
}

// ShowExported reports the files written by an export.
func ShowExported(window fyne.Window, paths []string) {
	dialog.ShowInformation("Export complete",
		"Wrote:\n"+strings.Join(paths, "\n"), window)
}
