// Package mainwindow provides the main application window.
package mainwindow

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"sample-calibrator/internal/app"
	"sample-calibrator/internal/capture"
	"sample-calibrator/internal/config"
	"sample-calibrator/internal/export"
	"sample-calibrator/internal/input"
	"sample-calibrator/internal/project"
	"sample-calibrator/internal/render"
	"sample-calibrator/internal/version"
	"sample-calibrator/ui/canvas"
	"sample-calibrator/ui/dialogs"
	"sample-calibrator/ui/panels"
	"sample-calibrator/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/google/uuid"
)

const (
	appTitle      = "Sample Calibrator"
	frameInterval = 15 * time.Millisecond
)

// Options wires the window to its collaborators.
type Options struct {
	Prefs      *prefs.Prefs
	Logger     *slog.Logger
	Capture    *capture.Service
	Renderer   *render.Renderer
	ConfigPath string
	// StillPath is recorded in saved sessions when working from a still.
	StillPath string
}

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app     fyne.App
	session *app.Session
	opts    Options
	logger  *slog.Logger

	canvas    *canvas.VideoCanvas
	split     *container.Split
	sidePanel *panels.SidePanel
	statusBar *widget.Label
	zoomLabel *widget.Label

	sessionPath string

	// Video loop
	started  atomic.Bool
	dirty    atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	loopDone chan struct{}
}

// New creates a new main window.
func New(fyneApp fyne.App, session *app.Session, opts Options) *MainWindow {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Prefs == nil {
		opts.Prefs = prefs.Load()
	}
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window:   win,
		app:      fyneApp,
		session:  session,
		opts:     opts,
		logger:   opts.Logger,
		stopCh:   make(chan struct{}),
		loopDone: make(chan struct{}),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupShortcuts()
	mw.setupEventHandlers()

	w, h := opts.Prefs.WindowSize(1280, 800)
	mw.Resize(fyne.NewSize(float32(w), float32(h)))
	mw.SetCloseIntercept(mw.onClose)

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	message := "NO CAMERA"
	if mw.opts.Capture != nil {
		message = "WAITING FOR CAMERA"
	}
	mw.canvas = canvas.NewVideoCanvas(message)
	mw.canvas.OnPointer(mw.onPointer)
	mw.canvas.OnLeave(mw.session.ClearHover)

	mw.sidePanel = panels.NewSidePanel(mw.session)
	mw.sidePanel.Workflow().OnNextError(func(err error) {
		mw.updateStatus(err.Error())
	})
	mw.sidePanel.Workflow().OnReset(mw.onReset)
	mw.sidePanel.Samples().OnExport(mw.onExport)

	mw.statusBar = widget.NewLabel("Ready")
	mw.zoomLabel = widget.NewLabel("Zoom: 1.0x")

	toolbar := mw.createToolbar()

	canvasArea := container.NewBorder(
		toolbar,   // top
		nil,       // bottom
		nil,       // left
		nil,       // right
		mw.canvas, // center
	)

	mw.split = container.NewHSplit(
		mw.sidePanel.Container(),
		canvasArea,
	)
	mw.split.SetOffset(mw.opts.Prefs.FloatWithFallback(prefs.KeySplitOffset, 0.25))

	content := container.NewBorder(
		nil, // top
		container.NewPadded(container.NewBorder(nil, nil, nil, mw.zoomLabel, mw.statusBar)), // bottom
		nil,      // left
		nil,      // right
		mw.split, // center
	)

	mw.SetContent(content)
}

// createToolbar creates the toolbar with view controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	resetViewBtn := widget.NewButton("1:1", func() {
		mw.session.ResetView()
		mw.dirty.Store(true)
	})
	settingsBtn := widget.NewButton("Rig...", mw.onRigSettings)

	return container.NewHBox(
		widget.NewLabel("View:"),
		resetViewBtn,
		widget.NewSeparator(),
		settingsBtn,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New Session", mw.onNewSession),
		fyne.NewMenuItem("Open Session...", mw.onOpenSession),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Session", mw.onSaveSession),
		fyne.NewMenuItem("Save Session As...", mw.onSaveSessionAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export...", mw.onExport),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Clear Markers", func() { mw.onReset(app.StepCalibrate) }),
		fyne.NewMenuItem("Clear Samples", func() { mw.onReset(app.StepCollect) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Rig Settings...", mw.onRigSettings),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Reset Zoom", func() {
			mw.session.ResetView()
			mw.dirty.Store(true)
		}),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, helpMenu))
}

// setupShortcuts binds the step navigation keys.
func (mw *MainWindow) setupShortcuts() {
	mw.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if _, ok := mw.Canvas().Focused().(*widget.Entry); ok {
			return
		}
		switch ev.Name {
		case fyne.KeyReturn, fyne.KeyEnter, fyne.KeyRight:
			if err := mw.session.Next(); err != nil {
				mw.updateStatus(err.Error())
			}
		case fyne.KeyBackspace, fyne.KeyLeft:
			mw.session.Back()
		case fyne.KeyEscape:
			mw.session.ResetView()
			mw.dirty.Store(true)
		}
	})
}

// setupEventHandlers registers for session events.
func (mw *MainWindow) setupEventHandlers() {
	redraw := func(interface{}) { mw.dirty.Store(true) }
	for _, ev := range []app.EventType{
		app.EventStepChanged,
		app.EventPointsChanged,
		app.EventRectangleChanged,
		app.EventSamplesChanged,
		app.EventHoverChanged,
		app.EventConfigApplied,
		app.EventSessionLoaded,
	} {
		mw.session.On(ev, redraw)
	}

	mw.session.On(app.EventStepChanged, func(data interface{}) {
		if step, ok := data.(app.Step); ok {
			mw.updateStatus("Step: " + step.String())
		}
		mw.updateTitle()
	})
	mw.session.On(app.EventSamplesChanged, func(interface{}) { mw.updateTitle() })
	mw.session.On(app.EventPointsChanged, func(interface{}) { mw.updateTitle() })
	mw.session.On(app.EventSessionLoaded, func(interface{}) { mw.updateTitle() })
}

// Start launches the video loop. Call once before ShowAndRun.
func (mw *MainWindow) Start() {
	if mw.started.Swap(true) {
		return
	}
	if mw.opts.Capture != nil {
		mw.opts.Capture.Start()
	}
	go mw.videoLoop()
}

// videoLoop keeps the newest frame and re-renders whenever a frame arrives
// or the session changed.
func (mw *MainWindow) videoLoop() {
	defer close(mw.loopDone)
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	var current *capture.Frame
	defer func() {
		if current != nil {
			current.Close()
		}
	}()

	var frames <-chan capture.Frame
	if mw.opts.Capture != nil {
		frames = mw.opts.Capture.Frames()
	}

	lastZoom := 0.0
	for {
		select {
		case <-mw.stopCh:
			return
		case f := <-frames:
			if current != nil {
				current.Close()
			}
			current = &f
			mw.session.SetFrameSize(f.Mat.Cols(), f.Mat.Rows())
			mw.dirty.Store(true)
		case <-ticker.C:
		}

		mw.session.Tick()
		if current == nil || !mw.dirty.Swap(false) {
			continue
		}

		snap := mw.session.Snapshot()
		img, err := mw.opts.Renderer.Image(current.Mat, snap)
		if err != nil {
			continue
		}
		mw.canvas.SetImage(img)
		if snap.Zoom != lastZoom {
			lastZoom = snap.Zoom
			mw.zoomLabel.SetText(fmt.Sprintf("Zoom: %.1fx", snap.Zoom))
		}
	}
}

func (mw *MainWindow) onPointer(ev input.Event) {
	if err := mw.session.HandlePointer(ev); err != nil && !errors.Is(err, app.ErrNoFrame) {
		mw.logger.Warn("ui.pointer_failed", "error", err)
	}
	if ev.Kind == input.PointerWheel || ev.Kind == input.PointerMove {
		mw.dirty.Store(true)
	}
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) updateTitle() {
	title := appTitle
	if mw.sessionPath != "" {
		title += " - " + filepath.Base(mw.sessionPath)
	}
	if mw.session.Modified() {
		title += " *"
	}
	mw.SetTitle(title)
}

// getLastDir returns the directory stored under key as a ListableURI, or nil.
func (mw *MainWindow) getLastDir(key string) fyne.ListableURI {
	path := mw.opts.Prefs.String(key)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path under key.
func (mw *MainWindow) saveLastDir(key, filePath string) {
	mw.opts.Prefs.SetString(key, filepath.Dir(filePath))
}

func (mw *MainWindow) onReset(step app.Step) {
	switch step {
	case app.StepCollect:
		dialogs.ConfirmReset(mw.Window, "samples", func() {
			mw.session.ResetSamples()
			mw.updateStatus("Samples cleared")
		})
	default:
		dialogs.ConfirmReset(mw.Window, "calibration markers", func() {
			mw.session.ResetPoints()
			mw.updateStatus("Markers cleared")
		})
	}
}

func (mw *MainWindow) onNewSession() {
	reset := func() {
		if err := mw.session.LoadSessionFile(project.New(uuid.NewString())); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.sessionPath = ""
		mw.updateTitle()
	}
	if !mw.session.Modified() {
		reset()
		return
	}
	dialogs.ConfirmReset(mw.Window, "markers and samples of the current session", reset)
}

func (mw *MainWindow) onOpenSession() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(prefs.KeySessionDir, path)
		mw.openSession(path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	if loc := mw.getLastDir(prefs.KeySessionDir); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// OpenSession loads a saved session file, reporting failures in a dialog.
func (mw *MainWindow) OpenSession(path string) {
	mw.openSession(path)
}

func (mw *MainWindow) openSession(path string) {
	f, err := project.Load(path)
	if err == nil {
		err = mw.session.LoadSessionFile(f)
	}
	if err != nil {
		mw.logger.Warn("ui.open_session_failed", "path", path, "error", err)
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.sessionPath = path
	mw.updateTitle()
	mw.updateStatus("Session loaded: " + path)
}

func (mw *MainWindow) onSaveSession() {
	if mw.sessionPath == "" {
		mw.onSaveSessionAs()
		return
	}
	mw.saveSession(mw.sessionPath)
}

func (mw *MainWindow) onSaveSessionAs() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if !strings.HasSuffix(path, project.Ext) {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + project.Ext
		}
		mw.saveLastDir(prefs.KeySessionDir, path)
		mw.saveSession(path)
	}, mw.Window)
	name := mw.session.RequestName()
	if name == "" {
		name = "session"
	}
	fd.SetFileName(export.FileName(name, project.Ext))
	if loc := mw.getLastDir(prefs.KeySessionDir); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) saveSession(path string) {
	f := mw.session.SessionFile()
	if mw.opts.StillPath != "" {
		if abs, err := filepath.Abs(mw.opts.StillPath); err == nil {
			f.SetImage(path, abs)
		}
	}
	if err := f.Save(path); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.session.MarkSaved()
	mw.sessionPath = path
	mw.updateTitle()
	mw.updateStatus("Session saved: " + path)
}

func (mw *MainWindow) onExport() {
	snap := mw.session.Snapshot()
	if len(snap.Samples) == 0 {
		dialog.ShowError(export.ErrNoSamples, mw.Window)
		return
	}
	dialogs.NewExportDialog(snap.RequestName, snap.Samples, mw.Window, func(name string) {
		mw.session.SetRequestName(name)
		paths, err := mw.exportFiles()
		if err != nil {
			mw.logger.Warn("ui.export_failed", "error", err)
			dialog.ShowError(err, mw.Window)
			return
		}
		dialogs.ShowExported(mw.Window, paths)
		mw.updateStatus(fmt.Sprintf("Exported %d samples", len(snap.Samples)))
	}).Show()
}

func (mw *MainWindow) exportFiles() ([]string, error) {
	payload, err := mw.session.Payload()
	if err != nil {
		return nil, err
	}
	cfg := mw.session.Config()
	jsonPath, err := export.SaveJSON(cfg.Export.OutputDir, payload)
	if err != nil {
		return nil, fmt.Errorf("write json: %w", err)
	}
	csvPath, err := export.SaveCSV(cfg.Export.OutputDir, payload, cfg.Instrument())
	if err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	mw.logger.Info("ui.exported", "json", jsonPath, "csv", csvPath, "samples", len(payload.Samples))
	return []string{jsonPath, csvPath}, nil
}

func (mw *MainWindow) onRigSettings() {
	dialogs.NewRigSpecDialog(mw.session.Config(), mw.Window, func(cfg *config.Config) {
		mw.session.ApplyConfig(cfg)
		if mw.opts.ConfigPath == "" {
			return
		}
		if err := cfg.Save(mw.opts.ConfigPath); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Settings saved: " + mw.opts.ConfigPath)
	}).Show()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s v%s\n\n"+
			"Maps camera clicks on a sample holder to millimetre\n"+
			"coordinates for the instrument queue.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			appTitle, version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}

// onClose stops the video loop and persists window geometry.
func (mw *MainWindow) onClose() {
	mw.Stop()
	size := mw.Canvas().Size()
	mw.opts.Prefs.SetWindowSize(float64(size.Width), float64(size.Height))
	mw.opts.Prefs.SetFloat(prefs.KeySplitOffset, mw.split.Offset)
	if err := mw.opts.Prefs.SaveIfChanged(); err != nil {
		mw.logger.Warn("ui.prefs_save_failed", "error", err)
	}
	mw.Close()
}

// Stop ends the video loop and capture. Safe to call more than once.
func (mw *MainWindow) Stop() {
	mw.stopOnce.Do(func() {
		close(mw.stopCh)
		if mw.started.Load() {
			<-mw.loopDone
		}
		if mw.opts.Capture != nil {
			mw.opts.Capture.Stop()
		}
	})
}
