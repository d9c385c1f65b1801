package cmd

import (
	"fmt"
	"time"

	"sample-calibrator/internal/app"
	"sample-calibrator/internal/capture"
	"sample-calibrator/internal/render"
	"sample-calibrator/ui/mainwindow"
	"sample-calibrator/ui/prefs"
	"sample-calibrator/ui/theme"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"
)

const (
	appID          = "org.samplecalibrator.app"
	reloadInterval = 2 * time.Second
	stillInterval  = 100 * time.Millisecond
)

var (
	cameraIndex int
	stillImage  string
	sessionFile string
	noFlip      bool
	noCamera    bool
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the calibration GUI",
	Long: `Launch the graphical workflow: mark the three rig markers, check the
solved holder rectangle, then click samples to collect their positions.

Examples:
  # Use the configured camera
  sample-calibrator ui

  # Work from a saved frame instead of the camera
  sample-calibrator ui --image frame.png

  # Resume a saved session
  sample-calibrator ui --session run.calib.json`,
	RunE: runUI,
}

func init() {
	rootCmd.AddCommand(uiCmd)
	addUIFlags(uiCmd)
}

func addUIFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&cameraIndex, "camera", -1, "camera index (overrides config)")
	cmd.Flags().StringVar(&stillImage, "image", "", "use a still image instead of the camera")
	cmd.Flags().StringVar(&sessionFile, "session", "", "session file to open")
	cmd.Flags().BoolVar(&noFlip, "no-flip", false, "do not rotate frames by 180 degrees")
	cmd.Flags().BoolVar(&noCamera, "no-camera", false, "start without a video source")
}

func openSource() (capture.Source, error) {
	if stillImage != "" {
		return capture.OpenStill(stillImage, stillInterval)
	}
	camCfg := cfg.Camera
	if cameraIndex >= 0 {
		camCfg.Index = cameraIndex
	}
	return capture.OpenCamera(camCfg, logger)
}

func runUI(cmd *cobra.Command, args []string) error {
	session := app.NewSession(cfg, logger)

	var svc *capture.Service
	if !noCamera {
		src, err := openSource()
		if err != nil {
			// The GUI still opens so saved sessions can be reviewed.
			logger.Warn("capture.unavailable", "error", err)
		} else {
			defer src.Close()
			flip := cfg.Camera.Flip && !noFlip && stillImage == ""
			svc = capture.NewService(src, flip, logger)
			w, h := src.Size()
			session.SetFrameSize(w, h)
		}
	}

	reloader := app.NewConfigReloader(configPath, reloadInterval, logger)
	reloader.OnReload(session.ApplyConfig)
	reloader.Start()
	defer reloader.Stop()

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&theme.CalibratorTheme{})

	win := mainwindow.New(fyneApp, session, mainwindow.Options{
		Prefs:      prefs.Load(),
		Logger:     logger,
		Capture:    svc,
		Renderer:   render.New(logger),
		ConfigPath: configPath,
		StillPath:  stillImage,
	})
	if sessionFile != "" {
		win.OpenSession(sessionFile)
	}

	logger.Info("ui.start", "config", configPath, "camera", svc != nil)
	win.Start()
	win.ShowAndRun()
	win.Stop()

	if session.Modified() {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: session closed with unsaved changes")
	}
	return nil
}
