// Package cmd implements the sample-calibrator command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"sample-calibrator/internal/config"
	"sample-calibrator/internal/version"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Set by PersistentPreRunE.
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sample-calibrator",
	Short: "Camera calibration and sample position capture",
	Long: `Locate samples on a holder under a fixed camera and export their
positions in millimetres.

Three markers on the rig fix the holder rectangle; clicks on the video are
then mapped to holder coordinates and written out as a JSON request and an
instrument CSV.

Examples:
  sample-calibrator                                  # Launch the GUI
  sample-calibrator ui --image frame.png             # Work from a saved frame
  sample-calibrator solve --points 410,120 --points 860,140 --points 640,560
  sample-calibrator map --session run.calib.json --pixel 500,300
  sample-calibrator csv request.json -o out/`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runUI,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Fix Fyne locale parsing error when LANG=C
	if lang := os.Getenv("LANG"); lang == "" || lang == "C" {
		os.Setenv("LANG", "en_US.UTF-8")
	}

	rootCmd.SetVersionTemplate("{{.Name}} " + version.String() + "\n")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(),
		"configuration file")
	addUIFlags(rootCmd)
}

// setup loads the configuration and logger. A missing config file is not an
// error; defaults apply.
func setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = NewLogger(cmd.ErrOrStderr(), level)

	loaded, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Debug("config.loaded", "path", configPath)
	cfg = loaded
	return nil
}
