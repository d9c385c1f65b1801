// Package config holds the runtime configuration: camera selection, rig
// geometry, view limits, grid overlay and export constants.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"sample-calibrator/internal/calibration"
	"sample-calibrator/internal/export"
	"sample-calibrator/internal/view"
)

const (
	appDir     = "sample-calibrator"
	configFile = "config.json"
)

// Config holds runtime configuration. Fields are loaded from a JSON file and
// may be overridden by command-line flags.
type Config struct {
	Camera CameraConfig `json:"camera"`
	Rig    RigConfig    `json:"rig"`
	View   ViewConfig   `json:"view"`
	Grid   GridConfig   `json:"grid"`
	Export ExportConfig `json:"export"`
}

// CameraConfig selects and orients the video source.
type CameraConfig struct {
	Index  int `json:"index"`
	Probe  int `json:"probe"` // try indices 0..Probe-1 when Index fails
	Width  int `json:"width"`
	Height int `json:"height"`
	// Flip rotates every frame by 180 degrees; the camera hangs upside down
	// over the rig.
	Flip bool `json:"flip"`
}

// RigConfig describes the physical calibration rig.
type RigConfig struct {
	TriangleSidesMM [3]float64 `json:"triangle_sides_mm"`
	WidthMM         float64    `json:"width_mm"`
	HeightMM        float64    `json:"height_mm"`
	AngleOffsetDeg  float64    `json:"angle_offset_deg"`
	Precision       float64    `json:"precision"`
	ScaleMode       string     `json:"scale_mode"` // "average" or "per-edge"
}

// ViewConfig bounds zoom and sets the pick radius at zoom 1.
type ViewConfig struct {
	MinZoom    float64 `json:"min_zoom"`
	MaxZoom    float64 `json:"max_zoom"`
	ZoomStep   float64 `json:"zoom_step"`
	PickRadius float64 `json:"pick_radius"`
}

// GridLevel selects SpacingMM when the zoom exceeds AboveZoom.
type GridLevel struct {
	AboveZoom float64 `json:"above_zoom"`
	SpacingMM float64 `json:"spacing_mm"`
}

// GridConfig controls the millimetre grid and well overlays.
type GridConfig struct {
	Levels       []GridLevel `json:"levels"`
	MajorEveryMM float64     `json:"major_every_mm"`
	// MinorAboveZoom hides minor lines until the view is zoomed past it.
	MinorAboveZoom float64 `json:"minor_above_zoom"`
	ShowWells      bool    `json:"show_wells"`
	WellRows       int     `json:"well_rows"`
	WellCols       int     `json:"well_cols"`
}

// ExportConfig holds file naming and the instrument CSV constants.
type ExportConfig struct {
	OutputDir  string  `json:"output_dir"`
	IndexWidth int     `json:"index_width"`
	JobType    string  `json:"job_type"`
	SampleType string  `json:"sample_type"`
	Phi        float64 `json:"phi"`
	Zeta       string  `json:"zeta"`
	Det        float64 `json:"det"`
	Theta      float64 `json:"theta"`
	RunNumber  int     `json:"run_number"`
}

// DefaultConfig returns a Config populated with the standard rig values.
func DefaultConfig() *Config {
	return &Config{
		Camera: CameraConfig{
			Index:  0,
			Probe:  5,
			Width:  1280,
			Height: 720,
			Flip:   true,
		},
		Rig: RigConfig{
			TriangleSidesMM: [3]float64{142.408, 142.408, 142.408},
			WidthMM:         130,
			HeightMM:        120,
			AngleOffsetDeg:  5,
			Precision:       10,
			ScaleMode:       calibration.ScaleAverage.String(),
		},
		View: ViewConfig{
			MinZoom:    1,
			MaxZoom:    10,
			ZoomStep:   1.2,
			PickRadius: 15,
		},
		Grid: GridConfig{
			Levels: []GridLevel{
				{AboveZoom: 6, SpacingMM: 1},
				{AboveZoom: 2.5, SpacingMM: 5},
				{AboveZoom: 0, SpacingMM: 10},
			},
			MajorEveryMM:   10,
			MinorAboveZoom: 2,
			ShowWells:      false,
			WellRows:       8,
			WellCols:       12,
		},
		Export: ExportConfig{
			OutputDir:  ".",
			IndexWidth: 2,
			JobType:    "rbs",
			SampleType: "rbs_random",
			Phi:        15,
			Zeta:       "",
			Det:        0.15,
			Theta:      170,
			RunNumber:  11,
		},
	}
}

// Validate clamps values to safe ranges. It only errors on values that
// cannot be repaired, such as a non-positive reference side.
func (c *Config) Validate() error {
	d := DefaultConfig()

	if c.Camera.Probe <= 0 {
		c.Camera.Probe = d.Camera.Probe
	}
	if c.Camera.Index < 0 {
		c.Camera.Index = 0
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		c.Camera.Width, c.Camera.Height = 0, 0
	}

	for i, s := range c.Rig.TriangleSidesMM {
		if s <= 0 {
			return fmt.Errorf("rig.triangle_sides_mm[%d] must be positive, got %v", i, s)
		}
	}
	if c.Rig.WidthMM <= 0 {
		c.Rig.WidthMM = d.Rig.WidthMM
	}
	if c.Rig.HeightMM <= 0 {
		c.Rig.HeightMM = d.Rig.HeightMM
	}
	if c.Rig.Precision <= 0 {
		c.Rig.Precision = d.Rig.Precision
	}
	c.Rig.ScaleMode = calibration.ParseScaleMode(c.Rig.ScaleMode).String()

	if c.View.MinZoom < 1 {
		c.View.MinZoom = 1
	}
	if c.View.MaxZoom < c.View.MinZoom {
		c.View.MaxZoom = c.View.MinZoom
	}
	if c.View.ZoomStep <= 1 {
		c.View.ZoomStep = d.View.ZoomStep
	}
	if c.View.PickRadius <= 0 {
		c.View.PickRadius = d.View.PickRadius
	}

	levels := c.Grid.Levels[:0]
	for _, l := range c.Grid.Levels {
		if l.SpacingMM > 0 {
			levels = append(levels, l)
		}
	}
	if len(levels) == 0 {
		levels = d.Grid.Levels
	}
	sort.SliceStable(levels, func(i, j int) bool { return levels[i].AboveZoom > levels[j].AboveZoom })
	c.Grid.Levels = levels
	if c.Grid.MajorEveryMM < 0 {
		c.Grid.MajorEveryMM = 0
	}
	if c.Grid.WellRows <= 0 {
		c.Grid.WellRows = d.Grid.WellRows
	}
	if c.Grid.WellCols <= 0 {
		c.Grid.WellCols = d.Grid.WellCols
	}

	if c.Export.IndexWidth < 1 {
		c.Export.IndexWidth = 1
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = d.Export.OutputDir
	}
	if c.Export.JobType == "" {
		c.Export.JobType = d.Export.JobType
	}
	if c.Export.SampleType == "" {
		c.Export.SampleType = d.Export.SampleType
	}
	return nil
}

// Solver returns the rectangle solver for the configured rig.
func (c *Config) Solver() calibration.Solver {
	// The long side runs along the rig width.
	short, long := c.Rig.HeightMM, c.Rig.WidthMM
	if short > long {
		short, long = long, short
	}
	return calibration.Solver{
		TriangleSidesMM: c.Rig.TriangleSidesMM,
		ShortSideMM:     short,
		LongSideMM:      long,
		AngleOffsetDeg:  c.Rig.AngleOffsetDeg,
		Scale:           calibration.ParseScaleMode(c.Rig.ScaleMode),
	}
}

// ViewLimits returns the zoom limits for view.State.
func (c *Config) ViewLimits() view.Limits {
	return view.Limits{MinZoom: c.View.MinZoom, MaxZoom: c.View.MaxZoom, ZoomStep: c.View.ZoomStep}
}

// Instrument returns the per-sample CSV constants.
func (c *Config) Instrument() export.Instrument {
	return export.Instrument{
		JobType:    c.Export.JobType,
		SampleType: c.Export.SampleType,
		Phi:        c.Export.Phi,
		Zeta:       c.Export.Zeta,
		Det:        c.Export.Det,
		Theta:      c.Export.Theta,
		RunNumber:  c.Export.RunNumber,
	}
}

// GridSpacing returns the grid spacing in millimetres for the given zoom:
// the first level whose threshold the zoom strictly exceeds.
func (c *Config) GridSpacing(zoom float64) float64 {
	for _, l := range c.Grid.Levels {
		if zoom > l.AboveZoom {
			return l.SpacingMM
		}
	}
	if n := len(c.Grid.Levels); n > 0 {
		return c.Grid.Levels[n-1].SpacingMM
	}
	return 10
}

// ShowMinorGrid reports whether minor grid lines are drawn at this zoom.
func (c *Config) ShowMinorGrid(zoom float64) bool {
	return zoom > c.Grid.MinorAboveZoom
}

// DefaultPath returns the config location under the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, appDir, configFile)
}

// Load reads configuration from the given JSON file. A missing file yields
// DefaultConfig(); on a decode error the defaults are returned with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()

	// Decode over the defaults so absent keys keep their default values.
	// Grid levels replace the default list wholesale.
	cfg.Grid.Levels = nil
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path as indented JSON, creating the
// directory if needed.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
