// Package project provides session file handling and persistence.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sample-calibrator/internal/calibration"
	"sample-calibrator/internal/samples"
	"sample-calibrator/pkg/geometry"
)

// FileVersion is the session file format version written by Save.
const FileVersion = 1

// Ext is the conventional session file extension.
const Ext = ".calib.json"

// File is a saved calibration session.
type File struct {
	Version     int       `json:"version"`
	ID          string    `json:"id"`
	RequestName string    `json:"request_name,omitempty"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`

	FrameWidth  int `json:"frame_width"`
	FrameHeight int `json:"frame_height"`

	// Reference still, relative to the session file.
	ImagePath string `json:"image,omitempty"`

	Rig RigSnapshot `json:"rig"`

	Points    []geometry.FramePoint  `json:"points"`
	Rectangle *calibration.Rectangle `json:"rectangle,omitempty"`
	Samples   []samples.Sample       `json:"samples"`
}

// RigSnapshot records the rig constants the session was calibrated with, so
// a saved mapping can be rebuilt even if the config changes later.
type RigSnapshot struct {
	WidthMM   float64 `json:"width_mm"`
	HeightMM  float64 `json:"height_mm"`
	Precision float64 `json:"precision"`
}

// New creates an empty session file.
func New(id string) *File {
	now := time.Now()
	return &File{
		Version:  FileVersion,
		ID:       id,
		Created:  now,
		Modified: now,
	}
}

// Load loads a session from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	if f.Version > FileVersion {
		return nil, fmt.Errorf("session %s has version %d, newest supported is %d", path, f.Version, FileVersion)
	}
	return &f, nil
}

// Save writes the session to path, stamping the modification time.
func (f *File) Save(path string) error {
	f.Modified = time.Now()
	if f.Version == 0 {
		f.Version = FileVersion
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SetImage records the reference image path relative to the session file.
func (f *File) SetImage(sessionPath, imagePath string) {
	rel, err := filepath.Rel(filepath.Dir(sessionPath), imagePath)
	if err != nil {
		f.ImagePath = imagePath
	} else {
		f.ImagePath = rel
	}
}

// GetImagePath returns the absolute path to the reference image.
func (f *File) GetImagePath(sessionPath string) string {
	if f.ImagePath == "" {
		return ""
	}
	if filepath.IsAbs(f.ImagePath) {
		return f.ImagePath
	}
	return filepath.Join(filepath.Dir(sessionPath), f.ImagePath)
}

// Calibrated reports whether the session carries a usable rectangle.
func (f *File) Calibrated() bool {
	return f.Rectangle != nil && f.Rig.WidthMM > 0 && f.Rig.HeightMM > 0
}
