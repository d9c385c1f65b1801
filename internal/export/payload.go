// Package export serialises collected samples: the JSON payload handed to
// the instrument queue and its CSV rendition.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"sample-calibrator/internal/samples"
)

var (
	// ErrMissingRequestName is returned when no request name was entered.
	ErrMissingRequestName = errors.New("request name is required")
	// ErrNoSamples is returned when there is nothing to export.
	ErrNoSamples = errors.New("no samples to export")
)

// Payload is the exported request.
type Payload struct {
	RequestName string      `json:"request_name"`
	SessionID   string      `json:"session_id,omitempty"`
	Samples     []SampleRow `json:"samples"`
}

// SampleRow is one exported sample. Coordinates are millimetres rounded to
// two decimals.
type SampleRow struct {
	File     string  `json:"file"`
	SampleID string  `json:"sample_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// NewPayload builds a payload from sample records in order.
func NewPayload(requestName, sessionID string, records []samples.Record) (Payload, error) {
	requestName = strings.TrimSpace(requestName)
	if requestName == "" {
		return Payload{}, ErrMissingRequestName
	}
	if len(records) == 0 {
		return Payload{}, ErrNoSamples
	}
	p := Payload{
		RequestName: requestName,
		SessionID:   sessionID,
		Samples:     make([]SampleRow, len(records)),
	}
	for i, r := range records {
		p.Samples[i] = SampleRow{
			File:     r.FileIndex,
			SampleID: r.Label,
			X:        round2(r.XMM),
			Y:        round2(r.YMM),
		}
	}
	return p, nil
}

// WriteJSON writes the payload as indented JSON.
func WriteJSON(w io.Writer, p Payload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(p)
}

// ReadJSON decodes and checks a payload.
func ReadJSON(r io.Reader) (Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	if strings.TrimSpace(p.RequestName) == "" {
		return Payload{}, ErrMissingRequestName
	}
	if p.Samples == nil {
		return Payload{}, fmt.Errorf("decode payload: missing samples: %w", ErrNoSamples)
	}
	return p, nil
}

// ReadJSONFile reads a payload from disk.
func ReadJSONFile(path string) (Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return Payload{}, err
	}
	defer f.Close()
	return ReadJSON(f)
}

// SaveJSON writes the payload to dir/<request>.json and returns the path.
func SaveJSON(dir string, p Payload) (string, error) {
	path := filepath.Join(dir, FileName(p.RequestName, ".json"))
	if err := writeFile(path, func(w io.Writer) error { return WriteJSON(w, p) }); err != nil {
		return "", err
	}
	return path, nil
}

// FileName derives a file name from a request name, replacing characters
// that are unsafe in paths.
func FileName(requestName, ext string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(requestName))
	if name == "" {
		name = "samples"
	}
	return name + ext
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
