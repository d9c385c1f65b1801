package export

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// csvColumns is the width of the instrument sheet's header block.
const csvColumns = 10

// Instrument holds the fixed per-sample measurement settings written to
// every CSV row.
type Instrument struct {
	JobType    string
	SampleType string
	Phi        float64
	Zeta       string
	Det        float64
	Theta      float64
	RunNumber  int
}

// DefaultInstrument returns the RBS random-geometry settings.
func DefaultInstrument() Instrument {
	return Instrument{
		JobType:    "rbs",
		SampleType: "rbs_random",
		Phi:        15,
		Zeta:       "",
		Det:        0.15,
		Theta:      170,
		RunNumber:  11,
	}
}

// WriteCSV renders the payload in the instrument's import layout: a job
// header block, a blank row, the sample header, then one row per sample.
func WriteCSV(w io.Writer, p Payload, inst Instrument) error {
	cw := csv.NewWriter(w)

	rows := [][]string{
		padRow("name", "job_type"),
		padRow(p.RequestName, inst.JobType),
		padRow(),
		{"type", "sample_name", "charge_total", "x", "y", "phi", "zeta", "det", "theta"},
	}
	for _, s := range p.Samples {
		rows = append(rows, []string{
			inst.SampleType,
			s.SampleID,
			p.RequestName + "_" + s.File,
			formatCoord(s.X),
			formatCoord(s.Y),
			formatFloat(inst.Phi),
			inst.Zeta,
			formatFloat(inst.Det),
			formatFloat(inst.Theta),
			strconv.Itoa(inst.RunNumber),
		})
	}

	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// SaveCSV writes the payload to dir/<request>.csv and returns the path.
func SaveCSV(dir string, p Payload, inst Instrument) (string, error) {
	path := filepath.Join(dir, FileName(p.RequestName, ".csv"))
	if err := writeFile(path, func(w io.Writer) error { return WriteCSV(w, p, inst) }); err != nil {
		return "", err
	}
	return path, nil
}

func padRow(cells ...string) []string {
	row := make([]string, csvColumns)
	copy(row, cells)
	return row
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatCoord writes a coordinate the way the instrument importer reads
// floats: whole numbers keep a trailing ".0".
func formatCoord(v float64) string {
	s := formatFloat(v)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
