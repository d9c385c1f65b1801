package cmd

import (
	"errors"
	"fmt"

	"sample-calibrator/internal/mapping"
	"sample-calibrator/internal/project"
	"sample-calibrator/pkg/geometry"

	"github.com/spf13/cobra"
)

var (
	mapSession string
	mapPixels  []string
	mapMM      []string
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Convert between pixels and millimetres using a saved session",
	Long: `Rebuild the pixel-to-millimetre mapping of a calibrated session and
convert positions in either direction.

Examples:
  sample-calibrator map --session run.calib.json --pixel 500,300
  sample-calibrator map --session run.calib.json --mm 65,60`,
	RunE: runMap,
}

func init() {
	rootCmd.AddCommand(mapCmd)
	mapCmd.Flags().StringVarP(&mapSession, "session", "s", "", "calibrated session file")
	mapCmd.Flags().StringArrayVar(&mapPixels, "pixel", nil, "frame pixel x,y to convert to mm")
	mapCmd.Flags().StringArrayVar(&mapMM, "mm", nil, "holder position x,y in mm to convert to pixels")
	mapCmd.MarkFlagRequired("session")
}

// mapperFromSession rebuilds the mapping saved in a session file.
func mapperFromSession(f *project.File) (*mapping.Mapper, error) {
	if !f.Calibrated() {
		return nil, errors.New("session has no calibrated rectangle")
	}
	return mapping.Build(f.Rectangle.Corners, f.Rig.WidthMM, f.Rig.HeightMM, f.Rig.Precision)
}

func runMap(cmd *cobra.Command, args []string) error {
	if len(mapPixels) == 0 && len(mapMM) == 0 {
		return errors.New("give at least one --pixel or --mm")
	}
	pixels, err := parseFramePoints(mapPixels)
	if err != nil {
		return err
	}
	f, err := project.Load(mapSession)
	if err != nil {
		return err
	}
	m, err := mapperFromSession(f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, p := range pixels {
		mm, err := m.PixelToMM(p)
		if err != nil {
			fmt.Fprintf(out, "(%.1f, %.1f) px -> %v\n", p.X, p.Y, err)
			continue
		}
		fmt.Fprintf(out, "(%.1f, %.1f) px -> (%.2f, %.2f) mm\n", p.X, p.Y, mm.X, mm.Y)
	}

	for _, v := range mapMM {
		x, y, err := parsePair(v)
		if err != nil {
			return err
		}
		p := m.MMToPixel(geometry.RealPoint{X: x, Y: y})
		fmt.Fprintf(out, "(%.2f, %.2f) mm -> (%.1f, %.1f) px\n", x, y, p.X, p.Y)
	}
	return nil
}
