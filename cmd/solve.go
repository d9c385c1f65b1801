package cmd

import (
	"encoding/json"
	"fmt"

	"sample-calibrator/internal/calibration"
	"sample-calibrator/pkg/geometry"

	"github.com/spf13/cobra"
)

var (
	solvePoints []string
	solveJSON   bool
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve the holder rectangle from three marker positions",
	Long: `Compute the sample holder rectangle from the pixel positions of the
three rig markers, using the rig geometry from the configuration.

Examples:
  sample-calibrator solve --points 410,120 --points 860,140 --points 640,560
  sample-calibrator solve --json --points 410,120 --points 860,140 --points 640,560`,
	RunE: runSolve,
}

func init() {
	rootCmd.AddCommand(solveCmd)
	solveCmd.Flags().StringArrayVarP(&solvePoints, "points", "p", nil, "marker pixel position x,y (three times)")
	solveCmd.Flags().BoolVar(&solveJSON, "json", false, "output as JSON")
	solveCmd.MarkFlagRequired("points")
}

// solveResult is the JSON form of a solved rectangle.
type solveResult struct {
	Center          geometry.FramePoint    `json:"center"`
	Width           float64                `json:"width_px"`
	Height          float64                `json:"height_px"`
	RotationDegrees float64                `json:"rotation_deg"`
	PixelsPerMM     float64                `json:"pixels_per_mm"`
	Corners         [4]geometry.FramePoint `json:"corners"`
}

func runSolve(cmd *cobra.Command, args []string) error {
	pts, err := parseFramePoints(solvePoints)
	if err != nil {
		return err
	}
	if len(pts) != calibration.PointCount {
		return fmt.Errorf("need exactly %d --points, got %d", calibration.PointCount, len(pts))
	}

	rect, err := cfg.Solver().Solve([3]geometry.FramePoint{pts[0], pts[1], pts[2]})
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}
	logger.Debug("solve.done", "center_x", rect.Center.X, "center_y", rect.Center.Y, "ppm", rect.PixelsPerMM)

	out := cmd.OutOrStdout()
	if solveJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(solveResult{
			Center:          rect.Center,
			Width:           rect.Width,
			Height:          rect.Height,
			RotationDegrees: rect.RotationDegrees,
			PixelsPerMM:     rect.PixelsPerMM,
			Corners:         rect.Corners,
		})
	}

	fmt.Fprintf(out, "Center:    (%.2f, %.2f) px\n", rect.Center.X, rect.Center.Y)
	fmt.Fprintf(out, "Size:      %.2f x %.2f px\n", rect.Width, rect.Height)
	fmt.Fprintf(out, "Rotation:  %.2f deg\n", rect.RotationDegrees)
	fmt.Fprintf(out, "Scale:     %.4f px/mm\n", rect.PixelsPerMM)
	for i, c := range rect.Corners {
		fmt.Fprintf(out, "Corner %d:  (%.2f, %.2f)\n", i, c.X, c.Y)
	}
	return nil
}
