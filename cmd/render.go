package cmd

import (
	"errors"
	"fmt"

	"sample-calibrator/internal/app"
	"sample-calibrator/internal/project"
	"sample-calibrator/internal/render"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"
)

var (
	renderSession string
	renderImage   string
	renderOut     string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Draw a saved session's overlays onto an image",
	Long: `Draw the markers, holder rectangle, grid and samples of a saved session
onto a still image and write the result, for records or review.

The image defaults to the reference still stored with the session.

Examples:
  sample-calibrator render --session run.calib.json --out run.png
  sample-calibrator render --session run.calib.json --image frame.png --out run.png`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renderSession, "session", "s", "", "session file")
	renderCmd.Flags().StringVarP(&renderImage, "image", "i", "", "input image (default: the session's still)")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "output image")
	renderCmd.MarkFlagRequired("session")
	renderCmd.MarkFlagRequired("out")
}

func runRender(cmd *cobra.Command, args []string) error {
	f, err := project.Load(renderSession)
	if err != nil {
		return err
	}
	imagePath := renderImage
	if imagePath == "" {
		imagePath = f.GetImagePath(renderSession)
	}
	if imagePath == "" {
		return errors.New("no --image given and the session has no reference still")
	}

	img := gocv.IMRead(imagePath, gocv.IMReadColor)
	if img.Empty() {
		return fmt.Errorf("read image %s: empty or unsupported", imagePath)
	}
	defer img.Close()

	session := app.NewSession(cfg, logger)
	if err := session.LoadSessionFile(f); err != nil {
		return err
	}
	session.SetFrameSize(img.Cols(), img.Rows())

	out := render.New(logger).Still(img, session.Snapshot())
	defer out.Close()
	if !gocv.IMWrite(renderOut, out) {
		return fmt.Errorf("write image %s failed", renderOut)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", renderOut)
	return nil
}
