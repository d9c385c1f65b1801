package cmd

import (
	"fmt"

	"sample-calibrator/internal/export"

	"github.com/spf13/cobra"
)

var csvOutDir string

var csvCmd = &cobra.Command{
	Use:   "csv <payload.json>",
	Short: "Convert an exported JSON request to the instrument CSV",
	Long: `Read a JSON request written by the GUI export and write the matching
instrument CSV, using the instrument constants from the configuration.

Examples:
  sample-calibrator csv request.json
  sample-calibrator csv request.json -o out/`,
	Args: cobra.ExactArgs(1),
	RunE: runCSV,
}

func init() {
	rootCmd.AddCommand(csvCmd)
	csvCmd.Flags().StringVarP(&csvOutDir, "out", "o", ".", "output directory")
}

func runCSV(cmd *cobra.Command, args []string) error {
	p, err := export.ReadJSONFile(args[0])
	if err != nil {
		return err
	}
	path, err := export.SaveCSV(csvOutDir, p, cfg.Instrument())
	if err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	logger.Info("export.csv", "path", path, "samples", len(p.Samples))
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d samples)\n", path, len(p.Samples))
	return nil
}
