package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"runtelemetry/internal/summary"
)

func newHistogramCmd() *cobra.Command {
	var (
		file string
		bins int
	)
	cmd := &cobra.Command{
		Use:   "histogram",
		Short: "Summarize numbers as a histogram",
		Long: "Histogram reads whitespace-separated numbers and prints the equal-width histogram summary a run " +
			"would log for them. NaN and infinite values are ignored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			values, err := parseNumbers(in)
			if err != nil {
				return fmt.Errorf("histogram: %w", err)
			}
			h, err := summary.NewHistogram(values, bins)
			if err != nil {
				return fmt.Errorf("histogram: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), h)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "input file (default stdin)")
	cmd.Flags().IntVar(&bins, "bins", summary.DefaultBins, fmt.Sprintf("number of buckets (max %d)", summary.MaxBins))
	return cmd
}
