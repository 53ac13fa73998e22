// Package cli implements telctl, the command line for run telemetry: inspecting and encoding
// records, summarizing tensors, sending reports and managing client settings and reporter tokens.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "telctl",
		Short: "Run telemetry toolkit",
		Long:  "telctl builds, encodes and sends the telemetry record a tracked run reports, and manages client settings and reporter tokens.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}

	root.AddCommand(
		newDetectCmd(),
		newEncodeCmd(),
		newDecodeCmd(),
		newHistogramCmd(),
		newReportCmd(),
		newTokenCmd(),
		newSettingsCmd(),
	)

	root.Version = Version
	root.SetVersionTemplate(fmt.Sprintf("telctl %s\n", Version))

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
