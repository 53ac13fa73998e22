package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"runtelemetry/internal/telemetry/detect"
	"runtelemetry/internal/telemetry/domain"
)

func newDetectCmd() *cobra.Command {
	var (
		initModules   []string
		finishModules []string
		withEnv       bool
	)
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Build a telemetry record from loaded modules",
		Long: "Detect fills the imports flags and framework of a telemetry record from the module names a run " +
			"loaded at init and at finish, and optionally the hosting environment, then prints the record as JSON.",
		Example: "  telctl detect --init torch,pytorch_lightning.trainer --finish torch,transformers --env",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rec domain.Record
			if cmd.Flags().Changed("init") {
				detect.Populate(&rec, detect.PhaseInit, initModules)
			}
			if cmd.Flags().Changed("finish") {
				detect.Populate(&rec, detect.PhaseFinish, finishModules)
			}
			if withEnv {
				env := detect.Environment(os.Getenv)
				rec.Environment().Merge(env)
			}
			if err := writeJSON(cmd.OutOrStdout(), &rec); err != nil {
				return fmt.Errorf("detect: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&initModules, "init", nil, "modules loaded when the run started")
	cmd.Flags().StringSliceVar(&finishModules, "finish", nil, "modules loaded when the run finished")
	cmd.Flags().BoolVar(&withEnv, "env", false, "detect the hosting environment from the process environment")
	return cmd
}
