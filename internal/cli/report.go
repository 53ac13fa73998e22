package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"runtelemetry/internal/deprecate"
	"runtelemetry/internal/summary"
	"runtelemetry/internal/telemetry"
	"runtelemetry/internal/telemetry/client"
	"runtelemetry/internal/telemetry/detect"
	"runtelemetry/internal/telemetry/domain"
)

func newReportCmd() *cobra.Command {
	var (
		addr          string
		token         string
		insecure      bool
		timeout       time.Duration
		runID         string
		entity        string
		project       string
		file          string
		initModules   []string
		finishModules []string
		deprecated    []string
		watchFiles    []string
		watchBins     int
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Send a run's telemetry report to the ingestion service",
		Long: "Report finishes a run's telemetry record and sends it once to the ingestion service. The record may be " +
			"read from a JSON file and extended with detected imports. Entity, project, run id and the api key used as " +
			"bearer token default to the client settings (settings files and TRACKER_* environment). The hosting " +
			"environment (Kaggle, Jupyter) is detected from the process environment. --watch summarizes each file's " +
			"numbers as a parameter histogram and marks the run as watched; --deprecated records deprecated features " +
			"the run used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			runID = firstNonEmpty(runID, s.String("run_id"), uuid.NewString())
			entity = firstNonEmpty(entity, s.String("entity"))
			project = firstNonEmpty(project, s.String("project"))
			token = firstNonEmpty(token, s.String("api_key"))

			var base domain.Record
			if file != "" {
				in, err := readInput(cmd, file)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(in, &base); err != nil {
					return fmt.Errorf("report: parse record: %w", err)
				}
			}

			features := make([]domain.DeprecatedFeature, 0, len(deprecated))
			for _, name := range deprecated {
				f, err := domain.ParseDeprecatedFeature(strings.TrimSpace(name))
				if err != nil {
					return fmt.Errorf("report: %w", err)
				}
				features = append(features, f)
			}
			params, err := readTensors(cmd, watchFiles)
			if err != nil {
				return fmt.Errorf("report: %w", err)
			}

			reporter, err := client.Dial(client.Options{Addr: addr, Token: token, Insecure: insecure, Timeout: timeout})
			if err != nil {
				return err
			}
			defer reporter.Close()

			rec := telemetry.NewRecorder(runID, entity, project, reporter)
			rec.Update(func(tel *domain.Record) {
				tel.Merge(base)
				if cmd.Flags().Changed("init") {
					detect.Populate(tel, detect.PhaseInit, initModules)
				}
				if cmd.Flags().Changed("finish") {
					detect.Populate(tel, detect.PhaseFinish, finishModules)
				}
				if env := detect.Environment(os.Getenv); len(env.Enabled()) > 0 {
					tel.Environment().Merge(env)
				}
				if !tel.HasCLIVersion() {
					tel.SetCLIVersion(Version)
				}
			})
			for _, f := range features {
				if err := deprecate.Deprecate(rec, f, deprecate.Message(f)); err != nil {
					return fmt.Errorf("report: %w", err)
				}
			}
			if len(params) > 0 {
				watcher := summary.NewWatcher(rec, summary.WatchOptions{Parameters: true, Bins: watchBins})
				hists, err := watcher.Summarize(0, params, nil)
				if err != nil {
					return fmt.Errorf("report: watch: %w", err)
				}
				for _, key := range sortedKeys(hists) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d values in %d bins\n", key, hists[key].Total(), len(hists[key].Values))
				}
			}
			if _, err := rec.Finish(context.Background()); err != nil {
				return fmt.Errorf("report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "accepted run %s\n", runID)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "ingestion service address (host:port)")
	cmd.Flags().StringVar(&token, "token", "", "reporter bearer token (default: api_key setting)")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "connect without TLS")
	cmd.Flags().DurationVar(&timeout, "timeout", client.DefaultTimeout, "RPC timeout")
	cmd.Flags().StringVar(&runID, "run-id", "", "run id (default: run_id setting or a new uuid)")
	cmd.Flags().StringVar(&entity, "entity", "", "entity (default: entity setting)")
	cmd.Flags().StringVar(&project, "project", "", "project (default: project setting)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON record to start from")
	cmd.Flags().StringSliceVar(&initModules, "init", nil, "modules loaded when the run started")
	cmd.Flags().StringSliceVar(&finishModules, "finish", nil, "modules loaded when the run finished")
	cmd.Flags().StringSliceVar(&deprecated, "deprecated", nil, "deprecated features the run used (e.g. run__join)")
	cmd.Flags().StringSliceVar(&watchFiles, "watch", nil, "files of whitespace-separated numbers to summarize as watched parameters")
	cmd.Flags().IntVar(&watchBins, "watch-bins", summary.DefaultBins, "buckets per watched parameter histogram")
	return cmd
}

// readTensors reads each file as a parameter tensor named after the file without its extension.
func readTensors(cmd *cobra.Command, paths []string) (map[string][]float64, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	out := make(map[string][]float64, len(paths))
	for _, path := range paths {
		in, err := readInput(cmd, path)
		if err != nil {
			return nil, err
		}
		values, err := parseNumbers(in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		out[name] = values
	}
	return out, nil
}

func sortedKeys(m map[string]*summary.Histogram) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
