package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"runtelemetry/internal/settings"
)

// loadSettings resolves the client settings from the environment, the system settings file
// and the workspace settings file. Source priority, not load order, decides which value wins,
// so the environment is applied first to locate the system file.
func loadSettings() (*settings.Settings, error) {
	s := settings.New()
	if err := s.ApplyEnviron(settings.Environ()); err != nil {
		return nil, err
	}
	if err := s.LoadFile(expandHome(s.String("settings_system_spec")), settings.SourceSystem); err != nil {
		return nil, err
	}
	if err := s.LoadFile(s.String("settings_workspace_spec"), settings.SourceWorkspace); err != nil {
		return nil, err
	}
	return s, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change client settings",
		Long: "Settings resolves the tracking client's settings from defaults, the system and workspace settings " +
			"files and TRACKER_* environment variables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newSettingsShowCmd(), newSettingsGetCmd(), newSettingsSetCmd())
	return cmd
}

func newSettingsShowCmd() *cobra.Command {
	var (
		unsafe  bool
		sources bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print every resolved setting",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			values := s.Static()
			if !unsafe {
				values = settings.Redact(values, nil, "")
			}
			w := cmd.OutOrStdout()
			for _, key := range s.Keys() {
				v := values[key]
				if v == nil {
					v = ""
				}
				if sources {
					src, _ := s.Source(key)
					fmt.Fprintf(w, "%s=%v\t(%s)\n", key, v, src)
					continue
				}
				fmt.Fprintf(w, "%s=%v\n", key, v)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&unsafe, "unsafe", false, "print secrets such as api_key")
	cmd.Flags().BoolVar(&sources, "sources", false, "print where each value came from")
	return cmd
}

func newSettingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one resolved setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			v, err := s.Get(args[0])
			if err != nil {
				return err
			}
			if v == nil {
				v = ""
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	var workspace bool
	cmd := &cobra.Command{
		Use:   "set <key=value>...",
		Short: "Persist settings to the system or workspace settings file",
		Long:  "Set validates each key=value pair and stores it in the system settings file, or the workspace file with --workspace.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs := make(map[string]string, len(args))
			values := make(map[string]any, len(args))
			for _, arg := range args {
				k, v, ok := strings.Cut(arg, "=")
				if !ok || k == "" {
					return fmt.Errorf("settings: %q is not key=value", arg)
				}
				pairs[k] = v
				values[k] = v
			}
			s, err := loadSettings()
			if err != nil {
				return err
			}
			if err := s.Copy().Update(values, settings.SourceArgs); err != nil {
				return err
			}

			path := expandHome(s.String("settings_system_spec"))
			if workspace {
				path = s.String("settings_workspace_spec")
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("settings: %w", err)
			}
			if err := settings.WriteFile(path, pairs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d setting(s) to %s\n", len(pairs), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&workspace, "workspace", false, "write the workspace settings file instead of the system one")
	return cmd
}
