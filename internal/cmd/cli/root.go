package cli

import (
	"github.com/spf13/cobra"

	cfgpkg "github.com/Martificial-UK/trail/internal/config"
	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

// NewRoot constructs the root command with all subcommands registered.
func NewRoot(lg logpkg.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "trail",
		Short:         "Append-only audit log",
		Long:          "Trail records, queries, and summarizes audit events stored in local segment files.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("data-dir", "", "Segment directory (default: config dataDir, else OS data dir)")
	root.PersistentFlags().String("config", "", "Path to JSON config file")

	root.AddCommand(
		newLogCommand(lg),
		newQueryCommand(lg),
		newErrorsCommand(lg),
		newStatsCommand(lg),
		newExportCommand(lg),
		newVerifyCommand(lg),
	)
	return root
}

// loadConfig layers defaults, the optional --config file, and TRAIL_* env.
func loadConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return cfgpkg.Load(path)
}

// resolveDir picks the segment directory for this invocation.
func resolveDir(cmd *cobra.Command, cfg cfgpkg.Config) string {
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		return dir
	}
	if cfg.DataDir != "" {
		return cfg.DataDir
	}
	return cfgpkg.DefaultDataDir()
}
