package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Martificial-UK/trail/internal/runtime"
	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

// newLogCommand constructs the `log` subcommand. It records one event and
// flushes before exiting so the record is durable when the process ends.
func newLogCommand(lg logpkg.Logger) *cobra.Command {
	logCmd := &cobra.Command{
		Use:   "log <kind>",
		Short: "Record one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			entity, _ := cmd.Flags().GetString("entity")
			detailsJSON, _ := cmd.Flags().GetString("details")

			var details map[string]any
			if detailsJSON != "" {
				if err := json.Unmarshal([]byte(detailsJSON), &details); err != nil {
					return fmt.Errorf("invalid --details: %w", err)
				}
			}

			rt, err := runtime.Open(runtime.Options{
				DataDir: resolveDir(cmd, cfg),
				Config:  cfg,
				Logger:  lg,
			})
			if err != nil {
				return err
			}
			defer rt.Close(cmd.Context())

			if err := rt.Audit().LogEvent(args[0], entity, details); err != nil {
				return err
			}
			return rt.Audit().Flush(cmd.Context())
		},
	}
	logCmd.Flags().StringP("entity", "e", "", "Entity id the event belongs to")
	logCmd.Flags().StringP("details", "d", "", "Event details as a JSON object")
	return logCmd
}
