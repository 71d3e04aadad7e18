package cli

import (
	"github.com/spf13/cobra"

	"github.com/Martificial-UK/trail/internal/query"
	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

// newErrorsCommand constructs the `errors` subcommand, a shorthand for
// `query --kind error`.
func newErrorsCommand(lg logpkg.Logger) *cobra.Command {
	errorsCmd := &cobra.Command{
		Use:   "errors",
		Short: "Show error events, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			f.Kind = "error"
			return runQuery(cmd, lg, f)
		},
	}
	errorsCmd.Flags().String("entity", "", "Exact entity id")
	errorsCmd.Flags().String("since", "", "Lower time bound: RFC3339 or unix ms")
	errorsCmd.Flags().String("until", "", "Upper time bound: RFC3339 or unix ms")
	errorsCmd.Flags().String("last", "", "Relative window, e.g. 90m, 24h, 7d, 1w (overrides --since)")
	errorsCmd.Flags().String("contains", "", "Substring match over kind, entity and details")
	errorsCmd.Flags().Int("limit", query.DefaultLimit, "Maximum results")
	errorsCmd.Flags().String("format", "json", "Output format: json|table")
	return errorsCmd
}
