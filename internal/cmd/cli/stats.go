package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Martificial-UK/trail/internal/stats"
	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

// newStatsCommand constructs the `stats` subcommand.
func newStatsCommand(lg logpkg.Logger) *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the whole log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")

			snap, err := stats.Collect(resolveDir(cmd, cfg), lg, cfg.DistinctEntityCap)
			if err != nil {
				return err
			}
			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			case "table":
				return writeStatsTable(cmd, snap)
			default:
				return fmt.Errorf("invalid --format; use json|table")
			}
		},
	}
	statsCmd.Flags().String("format", "table", "Output format: json|table")
	return statsCmd
}

func writeStatsTable(cmd *cobra.Command, snap stats.Snapshot) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "total events:      %d\n", snap.TotalEvents)
	fmt.Fprintf(out, "errors:            %d\n", snap.Errors)
	if snap.DistinctTruncated {
		fmt.Fprintf(out, "distinct entities: >=%d (truncated)\n", snap.DistinctEntities)
	} else {
		fmt.Fprintf(out, "distinct entities: %d\n", snap.DistinctEntities)
	}
	if !snap.OldestTimestamp.IsZero() {
		fmt.Fprintf(out, "oldest:            %s\n", snap.OldestTimestamp.UTC().Format(time.RFC3339))
		fmt.Fprintf(out, "newest:            %s\n", snap.NewestTimestamp.UTC().Format(time.RFC3339))
	}

	fmt.Fprintln(out, "\nevents by kind:")
	tw := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	for _, kind := range sortedKeys(snap.CountsByKind) {
		fmt.Fprintf(tw, "  %s\t%d\n", kind, snap.CountsByKind[kind])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nevents per day:")
	tw = tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	for _, day := range sortedKeys(snap.EventsPerDay) {
		fmt.Fprintf(tw, "  %s\t%d\n", day, snap.EventsPerDay[day])
	}
	return tw.Flush()
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
