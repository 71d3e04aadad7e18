package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Martificial-UK/trail/internal/query"
	"github.com/Martificial-UK/trail/internal/seglog"
	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

// newQueryCommand constructs the `query` subcommand.
func newQueryCommand(lg logpkg.Logger) *cobra.Command {
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Query events, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			return runQuery(cmd, lg, f)
		},
	}
	queryCmd.Flags().String("kind", "", "Exact event kind")
	queryCmd.Flags().String("entity", "", "Exact entity id")
	queryCmd.Flags().String("since", "", "Lower time bound: RFC3339 or unix ms")
	queryCmd.Flags().String("until", "", "Upper time bound: RFC3339 or unix ms")
	queryCmd.Flags().String("last", "", "Relative window, e.g. 90m, 24h, 7d, 1w (overrides --since)")
	queryCmd.Flags().String("contains", "", "Substring match over kind, entity and details")
	queryCmd.Flags().String("expr", "", "CEL expression over kind, entity_id, seq, ts_ms, details")
	queryCmd.Flags().Int("limit", query.DefaultLimit, "Maximum results")
	queryCmd.Flags().String("format", "json", "Output format: json|table")
	return queryCmd
}

// runQuery executes a filter against the resolved directory and prints the
// results in the requested format.
func runQuery(cmd *cobra.Command, lg logpkg.Logger, f query.Filter) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")

	eng := query.New(resolveDir(cmd, cfg), query.Options{
		TTL:      cfg.CacheTTL(),
		Capacity: cfg.CacheCapacity,
		Logger:   lg,
	})
	results, err := eng.Query(f)
	if err != nil {
		return err
	}
	return writeRecords(cmd, results, format)
}

// filterFromFlags builds a query.Filter from the shared filter flags.
func filterFromFlags(cmd *cobra.Command) (query.Filter, error) {
	var f query.Filter
	f.Kind, _ = cmd.Flags().GetString("kind")
	f.EntityID, _ = cmd.Flags().GetString("entity")
	f.Contains, _ = cmd.Flags().GetString("contains")
	if fl := cmd.Flags().Lookup("expr"); fl != nil {
		f.Expr = fl.Value.String()
	}
	if fl := cmd.Flags().Lookup("limit"); fl != nil {
		f.Limit, _ = cmd.Flags().GetInt("limit")
	}

	since, _ := cmd.Flags().GetString("since")
	until, _ := cmd.Flags().GetString("until")
	last := ""
	if fl := cmd.Flags().Lookup("last"); fl != nil {
		last = fl.Value.String()
	}
	var err error
	if since != "" {
		if f.Since, err = parseTimeArg(since); err != nil {
			return query.Filter{}, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if until != "" {
		if f.Until, err = parseTimeArg(until); err != nil {
			return query.Filter{}, fmt.Errorf("invalid --until: %w", err)
		}
	}
	if last != "" {
		d, err := parseRelativeWindow(last)
		if err != nil {
			return query.Filter{}, fmt.Errorf("invalid --last: %w", err)
		}
		f.Since = time.Now().Add(-d)
	}
	return f, nil
}

// parseTimeArg accepts RFC3339 or unix milliseconds.
func parseTimeArg(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339 or unix ms: %q", s)
	}
	return t, nil
}

// parseRelativeWindow accepts Go durations plus day (d) and week (w) units.
func parseRelativeWindow(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("window must be positive: %q", s)
		}
		return d, nil
	}
	for unit, per := range map[string]time.Duration{"d": 24 * time.Hour, "w": 7 * 24 * time.Hour} {
		if !strings.HasSuffix(s, unit) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(s, unit))
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("expected a positive count before %q: %q", unit, s)
		}
		return time.Duration(n) * per, nil
	}
	return 0, fmt.Errorf("unrecognized window %q", s)
}

// writeRecords prints records either as JSON lines or a fixed-column table.
func writeRecords(cmd *cobra.Command, recs []seglog.Record, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, rec := range recs {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	case "table":
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SEQ\tTIMESTAMP\tKIND\tENTITY\tDETAILS")
		for _, rec := range recs {
			details := ""
			if len(rec.Details) > 0 {
				b, _ := json.Marshal(rec.Details)
				details = string(b)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
				rec.Sequence, rec.Timestamp.UTC().Format(time.RFC3339), rec.Kind, rec.EntityID, details)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("invalid --format; use json|table")
	}
}
