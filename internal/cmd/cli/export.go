package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Martificial-UK/trail/internal/query"
	"github.com/Martificial-UK/trail/internal/seglog"
	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

// newExportCommand constructs the `export` subcommand. Unlike query, export
// streams the log oldest first and has no result limit.
func newExportCommand(lg logpkg.Logger) *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export events as CSV or JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			f, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				out = file
			}

			n, err := exportRecords(resolveDir(cmd, cfg), lg, f, format, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d events\n", n)
			return nil
		},
	}
	exportCmd.Flags().String("kind", "", "Exact event kind")
	exportCmd.Flags().String("entity", "", "Exact entity id")
	exportCmd.Flags().String("since", "", "Lower time bound: RFC3339 or unix ms")
	exportCmd.Flags().String("until", "", "Upper time bound: RFC3339 or unix ms")
	exportCmd.Flags().String("contains", "", "Substring match over kind, entity and details")
	exportCmd.Flags().String("format", "csv", "Output format: csv|json")
	exportCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	return exportCmd
}

func exportRecords(dir string, lg logpkg.Logger, f query.Filter, format string, out io.Writer) (int, error) {
	var emit func(seglog.Record) error
	var finish func() error

	switch format {
	case "csv":
		w := csv.NewWriter(out)
		if err := w.Write([]string{"seq", "timestamp", "kind", "entity_id", "details", "sig"}); err != nil {
			return 0, err
		}
		emit = func(rec seglog.Record) error {
			details := ""
			if len(rec.Details) > 0 {
				b, err := json.Marshal(rec.Details)
				if err != nil {
					return err
				}
				details = string(b)
			}
			return w.Write([]string{
				strconv.FormatUint(rec.Sequence, 10),
				rec.Timestamp.UTC().Format(time.RFC3339Nano),
				rec.Kind,
				rec.EntityID,
				details,
				rec.Signature,
			})
		}
		finish = func() error { w.Flush(); return w.Error() }
	case "json":
		enc := json.NewEncoder(out)
		emit = func(rec seglog.Record) error { return enc.Encode(rec) }
		finish = func() error { return nil }
	default:
		return 0, fmt.Errorf("invalid --format; use csv|json")
	}

	n := 0
	var emitErr error
	err := seglog.ScanDir(dir, lg, seglog.ScanOptions{}, func(rec seglog.Record) bool {
		if !exportMatch(f, rec) {
			return true
		}
		if emitErr = emit(rec); emitErr != nil {
			return false
		}
		n++
		return true
	})
	if err != nil {
		return n, err
	}
	if emitErr != nil {
		return n, emitErr
	}
	return n, finish()
}

// exportMatch applies the exact and time-bound filter fields; export has no
// expression support, the heavy filtering belongs to query.
func exportMatch(f query.Filter, rec seglog.Record) bool {
	if f.Kind != "" && rec.Kind != f.Kind {
		return false
	}
	if f.EntityID != "" && rec.EntityID != f.EntityID {
		return false
	}
	if !f.Since.IsZero() && rec.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && rec.Timestamp.After(f.Until) {
		return false
	}
	if f.Contains != "" && !recordContains(rec, f.Contains) {
		return false
	}
	return true
}

func recordContains(rec seglog.Record, needle string) bool {
	if strings.Contains(rec.Kind, needle) || strings.Contains(rec.EntityID, needle) {
		return true
	}
	if len(rec.Details) == 0 {
		return false
	}
	b, err := json.Marshal(rec.Details)
	return err == nil && strings.Contains(string(b), needle)
}
