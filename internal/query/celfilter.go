package query

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/Martificial-UK/trail/internal/seglog"
)

// celFilter wraps a compiled CEL program used for record-level filtering.
// When disabled, Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("kind", cel.StringType),
		cel.Variable("entity_id", cel.StringType),
		cel.Variable("seq", cel.IntType),
		cel.Variable("ts_ms", cel.IntType),
		// Parsed details map for field-level filtering
		cel.Variable("details", cel.DynType),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the compiled expression against a record. Evaluation errors
// exclude the record rather than failing the query.
func (f celFilter) Eval(rec seglog.Record) bool {
	if !f.enabled {
		return true
	}
	details := rec.Details
	if details == nil {
		details = map[string]any{}
	}
	out, _, err := f.prog.Eval(map[string]any{
		"kind":      rec.Kind,
		"entity_id": rec.EntityID,
		"seq":       int64(rec.Sequence),
		"ts_ms":     rec.Timestamp.UnixMilli(),
		"details":   details,
		"now_ms":    time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
