package query

import (
	"strconv"
	"strings"
	"time"
)

// DefaultLimit applies when a filter does not set one.
const DefaultLimit = 100

// Filter selects records. Zero fields match everything.
type Filter struct {
	// Kind matches the record kind exactly.
	Kind string
	// EntityID matches the record entity exactly.
	EntityID string
	// Since/Until bound the record timestamp (inclusive since, inclusive until).
	Since time.Time
	Until time.Time
	// Contains is a case-sensitive substring match over kind, entity id and
	// the serialized details.
	Contains string
	// Expr is an optional CEL expression over kind, entity_id, seq, ts_ms,
	// details and now_ms.
	Expr string
	// Limit caps the result count; <= 0 means DefaultLimit.
	Limit int
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultLimit
	}
	return f.Limit
}

// signature returns the canonical cache key for this filter. Equal filters
// always produce equal signatures.
func (f Filter) signature() string {
	parts := []string{
		f.Kind,
		f.EntityID,
		timePart(f.Since),
		timePart(f.Until),
		f.Contains,
		f.Expr,
		strconv.Itoa(f.limit()),
	}
	return strings.Join(parts, "|")
}

func timePart(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
