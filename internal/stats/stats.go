package stats

import (
	"time"

	"github.com/Martificial-UK/trail/internal/seglog"
	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

// DefaultEntityCap bounds the distinct-entity set when no cap is given.
const DefaultEntityCap = 10000

// errorKind is the record kind counted into Snapshot.Errors.
const errorKind = "error"

// Snapshot is one pass of aggregate statistics.
type Snapshot struct {
	TotalEvents  int64            `json:"total_events"`
	CountsByKind map[string]int64 `json:"counts_by_kind"`
	Errors       int64            `json:"errors"`

	// DistinctEntities is exact until the cap is hit, then a lower bound.
	DistinctEntities  int  `json:"distinct_entities"`
	DistinctTruncated bool `json:"distinct_truncated"`

	OldestTimestamp time.Time `json:"oldest_timestamp,omitzero"`
	NewestTimestamp time.Time `json:"newest_timestamp,omitzero"`

	// EventsPerDay buckets totals by UTC date (2006-01-02 keys).
	EventsPerDay map[string]int64 `json:"events_per_day"`
}

// Collect streams every segment in dir and builds a Snapshot. entityCap <= 0
// uses DefaultEntityCap. Memory use is bounded by the cap and the day-bucket
// map, never by log size.
func Collect(dir string, lg logpkg.Logger, entityCap int) (Snapshot, error) {
	if entityCap <= 0 {
		entityCap = DefaultEntityCap
	}
	snap := Snapshot{
		CountsByKind: make(map[string]int64),
		EventsPerDay: make(map[string]int64),
	}
	entities := make(map[string]struct{}, min(entityCap, 1024))

	err := seglog.ScanDir(dir, lg, seglog.ScanOptions{}, func(rec seglog.Record) bool {
		snap.TotalEvents++
		snap.CountsByKind[rec.Kind]++
		if rec.Kind == errorKind {
			snap.Errors++
		}
		if rec.EntityID != "" {
			if _, seen := entities[rec.EntityID]; !seen {
				if len(entities) < entityCap {
					entities[rec.EntityID] = struct{}{}
				} else {
					snap.DistinctTruncated = true
				}
			}
		}
		ts := rec.Timestamp
		if snap.OldestTimestamp.IsZero() || ts.Before(snap.OldestTimestamp) {
			snap.OldestTimestamp = ts
		}
		if ts.After(snap.NewestTimestamp) {
			snap.NewestTimestamp = ts
		}
		snap.EventsPerDay[ts.UTC().Format("2006-01-02")]++
		return true
	})
	if err != nil {
		return Snapshot{}, err
	}
	snap.DistinctEntities = len(entities)
	return snap, nil
}
