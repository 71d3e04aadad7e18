package stats

import (
	"fmt"
	"testing"
	"time"

	"github.com/Martificial-UK/trail/internal/seglog"
	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

func TestCollectCounts(t *testing.T) {
	dir := t.TempDir()
	s, err := seglog.Open(dir, logpkg.NewNopLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	kinds := []string{"lead_created", "lead_created", "email_sent", "error"}
	for i, kind := range kinds {
		rec := seglog.Record{
			Sequence:  uint64(i + 1),
			Timestamp: base.Add(time.Duration(i) * 25 * time.Hour),
			Kind:      kind,
			EntityID:  fmt.Sprintf("L-%d", i%2),
		}
		if err := s.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	snap, err := Collect(dir, logpkg.NewNopLogger(), 0)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if snap.TotalEvents != 4 {
		t.Fatalf("total: %d", snap.TotalEvents)
	}
	if snap.CountsByKind["lead_created"] != 2 || snap.CountsByKind["email_sent"] != 1 {
		t.Fatalf("counts: %+v", snap.CountsByKind)
	}
	if snap.Errors != 1 {
		t.Fatalf("errors: %d", snap.Errors)
	}
	if snap.DistinctEntities != 2 || snap.DistinctTruncated {
		t.Fatalf("distinct: %d truncated=%v", snap.DistinctEntities, snap.DistinctTruncated)
	}
	if !snap.OldestTimestamp.Equal(base) {
		t.Fatalf("oldest: %v", snap.OldestTimestamp)
	}
	if len(snap.EventsPerDay) != 4 {
		t.Fatalf("day buckets: %+v", snap.EventsPerDay)
	}
}

func TestCollectCapsDistinctButKeepsTotals(t *testing.T) {
	dir := t.TempDir()
	s, err := seglog.Open(dir, logpkg.NewNopLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	const n = 200
	for i := 0; i < n; i++ {
		rec := seglog.Record{
			Sequence:  uint64(i + 1),
			Timestamp: time.Now().UTC(),
			Kind:      "lead_created",
			EntityID:  fmt.Sprintf("L-%05d", i),
		}
		if err := s.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	snap, err := Collect(dir, logpkg.NewNopLogger(), 50)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if snap.DistinctEntities != 50 || !snap.DistinctTruncated {
		t.Fatalf("cap not applied: %d truncated=%v", snap.DistinctEntities, snap.DistinctTruncated)
	}
	if snap.TotalEvents != n || snap.CountsByKind["lead_created"] != n {
		t.Fatalf("totals must stay exact past the cap: %+v", snap)
	}
}

func TestCollectEmptyDir(t *testing.T) {
	snap, err := Collect(t.TempDir(), logpkg.NewNopLogger(), 0)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if snap.TotalEvents != 0 || snap.DistinctEntities != 0 {
		t.Fatalf("expected empty snapshot: %+v", snap)
	}
}
