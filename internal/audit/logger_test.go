package audit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Martificial-UK/trail/internal/config"
	"github.com/Martificial-UK/trail/internal/integrity"
	"github.com/Martificial-UK/trail/internal/query"
	"github.com/Martificial-UK/trail/internal/seglog"
	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.EnableIntegrity = false
	return cfg
}

func newTestLogger(t *testing.T, cfg config.Config) (*Logger, string) {
	t.Helper()
	dir := t.TempDir()
	l, err := New(dir, Options{Config: cfg, Logger: logpkg.NewNopLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Shutdown(context.Background()) })
	return l, dir
}

func TestLogEventOrderedAfterFlush(t *testing.T) {
	// batch size 100, flush interval 5s; 250 events; one explicit flush
	cfg := testConfig()
	l, _ := newTestLogger(t, cfg)

	for i := 0; i < 250; i++ {
		require.NoError(t, l.LogEvent("lead_created", fmt.Sprintf("LEAD-%03d", i), map[string]any{"i": i}))
	}
	require.NoError(t, l.Flush(context.Background()))

	results, err := l.Query(query.Filter{Kind: "lead_created", Limit: 250})
	require.NoError(t, err)
	require.Len(t, results, 250)

	// newest first overall; strictly increasing sequence when read oldest first
	for i := len(results) - 1; i > 0; i-- {
		require.Equal(t, results[i].Sequence+1, results[i-1].Sequence,
			"sequence gap between %d and %d", results[i].Sequence, results[i-1].Sequence)
	}
	require.Equal(t, "LEAD-249", results[0].EntityID)
	require.Equal(t, "LEAD-000", results[len(results)-1].EntityID)
}

func TestDurableAcrossReopen(t *testing.T) {
	cfg := testConfig()
	dir := t.TempDir()
	l, err := New(dir, Options{Config: cfg, Logger: logpkg.NewNopLogger()})
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		require.NoError(t, l.LogEvent("email_sent", "LEAD-1", nil))
	}
	require.NoError(t, l.Flush(context.Background()))
	require.NoError(t, l.Shutdown(context.Background()))

	l2, err := New(dir, Options{Config: cfg, Logger: logpkg.NewNopLogger()})
	require.NoError(t, err)
	defer l2.Shutdown(context.Background())

	results, err := l2.Query(query.Filter{Kind: "email_sent", Limit: 100})
	require.NoError(t, err)
	require.Len(t, results, 25)

	// sequences keep climbing after restart
	require.NoError(t, l2.LogEvent("email_sent", "LEAD-1", nil))
	require.NoError(t, l2.Flush(context.Background()))
	var last uint64
	require.NoError(t, seglog.ScanDir(dir, logpkg.NewNopLogger(), seglog.ScanOptions{}, func(rec seglog.Record) bool {
		require.Greater(t, rec.Sequence, last)
		last = rec.Sequence
		return true
	}))
	require.Equal(t, uint64(26), last)
}

func TestRotationScenarioTenRecordThreshold(t *testing.T) {
	cfg := testConfig()
	// threshold sized between 5 and 10 encoded records
	sample, err := seglog.EncodeRecord(seglog.Record{
		Sequence:  1,
		Timestamp: time.Now().UTC(),
		Kind:      "lead_created",
		EntityID:  "LEAD-00",
	})
	require.NoError(t, err)
	cfg.MaxSegmentBytes = int64(8 * len(sample))
	cfg.RetentionDays = 0

	l, dir := newTestLogger(t, cfg)
	logBatch := func(n int) {
		for i := 0; i < n; i++ {
			require.NoError(t, l.LogEvent("lead_created", "LEAD-00", nil))
		}
		require.NoError(t, l.Flush(context.Background()))
	}
	logBatch(10)
	logBatch(10)
	logBatch(5)

	var closed, activeRecs, total int
	require.NoError(t, seglog.ScanDir(dir, logpkg.NewNopLogger(), seglog.ScanOptions{}, func(seglog.Record) bool {
		total++
		return true
	}))
	require.Equal(t, 25, total)

	results, err := l.Query(query.Filter{Kind: "lead_created", Limit: 100})
	require.NoError(t, err)
	require.Len(t, results, 25)

	// two closed segments of 10, one active of 5
	counts := segmentRecordCounts(t, dir)
	for name, n := range counts {
		if name == seglog.ActiveName {
			activeRecs = n
			continue
		}
		closed++
		require.Equal(t, 10, n, "closed segment %s", name)
	}
	require.Equal(t, 2, closed)
	require.Equal(t, 5, activeRecs)
}

// segmentRecordCounts maps each segment filename to its record count.
func segmentRecordCounts(t *testing.T, dir string) map[string]int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	counts := make(map[string]int)
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".log") && !strings.HasSuffix(name, ".log.gz") {
			continue
		}
		n := 0
		require.NoError(t, seglog.ScanFile(dir, name, logpkg.NewNopLogger(), func(seglog.Record) bool {
			n++
			return true
		}))
		counts[name] = n
	}
	return counts
}

func TestFlushMakesBufferedRecordsDurable(t *testing.T) {
	cfg := testConfig()
	l, dir := newTestLogger(t, cfg)
	require.NoError(t, l.LogEvent("lead_created", "L-1", nil))

	require.NoError(t, l.Flush(context.Background()))
	var n int
	require.NoError(t, seglog.ScanDir(dir, logpkg.NewNopLogger(), seglog.ScanOptions{}, func(seglog.Record) bool {
		n++
		return true
	}))
	require.Equal(t, 1, n)
}

func TestShutdownIdempotentAndPostShutdownCallsFail(t *testing.T) {
	cfg := testConfig()
	dir := t.TempDir()
	l, err := New(dir, Options{Config: cfg, Logger: logpkg.NewNopLogger()})
	require.NoError(t, err)

	require.NoError(t, l.LogEvent("x", "", nil))
	require.NoError(t, l.Shutdown(context.Background()))
	require.NoError(t, l.Shutdown(context.Background()), "second shutdown must be a no-op")

	require.ErrorIs(t, l.LogEvent("x", "", nil), ErrClosed)
	_, err = l.Query(query.Filter{})
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, l.Flush(context.Background()), ErrClosed)

	// the pre-shutdown event was flushed on the way out
	var n int
	require.NoError(t, seglog.ScanDir(dir, logpkg.NewNopLogger(), seglog.ScanOptions{}, func(seglog.Record) bool {
		n++
		return true
	}))
	require.Equal(t, 1, n)
}

func TestOversizedPayloadRejected(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDetailsBytes = 64
	l, _ := newTestLogger(t, cfg)

	require.NoError(t, l.LogEvent("ok", "", map[string]any{"k": "small"}))
	err := l.LogEvent("too_big", "", map[string]any{"blob": strings.Repeat("x", 200)})
	require.ErrorIs(t, err, ErrPayloadTooLarge)
	require.ErrorIs(t, l.LogEvent("", "", nil), ErrEmptyKind)
}

func TestConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	cfg := testConfig()
	l, _ := newTestLogger(t, cfg)

	const producers = 4
	const perProducer = 50
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			entity := fmt.Sprintf("P-%d", p)
			for i := 0; i < perProducer; i++ {
				_ = l.LogEvent("tick", entity, map[string]any{"i": i})
			}
		}(p)
	}
	wg.Wait()
	require.NoError(t, l.Flush(context.Background()))

	for p := 0; p < producers; p++ {
		entity := fmt.Sprintf("P-%d", p)
		results, err := l.Query(query.Filter{EntityID: entity, Limit: perProducer})
		require.NoError(t, err)
		require.Len(t, results, perProducer)
		// newest-first: per-producer detail counter must descend
		for i, rec := range results {
			require.Equal(t, float64(perProducer-1-i), rec.Details["i"], "producer %s out of order", entity)
		}
	}
}

func TestSignedRecordsVerify(t *testing.T) {
	dir := t.TempDir()
	signer, err := integrity.NewSigner(integrity.NewFileKeyProvider(dir), "audit")
	require.NoError(t, err)

	cfg := testConfig()
	l, err := New(dir, Options{Config: cfg, Logger: logpkg.NewNopLogger(), Signer: signer})
	require.NoError(t, err)
	defer l.Shutdown(context.Background())

	require.NoError(t, l.LogEvent("lead_created", "L-1", map[string]any{"source": "webform"}))
	require.NoError(t, l.Flush(context.Background()))

	var checked int
	require.NoError(t, seglog.ScanDir(dir, logpkg.NewNopLogger(), seglog.ScanOptions{}, func(rec seglog.Record) bool {
		checked++
		require.NotEmpty(t, rec.Signature)
		require.True(t, signer.Verify(seglog.CanonicalBytes(rec), rec.Signature))
		return true
	}))
	require.Equal(t, 1, checked)
}

func TestRotationInvalidatesQueryCache(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSegmentBytes = 1 // every flush rotates
	l, _ := newTestLogger(t, cfg)

	require.NoError(t, l.LogEvent("a", "", nil))
	require.NoError(t, l.Flush(context.Background()))
	first, err := l.Query(query.Filter{Kind: "a"})
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, l.LogEvent("a", "", nil))
	require.NoError(t, l.Flush(context.Background())) // rotates again, invalidating the cache
	second, err := l.Query(query.Filter{Kind: "a"})
	require.NoError(t, err)
	require.Len(t, second, 2, "rotation must invalidate cached results inside the TTL")
}

func TestErrorCallbackNotCalledOnHappyPath(t *testing.T) {
	cfg := testConfig()
	dir := t.TempDir()
	var reported []error
	l, err := New(dir, Options{
		Config:  cfg,
		Logger:  logpkg.NewNopLogger(),
		OnError: func(e error) { reported = append(reported, e) },
	})
	require.NoError(t, err)
	require.NoError(t, l.LogEvent("x", "", nil))
	require.NoError(t, l.Flush(context.Background()))
	require.NoError(t, l.Shutdown(context.Background()))
	require.Empty(t, reported)
}

func TestFlushContextCancelled(t *testing.T) {
	cfg := testConfig()
	l, _ := newTestLogger(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Flush(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error: %v", err)
	}
}
