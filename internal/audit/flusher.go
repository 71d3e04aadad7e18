package audit

import (
	"fmt"
	"time"

	"github.com/Martificial-UK/trail/internal/seglog"
	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

// run is the single consumer of the write buffer. It reacts to three things:
// the buffer crossing the batch-size threshold, the flush interval elapsing,
// and explicit Flush requests. Shutdown drains one final time.
func (l *Logger) run() {
	defer close(l.done)
	ticker := time.NewTicker(l.cfg.FlushInterval())
	defer ticker.Stop()

	for {
		select {
		case <-l.buf.notify:
			if l.buf.depth() >= l.cfg.BatchSize {
				l.flushOnce()
			}
		case <-ticker.C:
			l.flushOnce()
		case ack := <-l.flushCh:
			l.flushOnce()
			close(ack)
		case <-l.stop:
			l.flushOnce()
			return
		}
	}
}

// flushOnce drains the buffer, appends the batch in enqueue order, fsyncs,
// and drives rotation. Called only from run, preserving the single-writer
// discipline on the active segment.
func (l *Logger) flushOnce() {
	recs := l.buf.drain()
	if len(recs) == 0 {
		return
	}
	l.writeBatch(recs)
	if err := l.store.Sync(); err != nil {
		l.reportError(err)
	}
	l.metrics.flushes.Inc()
	l.lg.Debug("flushed batch", logpkg.Int("events", len(recs)))

	res, err := l.store.MaybeRotate(seglog.RotatePolicy{
		MaxBytes:         l.cfg.MaxSegmentBytes,
		MaxAge:           l.cfg.MaxSegmentAge(),
		CompressionLevel: l.cfg.CompressionLevel,
		Retention:        l.cfg.Retention(),
	})
	if err != nil {
		l.reportError(fmt.Errorf("rotation: %w", err))
		return
	}
	if res.Closed {
		l.metrics.rotations.Inc()
		// cached scans may now straddle renamed or compressed files
		l.engine.Invalidate()
	}
	if res.CompressFailed > 0 {
		l.metrics.compressFailures.Add(float64(res.CompressFailed))
	}
	if res.Pruned > 0 {
		l.metrics.pruned.Add(float64(res.Pruned))
	}
}

// writeBatch appends records in order. If the batch append fails partway,
// every not-yet-written record (including the one that failed) gets one
// individual retry; a record failing twice is surfaced through the error
// callback and dropped.
func (l *Logger) writeBatch(recs []seglog.Record) {
	for i, rec := range recs {
		if err := l.store.Append(rec); err != nil {
			l.lg.Warn("batch append failed, retrying records individually",
				logpkg.Uint64("seq", rec.Sequence), logpkg.Err(err))
			for _, r := range recs[i:] {
				if err2 := l.store.Append(r); err2 != nil {
					l.metrics.dropped.Inc()
					l.reportError(fmt.Errorf("audit: record seq=%d lost after retry: %w", r.Sequence, err2))
					continue
				}
				l.metrics.written.Inc()
			}
			return
		}
		l.metrics.written.Inc()
	}
}
