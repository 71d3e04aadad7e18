// Package audit is the engine's single entry point.
//
// # Overview
//
// A Logger owns one segment directory, an unbounded multi-producer write
// buffer, and exactly one background flusher goroutine. LogEvent stamps the
// timestamp and sequence at enqueue time and returns without touching disk;
// the flusher drains the buffer in batches on a size trigger (default 100)
// or a time trigger (default 5s), appends to the segment store, fsyncs, and
// drives rotation. Records sitting in the buffer are logged but not yet
// durable; Flush bounds that window on demand and Shutdown closes it for
// good.
//
//	l, _ := audit.New(dir, audit.Options{Config: cfg, Logger: lg})
//	_ = l.LogEvent("lead_created", "LEAD-001", map[string]any{"source": "webform"})
//	_ = l.Flush(ctx)                        // blocks until durable
//	recs, _ := l.Query(query.Filter{Kind: "lead_created", Limit: 50})
//	snap, _ := l.Statistics()
//	_ = l.Shutdown(ctx)                     // final flush, idempotent
//
// Error policy: caller bugs (oversized payload, use after shutdown) surface
// synchronously; disk faults are retried per record and then delivered to
// the OnError callback, never to the LogEvent caller, who has long since
// returned.
package audit
