// Package seglog implements trail's append-only segment store.
//
// # Overview
//
// One directory holds the whole log: a single active segment with a fixed
// name plus zero or more closed segments named by a monotonic rotation index:
//
//   - audit.log                (active, append target)
//   - audit-000001.log         (closed, raw)
//   - audit-000002.log.gz      (closed, compressed, terminal)
//
// Directory state is reconstructible by filename scan alone; no index file.
// Records are encoded one JSON object per newline-terminated line, so a
// crash mid-write leaves at most one undecodable tail line, which readers
// treat as end of readable data rather than an error.
//
// API surface (internal)
//
//	s, _ := seglog.Open(dir, logger)
//	_ = s.Append(rec)            // flusher only; single-writer discipline
//	_ = s.Sync()
//	res, _ := s.MaybeRotate(pol) // close + gzip + retention prune
//
//	// Independent, restartable scans; compressed segments are decompressed
//	// transparently and a growing active segment is tolerated.
//	_ = seglog.ScanDir(dir, logger, seglog.ScanOptions{NewestFirst: true}, yield)
//
// Only one logical writer (the flusher) ever calls Append/Sync/MaybeRotate;
// the store carries no write-side locking of its own. Readers open their own
// file handles and never coordinate with the writer.
package seglog
