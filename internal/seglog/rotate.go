package seglog

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"

	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

// compressChunkBytes is the copy buffer size used during compression, so
// rotation memory cost is independent of segment size.
const compressChunkBytes = 64 << 10

// RotatePolicy holds per-instance rotation thresholds.
type RotatePolicy struct {
	// MaxBytes closes the active segment once it reaches this size.
	MaxBytes int64
	// MaxAge closes the active segment once it has been open this long.
	// Zero disables the age trigger.
	MaxAge time.Duration
	// CompressionLevel is the gzip level, 1 (fastest) to 9 (smallest).
	CompressionLevel int
	// Retention prunes compressed segments older than this. Zero keeps all.
	Retention time.Duration
}

// RotateResult reports what a MaybeRotate call did.
type RotateResult struct {
	Closed         bool
	Compressed     int
	CompressFailed int
	Pruned         int
}

// MaybeRotate is called by the flusher after each successful batch append.
// When a threshold is crossed it closes the active segment, compresses every
// raw closed segment (which retries any compression that failed on a prior
// cycle), and prunes segments past retention. Compression failure is
// non-fatal: the raw segment stays fully queryable.
func (s *Store) MaybeRotate(p RotatePolicy) (RotateResult, error) {
	var res RotateResult
	due := s.activeSize >= p.MaxBytes || (p.MaxAge > 0 && s.ActiveAge() >= p.MaxAge)
	if !due || s.activeSize == 0 {
		return res, nil
	}
	if _, err := s.CloseActive(); err != nil {
		return res, err
	}
	res.Closed = true

	refs, _, err := listClosed(s.dir)
	if err != nil {
		return res, err
	}
	for _, ref := range refs {
		if ref.compressed {
			continue
		}
		if err := compressSegment(ref.path, p.CompressionLevel); err != nil {
			res.CompressFailed++
			s.lg.Warn("segment compression failed, left raw",
				logpkg.Str("path", ref.path), logpkg.Err(err))
			continue
		}
		res.Compressed++
		s.lg.Info("segment compressed", logpkg.Str("path", ref.path+".gz"))
	}
	if p.Retention > 0 {
		res.Pruned = s.pruneExpired(p.Retention)
	}
	return res, nil
}

// compressSegment gzips path into path.gz via a temp file and removes the raw
// original on success. Chunked copy; the segment is never loaded whole.
func compressSegment(path string, level int) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	tmpPath := path + ".gz.tmp"
	dst, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	gzw, err := gzip.NewWriterLevel(dst, level)
	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return err
	}
	buf := make([]byte, compressChunkBytes)
	if _, err := io.CopyBuffer(gzw, src, buf); err != nil {
		gzw.Close()
		dst.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := gzw.Close(); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path+".gz"); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove raw segment after compression: %w", err)
	}
	return nil
}

// pruneExpired removes compressed segments whose mtime is past retention.
// Raw segments are never pruned; they compress first on a later cycle.
func (s *Store) pruneExpired(retention time.Duration) int {
	refs, _, err := listClosed(s.dir)
	if err != nil {
		s.lg.Warn("retention scan failed", logpkg.Err(err))
		return 0
	}
	cutoff := time.Now().Add(-retention)
	pruned := 0
	for _, ref := range refs {
		if !ref.compressed {
			continue
		}
		st, err := os.Stat(ref.path)
		if err != nil || !st.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(ref.path); err != nil {
			s.lg.Warn("failed to prune expired segment",
				logpkg.Str("path", ref.path), logpkg.Err(err))
			continue
		}
		pruned++
		s.lg.Info("pruned expired segment", logpkg.Str("path", ref.path))
	}
	return pruned
}
