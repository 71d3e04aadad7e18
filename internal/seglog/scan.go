package seglog

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

// maxLineBytes bounds a single encoded record during scans. Details payloads
// are capped well below this by the facade.
const maxLineBytes = 4 << 20

// ScanOptions control scan direction.
type ScanOptions struct {
	// NewestFirst walks segments newest to oldest and records within each
	// segment in reverse write order. The default is oldest first.
	NewestFirst bool
}

// ScanDir iterates decoded records across all segments in dir. The yield
// function returns false to stop early. Corrupt tails, a growing active
// segment, and unreadable files end the affected segment quietly; they never
// fail the scan. Every call opens its own file handles, so concurrent scans
// and a concurrent writer are all safe.
func ScanDir(dir string, lg logpkg.Logger, opts ScanOptions, yield func(Record) bool) error {
	if lg == nil {
		lg = logpkg.NewNopLogger()
	}
	refs, _, err := listClosed(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	type source struct {
		path       string
		compressed bool
	}
	sources := make([]source, 0, len(refs)+1)
	for _, ref := range refs {
		sources = append(sources, source{path: ref.path, compressed: ref.compressed})
	}
	sources = append(sources, source{path: filepath.Join(dir, ActiveName)})
	if opts.NewestFirst {
		for i, j := 0, len(sources)-1; i < j; i, j = i+1, j-1 {
			sources[i], sources[j] = sources[j], sources[i]
		}
	}

	for _, src := range sources {
		stopped := false
		emit := yield
		if opts.NewestFirst {
			// Materialize one segment at a time so records can be emitted in
			// reverse write order; never more than one segment in memory.
			var recs []Record
			if err := readSegment(src.path, src.compressed, lg, func(rec Record) bool {
				recs = append(recs, rec)
				return true
			}); err != nil {
				return err
			}
			for i := len(recs) - 1; i >= 0; i-- {
				if !yield(recs[i]) {
					stopped = true
					break
				}
			}
		} else {
			if err := readSegment(src.path, src.compressed, lg, func(rec Record) bool {
				if !emit(rec) {
					stopped = true
					return false
				}
				return true
			}); err != nil {
				return err
			}
		}
		if stopped {
			return nil
		}
	}
	return nil
}

// ScanFile iterates decoded records of a single segment file, named relative
// to dir, in write order. Compression is inferred from the filename.
func ScanFile(dir, name string, lg logpkg.Logger, yield func(Record) bool) error {
	if lg == nil {
		lg = logpkg.NewNopLogger()
	}
	compressed := strings.HasSuffix(name, ".gz")
	return readSegment(filepath.Join(dir, name), compressed, lg, yield)
}

// readSegment streams decoded records from one segment file in write order.
// The first undecodable line ends the segment: a crash or a concurrent
// append can leave a partial tail, which is data not yet readable, not an
// error.
func readSegment(path string, compressed bool, lg logpkg.Logger, yield func(Record) bool) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		gz, err := gzip.NewReader(f)
		if err != nil {
			lg.Warn("unreadable compressed segment, skipping",
				logpkg.Str("path", path), logpkg.Err(err))
			return nil
		}
		defer gz.Close()
		r = gz
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), maxLineBytes)
	for sc.Scan() {
		rec, err := DecodeRecord(sc.Bytes())
		if err != nil {
			if errors.Is(err, ErrCorruptRecord) {
				lg.Warn("undecodable record, treating as end of segment",
					logpkg.Str("path", path), logpkg.Err(err))
				return nil
			}
			return err
		}
		if !yield(rec) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		// Truncated gzip stream or oversized line: stop cleanly at the
		// readable prefix.
		lg.Warn("segment read ended early", logpkg.Str("path", path), logpkg.Err(err))
	}
	return nil
}
