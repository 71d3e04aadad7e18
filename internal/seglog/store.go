package seglog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

// Store owns the active segment and the set of closed segments in one
// directory. Append, Sync, CloseActive and MaybeRotate are writer-side
// operations: only the flusher may call them, and only from one goroutine.
type Store struct {
	dir string
	lg  logpkg.Logger

	active      *os.File
	activeSize  int64
	activeBirth time.Time
	nextIndex   uint64
	lastSeq     uint64
}

// Open prepares the directory and the active segment, recovering the highest
// durable sequence number and the next rotation index from what is on disk.
func Open(dir string, lg logpkg.Logger) (*Store, error) {
	if lg == nil {
		lg = logpkg.NewNopLogger()
	}
	lg = lg.With(logpkg.Component("seglog"))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	_, maxIndex, err := listClosed(dir)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	activePath := filepath.Join(dir, ActiveName)
	if err := repairActiveTail(activePath, lg); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(activePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open active segment: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat active segment: %w", err)
	}
	s := &Store{
		dir:         dir,
		lg:          lg,
		active:      f,
		activeSize:  st.Size(),
		activeBirth: time.Now(),
		nextIndex:   maxIndex + 1,
	}
	if st.Size() > 0 {
		// Creation time is not portable; mtime is a conservative stand-in
		// for the age-based rotation trigger after a reopen.
		s.activeBirth = st.ModTime()
	}
	if err := s.recoverLastSeq(); err != nil {
		f.Close()
		return nil, err
	}
	lg.Debug("store opened",
		logpkg.Str("dir", dir),
		logpkg.Uint64("last_seq", s.lastSeq),
		logpkg.Uint64("next_index", s.nextIndex),
	)
	return s, nil
}

// repairActiveTail truncates a crash-torn partial last line from the active
// segment before any new append. Without the repair the torn bytes would
// merge with the next append into one undecodable line, and scans stop at
// the first undecodable line, hiding every record written after the restart.
// The torn record was never acknowledged durable, so dropping it is safe.
func repairActiveTail(path string, lg logpkg.Logger) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}
	size := st.Size()
	if size == 0 {
		return nil
	}
	end, err := lastNewlineEnd(f, size)
	if err != nil {
		return err
	}
	if end == size {
		return nil
	}
	if err := f.Truncate(end); err != nil {
		return fmt.Errorf("truncate torn tail: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync after tail repair: %w", err)
	}
	lg.Warn("dropped torn tail from active segment",
		logpkg.Str("path", path), logpkg.Int64("bytes", size-end))
	return nil
}

// lastNewlineEnd returns the offset just past the final '\n' within the
// first size bytes of f, reading backward in chunks. Zero when the file has
// no newline at all.
func lastNewlineEnd(f *os.File, size int64) (int64, error) {
	buf := make([]byte, 64<<10)
	for off := size; off > 0; {
		n := int64(len(buf))
		if n > off {
			n = off
		}
		off -= n
		if _, err := f.ReadAt(buf[:n], off); err != nil {
			return 0, err
		}
		for i := n - 1; i >= 0; i-- {
			if buf[i] == '\n' {
				return off + i + 1, nil
			}
		}
	}
	return 0, nil
}

// recoverLastSeq scans the active segment (or, when it is empty, closed
// segments newest to oldest) for the highest sequence number written so far.
func (s *Store) recoverLastSeq() error {
	found := false
	track := func(rec Record) bool {
		if rec.Sequence > s.lastSeq {
			s.lastSeq = rec.Sequence
		}
		found = true
		return true
	}
	if err := readSegment(filepath.Join(s.dir, ActiveName), false, s.lg, track); err != nil {
		return fmt.Errorf("recover sequence from active segment: %w", err)
	}
	if found {
		return nil
	}
	refs, _, err := listClosed(s.dir)
	if err != nil {
		return err
	}
	// Walk newest to oldest until one segment yields records: an unreadable
	// newest segment must not let sequence numbers restart and collide with
	// ones already written.
	for i := len(refs) - 1; i >= 0; i-- {
		if err := readSegment(refs[i].path, refs[i].compressed, s.lg, track); err != nil {
			return fmt.Errorf("recover sequence from %s: %w", refs[i].path, err)
		}
		if found {
			return nil
		}
	}
	return nil
}

// Append encodes and writes one record to the active segment.
func (s *Store) Append(rec Record) error {
	b, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	n, err := s.active.Write(b)
	s.activeSize += int64(n)
	if err != nil {
		return fmt.Errorf("append seq=%d: %w", rec.Sequence, err)
	}
	if rec.Sequence > s.lastSeq {
		s.lastSeq = rec.Sequence
	}
	return nil
}

// Sync forces the active segment to stable storage.
func (s *Store) Sync() error {
	if err := s.active.Sync(); err != nil {
		return fmt.Errorf("sync active segment: %w", err)
	}
	return nil
}

// ActiveSize returns the current byte size of the active segment.
func (s *Store) ActiveSize() int64 { return s.activeSize }

// ActiveAge returns how long the current active segment has been open.
func (s *Store) ActiveAge() time.Duration { return time.Since(s.activeBirth) }

// LastSequence returns the highest sequence number known durable or appended.
func (s *Store) LastSequence() uint64 { return s.lastSeq }

// Dir returns the log directory.
func (s *Store) Dir() string { return s.dir }

// CloseActive atomically swaps in a fresh empty active segment and returns
// the path of the closed one. Rotating an empty active segment is a no-op
// and returns an empty path.
func (s *Store) CloseActive() (string, error) {
	if s.activeSize == 0 {
		return "", nil
	}
	if err := s.active.Sync(); err != nil {
		return "", fmt.Errorf("sync before rotate: %w", err)
	}
	if err := s.active.Close(); err != nil {
		return "", fmt.Errorf("close active segment: %w", err)
	}
	closedPath := filepath.Join(s.dir, closedName(s.nextIndex, false))
	if err := os.Rename(filepath.Join(s.dir, ActiveName), closedPath); err != nil {
		return "", fmt.Errorf("rename active segment: %w", err)
	}
	s.nextIndex++
	f, err := os.OpenFile(filepath.Join(s.dir, ActiveName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return "", fmt.Errorf("open new active segment: %w", err)
	}
	s.active = f
	s.activeSize = 0
	s.activeBirth = time.Now()
	s.lg.Info("segment closed", logpkg.Str("path", closedPath))
	return closedPath, nil
}

// Close releases the active segment handle. The store is unusable afterwards.
func (s *Store) Close() error {
	if s.active == nil {
		return nil
	}
	err := s.active.Close()
	s.active = nil
	return err
}

// Scan iterates records across all segments. Each call is an independent,
// freshly opened iteration.
func (s *Store) Scan(opts ScanOptions, yield func(Record) bool) error {
	return ScanDir(s.dir, s.lg, opts, yield)
}
