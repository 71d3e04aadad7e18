package seglog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ActiveName is the fixed filename of the active segment.
const ActiveName = "audit.log"

const (
	closedPrefix     = "audit-"
	rawSuffix        = ".log"
	compressedSuffix = ".log.gz"
)

// segmentRef points at one closed segment on disk.
type segmentRef struct {
	path       string
	index      uint64
	compressed bool
}

func closedName(index uint64, compressed bool) string {
	name := fmt.Sprintf("%s%06d%s", closedPrefix, index, rawSuffix)
	if compressed {
		name += ".gz"
	}
	return name
}

func parseClosedName(name string) (index uint64, compressed bool, ok bool) {
	if !strings.HasPrefix(name, closedPrefix) {
		return 0, false, false
	}
	rest := strings.TrimPrefix(name, closedPrefix)
	switch {
	case strings.HasSuffix(rest, compressedSuffix):
		compressed = true
		rest = strings.TrimSuffix(rest, compressedSuffix)
	case strings.HasSuffix(rest, rawSuffix):
		rest = strings.TrimSuffix(rest, rawSuffix)
	default:
		return 0, false, false
	}
	n, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false, false
	}
	return n, compressed, true
}

// listClosed enumerates closed segments sorted ascending by rotation index
// and reports the highest index seen. When both a raw and a compressed file
// exist for the same index (crash between compress and unlink), the raw file
// wins: it is known complete, and the next rotation re-compresses it.
func listClosed(dir string) ([]segmentRef, uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, err
	}
	byIndex := make(map[uint64]segmentRef)
	var maxIndex uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		idx, compressed, ok := parseClosedName(e.Name())
		if !ok {
			continue
		}
		if idx > maxIndex {
			maxIndex = idx
		}
		prev, seen := byIndex[idx]
		if seen && !prev.compressed {
			continue // raw copy already recorded
		}
		if seen && !compressed {
			// raw replaces compressed for the same index
			byIndex[idx] = segmentRef{path: filepath.Join(dir, e.Name()), index: idx, compressed: false}
			continue
		}
		byIndex[idx] = segmentRef{path: filepath.Join(dir, e.Name()), index: idx, compressed: compressed}
	}
	refs := make([]segmentRef, 0, len(byIndex))
	for _, ref := range byIndex {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].index < refs[j].index })
	return refs, maxIndex, nil
}
