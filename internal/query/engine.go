package query

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Martificial-UK/trail/internal/seglog"
	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

// Options tune an Engine.
type Options struct {
	// TTL is the result staleness bound; 0 uses 30s.
	TTL time.Duration
	// Capacity is the cache entry cap; 0 uses 128.
	Capacity int
	Logger   logpkg.Logger
}

// Engine scans the segment directory and caches filtered results. Readers
// open segment files directly and never coordinate with the writer.
type Engine struct {
	dir   string
	cache *lruCache
	lg    logpkg.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New builds an Engine over a log directory.
func New(dir string, opts Options) *Engine {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.Capacity <= 0 {
		opts.Capacity = 128
	}
	lg := opts.Logger
	if lg == nil {
		lg = logpkg.NewNopLogger()
	}
	return &Engine{
		dir:   dir,
		cache: newLRUCache(opts.Capacity, opts.TTL),
		lg:    lg.With(logpkg.Component("query")),
	}
}

// Query returns records matching f, newest first. A live cached result for
// an identical filter is served without I/O; otherwise segments are scanned
// newest-first and the scan stops once the limit is reached. Cached results
// may lag writes by up to the TTL. The returned slice is the caller's own.
func (e *Engine) Query(f Filter) ([]seglog.Record, error) {
	expr, err := newCELFilter(f.Expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	sig := f.signature()
	if results, ok := e.cache.get(sig); ok {
		e.hits.Add(1)
		return results, nil
	}
	e.misses.Add(1)

	limit := f.limit()
	results := make([]seglog.Record, 0, min(limit, 64))
	err = seglog.ScanDir(e.dir, e.lg, seglog.ScanOptions{NewestFirst: true}, func(rec seglog.Record) bool {
		if !matches(f, expr, rec) {
			return true
		}
		results = append(results, rec)
		return len(results) < limit
	})
	if err != nil {
		return nil, fmt.Errorf("query scan: %w", err)
	}
	e.cache.put(sig, results)
	return results, nil
}

// Invalidate drops all cached results. Called on every rotation, since
// compression changes segment identity under cached scans.
func (e *Engine) Invalidate() {
	e.cache.invalidate()
}

// CacheHits returns the number of queries served from cache.
func (e *Engine) CacheHits() uint64 { return e.hits.Load() }

// CacheMisses returns the number of queries that scanned segments.
func (e *Engine) CacheMisses() uint64 { return e.misses.Load() }

func matches(f Filter, expr celFilter, rec seglog.Record) bool {
	if f.Kind != "" && rec.Kind != f.Kind {
		return false
	}
	if f.EntityID != "" && rec.EntityID != f.EntityID {
		return false
	}
	if !f.Since.IsZero() && rec.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && rec.Timestamp.After(f.Until) {
		return false
	}
	if f.Contains != "" && !containsText(rec, f.Contains) {
		return false
	}
	return expr.Eval(rec)
}

// containsText does a substring match over the bounded set of searchable
// fields: kind, entity id, and the serialized details.
func containsText(rec seglog.Record, needle string) bool {
	if strings.Contains(rec.Kind, needle) || strings.Contains(rec.EntityID, needle) {
		return true
	}
	if len(rec.Details) == 0 {
		return false
	}
	b, err := json.Marshal(rec.Details)
	if err != nil {
		return false
	}
	return strings.Contains(string(b), needle)
}
