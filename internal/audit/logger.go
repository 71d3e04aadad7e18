package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Martificial-UK/trail/internal/config"
	"github.com/Martificial-UK/trail/internal/integrity"
	"github.com/Martificial-UK/trail/internal/query"
	"github.com/Martificial-UK/trail/internal/seglog"
	"github.com/Martificial-UK/trail/internal/stats"
	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

// Options configure a Logger.
type Options struct {
	Config config.Config
	Logger logpkg.Logger

	// Signer enables tamper-evidence signatures; nil disables them.
	Signer *integrity.Signer

	// Registerer receives the engine's Prometheus collectors; nil skips
	// registration.
	Registerer prometheus.Registerer

	// OnError receives write-path failures that outlived their retry. The
	// original LogEvent caller has already returned by then. Nil falls back
	// to error-level logging.
	OnError func(error)
}

// Logger is the audit facade. Construct one per log directory and pass it by
// handle; there is no process-global instance.
type Logger struct {
	cfg     config.Config
	lg      logpkg.Logger
	store   *seglog.Store
	buf     *buffer
	engine  *query.Engine
	metrics *metrics
	onError func(error)

	flushCh chan chan struct{}
	stop    chan struct{}
	done    chan struct{}

	closed       atomic.Bool
	shutdownOnce sync.Once
}

// New opens the segment directory and starts the flusher goroutine.
func New(dir string, opts Options) (*Logger, error) {
	lg := opts.Logger
	if lg == nil {
		lg = logpkg.NewNopLogger()
	}
	store, err := seglog.Open(dir, lg)
	if err != nil {
		return nil, err
	}
	engine := query.New(dir, query.Options{
		TTL:      opts.Config.CacheTTL(),
		Capacity: opts.Config.CacheCapacity,
		Logger:   lg,
	})
	l := &Logger{
		cfg:     opts.Config,
		lg:      lg.With(logpkg.Component("audit")),
		store:   store,
		buf:     newBuffer(store.LastSequence(), opts.Signer),
		engine:  engine,
		metrics: newMetrics(opts.Registerer, engine),
		onError: opts.OnError,
		flushCh: make(chan chan struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.run()
	l.lg.Info("audit logger started",
		logpkg.Str("dir", dir),
		logpkg.Uint64("last_seq", store.LastSequence()),
		logpkg.Int("batch_size", opts.Config.BatchSize),
		logpkg.Dur("flush_interval", opts.Config.FlushInterval()),
	)
	return l, nil
}

// LogEvent buffers one event and returns immediately; it never waits on disk
// and never reports transient write failures. The timestamp and sequence are
// stamped here, at enqueue, so program order survives asynchronous flushing.
// Only caller bugs surface as errors.
func (l *Logger) LogEvent(kind, entityID string, details map[string]any) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if kind == "" {
		return ErrEmptyKind
	}
	if len(details) > 0 {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("audit: unserializable details: %w", err)
		}
		if len(b) > l.cfg.MaxDetailsBytes {
			return fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, len(b), l.cfg.MaxDetailsBytes)
		}
	}
	// the closed check above is advisory; the buffer's own gate is what
	// guarantees no record slips in after the final drain
	if _, ok := l.buf.enqueue(seglog.Record{
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		EntityID:  entityID,
		Details:   details,
	}); !ok {
		return ErrClosed
	}
	l.metrics.enqueued.Inc()
	return nil
}

// Query answers a filtered read, newest first. Results may lag writes by up
// to the cache TTL; call Flush first when read-your-own-writes matters.
func (l *Logger) Query(f query.Filter) ([]seglog.Record, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	return l.engine.Query(f)
}

// Statistics streams every segment and returns aggregate rollups.
func (l *Logger) Statistics() (stats.Snapshot, error) {
	if l.closed.Load() {
		return stats.Snapshot{}, ErrClosed
	}
	return stats.Collect(l.store.Dir(), l.lg, l.cfg.DistinctEntityCap)
}

// Flush blocks until every record buffered at the time of the call has been
// durably appended, or ctx expires.
func (l *Logger) Flush(ctx context.Context) error {
	if l.closed.Load() {
		return ErrClosed
	}
	ack := make(chan struct{})
	select {
	case l.flushCh <- ack:
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown performs a final flush, stops the flusher, and closes the store.
// It is idempotent; a second call is a no-op returning nil.
func (l *Logger) Shutdown(ctx context.Context) error {
	var err error
	l.shutdownOnce.Do(func() {
		l.closed.Store(true)
		l.buf.close()
		close(l.stop)
		select {
		case <-l.done:
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
		err = l.store.Close()
		l.lg.Info("audit logger stopped")
	})
	return err
}

// Dir returns the segment directory.
func (l *Logger) Dir() string { return l.store.Dir() }

func (l *Logger) reportError(err error) {
	if l.onError != nil {
		l.onError(err)
		return
	}
	l.lg.Error("write path failure", logpkg.Err(err))
}
