package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Martificial-UK/trail/internal/query"
)

// metrics exposes engine counters to an optional Prometheus registerer. A
// nil registerer still collects (cheap) but registers nothing, so embedding
// applications opt in explicitly.
type metrics struct {
	enqueued         prometheus.Counter
	written          prometheus.Counter
	dropped          prometheus.Counter
	flushes          prometheus.Counter
	rotations        prometheus.Counter
	compressFailures prometheus.Counter
	pruned           prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, engine *query.Engine) *metrics {
	f := promauto.With(reg)
	m := &metrics{
		enqueued: f.NewCounter(prometheus.CounterOpts{
			Namespace: "trail", Subsystem: "audit", Name: "events_enqueued_total",
			Help: "Events accepted into the write buffer.",
		}),
		written: f.NewCounter(prometheus.CounterOpts{
			Namespace: "trail", Subsystem: "audit", Name: "events_written_total",
			Help: "Events durably appended to a segment.",
		}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "trail", Subsystem: "audit", Name: "events_dropped_total",
			Help: "Events lost after the per-record retry failed.",
		}),
		flushes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "trail", Subsystem: "audit", Name: "flushes_total",
			Help: "Batch flushes performed by the background flusher.",
		}),
		rotations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "trail", Subsystem: "audit", Name: "rotations_total",
			Help: "Active segment rotations.",
		}),
		compressFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "trail", Subsystem: "audit", Name: "compress_failures_total",
			Help: "Segment compressions that failed and were left raw.",
		}),
		pruned: f.NewCounter(prometheus.CounterOpts{
			Namespace: "trail", Subsystem: "audit", Name: "segments_pruned_total",
			Help: "Closed segments removed by retention.",
		}),
	}
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "trail", Subsystem: "audit", Name: "query_cache_hits_total",
		Help: "Queries served from the result cache.",
	}, func() float64 { return float64(engine.CacheHits()) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "trail", Subsystem: "audit", Name: "query_cache_misses_total",
		Help: "Queries that scanned segments.",
	}, func() float64 { return float64(engine.CacheMisses()) })
	return m
}
