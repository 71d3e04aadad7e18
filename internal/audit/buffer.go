package audit

import (
	"sync"

	"github.com/Martificial-UK/trail/internal/integrity"
	"github.com/Martificial-UK/trail/internal/seglog"
)

// buffer is the unbounded multi-producer/single-consumer queue between
// LogEvent and the flusher. Enqueue assigns the sequence number (and the
// signature, which covers it) under the same lock that inserts the record,
// so buffer order and sequence order can never diverge even with concurrent
// producers. The lock is held for O(1) work; enqueue never blocks on I/O.
type buffer struct {
	mu      sync.Mutex
	pending []seglog.Record
	seq     uint64
	signer  *integrity.Signer
	closed  bool

	// notify carries at most one pending wakeup for the flusher.
	notify chan struct{}
}

func newBuffer(startSeq uint64, signer *integrity.Signer) *buffer {
	return &buffer{seq: startSeq, signer: signer, notify: make(chan struct{}, 1)}
}

// enqueue stamps the record and appends it in arrival order. It reports
// false once the buffer is closed; anything it accepts is guaranteed to be
// visible to the final drain.
func (b *buffer) enqueue(rec seglog.Record) (seglog.Record, bool) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return seglog.Record{}, false
	}
	b.seq++
	rec.Sequence = b.seq
	if b.signer != nil {
		rec.Signature = b.signer.Sign(seglog.CanonicalBytes(rec))
	}
	b.pending = append(b.pending, rec)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return rec, true
}

// close stops further enqueues. Records already inserted stay pending for
// the final drain.
func (b *buffer) close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// drain takes everything buffered so far, preserving enqueue order.
func (b *buffer) drain() []seglog.Record {
	b.mu.Lock()
	out := b.pending
	b.pending = nil
	b.mu.Unlock()
	return out
}

func (b *buffer) depth() int {
	b.mu.Lock()
	n := len(b.pending)
	b.mu.Unlock()
	return n
}
