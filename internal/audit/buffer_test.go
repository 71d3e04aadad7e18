package audit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Martificial-UK/trail/internal/seglog"
)

func TestBufferSequencesFromStart(t *testing.T) {
	b := newBuffer(41, nil)
	rec, ok := b.enqueue(seglog.Record{Kind: "a"})
	require.True(t, ok)
	require.Equal(t, uint64(42), rec.Sequence)
	require.Equal(t, 1, b.depth())
}

func TestBufferCloseRejectsEnqueueKeepsPending(t *testing.T) {
	b := newBuffer(0, nil)
	_, ok := b.enqueue(seglog.Record{Kind: "a"})
	require.True(t, ok)

	b.close()
	if _, ok := b.enqueue(seglog.Record{Kind: "late"}); ok {
		t.Fatal("enqueue after close must be rejected")
	}

	// what got in before close survives for the final drain
	recs := b.drain()
	require.Len(t, recs, 1)
	require.Equal(t, "a", recs[0].Kind)
}

func TestBufferDrainPreservesOrderAndEmpties(t *testing.T) {
	b := newBuffer(0, nil)
	for i := 0; i < 5; i++ {
		b.enqueue(seglog.Record{Kind: "a"})
	}
	recs := b.drain()
	require.Len(t, recs, 5)
	for i, rec := range recs {
		require.Equal(t, uint64(i+1), rec.Sequence)
	}
	require.Equal(t, 0, b.depth())
	require.Empty(t, b.drain())
}

func TestBufferConcurrentEnqueueMonotonic(t *testing.T) {
	b := newBuffer(0, nil)
	const goroutines = 8
	const perGoroutine = 200

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				b.enqueue(seglog.Record{Kind: "tick"})
			}
		}()
	}
	wg.Wait()

	recs := b.drain()
	require.Len(t, recs, goroutines*perGoroutine)
	// buffer position and sequence must agree regardless of interleaving
	for i, rec := range recs {
		require.Equal(t, uint64(i+1), rec.Sequence)
	}
}

func TestBufferNotifyCoalesces(t *testing.T) {
	b := newBuffer(0, nil)
	for i := 0; i < 10; i++ {
		b.enqueue(seglog.Record{Kind: "a"})
	}
	// at most one wakeup is pending however many enqueues happened
	<-b.notify
	select {
	case <-b.notify:
		t.Fatal("expected a single coalesced notification")
	default:
	}
}
