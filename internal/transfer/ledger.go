package transfer

import (
	"context"
	"sync"
	"time"

	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

// Direction distinguishes a send-side ledger from a receive-side one; the
// engine keeps one Ledger per direction since a peer can be sending one
// handle while receiving another.
type Direction int

const (
	Send Direction = iota
	Recv
)

// Ledger tracks per-handle deadlines for in-flight chunk transfers. A
// background Sweep reports handles whose deadline has passed so the
// spooler can mark them failed and, if appropriate, re-request.
type Ledger struct {
	mu        sync.Mutex
	deadlines map[handle.Handle]time.Time
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{deadlines: make(map[handle.Handle]time.Time)}
}

// Deadline computes and records the deadline for the next chunk of an
// in-flight transfer of h: base_ms + data_size/10 · maxConcurrent +
// 20,000ms from now.
func (l *Ledger) Deadline(h handle.Handle, baseMs int64, dataSize int64, maxConcurrent int) time.Time {
	timeoutMs := baseMs + (dataSize/10)*int64(maxConcurrent) + 20_000
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)

	l.mu.Lock()
	l.deadlines[h] = deadline
	l.mu.Unlock()

	return deadline
}

// Clear removes h's ledger entry, releasing it on completion or logical
// end-of-transfer (GetChunk's part == total+1 signal).
func (l *Ledger) Clear(h handle.Handle) {
	l.mu.Lock()
	delete(l.deadlines, h)
	l.mu.Unlock()
}

// Has reports whether h currently has a tracked deadline.
func (l *Ledger) Has(h handle.Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.deadlines[h]

	return ok
}

// expired returns and clears every handle whose deadline is at or before
// now.
func (l *Ledger) expired(now time.Time) []handle.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []handle.Handle

	for h, deadline := range l.deadlines {
		if !now.Before(deadline) {
			out = append(out, h)
			delete(l.deadlines, h)
		}
	}

	return out
}

// Sweep polls for expired deadlines every interval and invokes onExpired
// for each, until ctx is canceled.
func (l *Ledger) Sweep(ctx context.Context, interval time.Duration, onExpired func(handle.Handle)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case now := <-ticker.C:
			for _, h := range l.expired(now) {
				onExpired(h)
			}
		}
	}
}
