package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

func TestLedger_DeadlineAndClear(t *testing.T) {
	l := NewLedger()
	h := handle.Derive("a.txt", handle.File)

	deadline := l.Deadline(h, 1000, 10_000_000, 4)
	assert.True(t, l.Has(h))
	assert.True(t, deadline.After(time.Now()))

	l.Clear(h)
	assert.False(t, l.Has(h))
}

func TestLedger_Sweep_FiresOnExpiry(t *testing.T) {
	l := NewLedger()
	h := handle.Derive("a.txt", handle.File)

	l.Deadline(h, 1, 0, 1) // deadline ~20s+1ms in the future per the formula; force immediate via expired()

	expired := l.expired(time.Now().Add(24 * time.Hour))
	assert.Contains(t, expired, h)
	assert.False(t, l.Has(h))
}

func TestLedger_Sweep_InvokesCallbackAndStops(t *testing.T) {
	l := NewLedger()
	h := handle.Derive("a.txt", handle.File)

	l.mu.Lock()
	l.deadlines[h] = time.Now().Add(-time.Second)
	l.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	fired := make(chan handle.Handle, 1)

	go l.Sweep(ctx, 10*time.Millisecond, func(got handle.Handle) {
		select {
		case fired <- got:
		default:
		}
	})

	select {
	case got := <-fired:
		assert.Equal(t, h, got)
	case <-time.After(2 * time.Second):
		t.Fatal("expected sweep to report expired handle")
	}

	cancel()
}
