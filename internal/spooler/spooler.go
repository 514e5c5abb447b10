package spooler

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrentOperations bounds simultaneously active operations.
const DefaultMaxConcurrentOperations = 4

// DefaultDispatchInterval is the cadence at which the spooler looks for
// newly dispatchable work — the "next execute next tick" a failed
// operation's retry rides on.
const DefaultDispatchInterval = 200 * time.Millisecond

// dispatchRetryBase and dispatchMaxRetries bound a single dispatch
// attempt's own internal retry against transient transport errors;
// exhausting this budget requeues the operation for the next tick rather
// than treating it as abandoned outright (abandonment is tracked
// separately, per handle, across ticks — see AbandonTracker).
const (
	dispatchRetryBase  = 50 * time.Millisecond
	dispatchMaxRetries = 2
)

// Spooler drains queued operations with bounded concurrency, applying
// peer backpressure, per-handle abandonment, and throughput tracking for
// ETA reporting.
type Spooler struct {
	queue            *Queue
	backpressure     *Backpressure
	rate             *RateTracker
	abandon          *AbandonTracker
	executor         Executor
	maxConcurrent    int
	dispatchInterval time.Duration
	logger           *slog.Logger
}

// New returns a Spooler with the given concurrency and dispatch cadence.
// maxConcurrent <= 0 and interval <= 0 fall back to the package defaults.
func New(executor Executor, maxConcurrent int, interval time.Duration, logger *slog.Logger) *Spooler {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentOperations
	}

	if interval <= 0 {
		interval = DefaultDispatchInterval
	}

	return &Spooler{
		queue:            NewQueue(),
		backpressure:     NewBackpressure(),
		rate:             NewRateTracker(),
		abandon:          NewAbandonTracker(0),
		executor:         executor,
		maxConcurrent:    maxConcurrent,
		dispatchInterval: interval,
		logger:           logger,
	}
}

// Enqueue stamps op with the current time and adds it to the queue.
func (s *Spooler) Enqueue(op Operation) {
	op.Enqueued = time.Now()
	s.queue.Push(op)
}

// SetPeerFullSpace records a FullSpace/FullSpaceOff notice for a peer.
func (s *Spooler) SetPeerFullSpace(peerID string, full bool) {
	s.backpressure.SetFullSpace(peerID, full)
}

// RecordChunk folds a completed chunk's throughput into the ETA rate
// tracker. Called by the transfer engine as each chunk of a Send
// completes.
func (s *Spooler) RecordChunk(bytes int64, elapsed time.Duration) {
	s.rate.RecordChunk(bytes, elapsed)
}

// ETA projects the time remaining to move pendingBytes at the current
// observed rate.
func (s *Spooler) ETA(pendingBytes int64) time.Duration {
	return s.rate.ETA(pendingBytes)
}

// QueueDepth returns the number of entries waiting in each priority tier.
func (s *Spooler) QueueDepth() (priority, normal int) {
	return s.queue.Len()
}

// Run dispatches operations until ctx is canceled, blocking until every
// in-flight dispatch has returned.
func (s *Spooler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	ticker := time.NewTicker(s.dispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case <-ticker.C:
			s.dispatchReady(gctx, g)
		}
	}
}

// dispatchReady pulls as many dispatchable operations as the remaining
// concurrency budget allows, without blocking past what TryGo offers this
// tick.
func (s *Spooler) dispatchReady(ctx context.Context, g *errgroup.Group) {
	for {
		op, ok := s.queue.PopDispatchable(s.backpressure.Suspended)
		if !ok {
			return
		}

		started := g.TryGo(func() error {
			s.dispatch(ctx, op)

			return nil
		})

		if !started {
			// At capacity this tick; put the operation back for the next one.
			s.queue.Push(op)

			return
		}
	}
}

// dispatch runs one operation, with a small internal retry budget against
// transient transport errors, and requeues or abandons it on failure.
func (s *Spooler) dispatch(ctx context.Context, op Operation) {
	start := time.Now()

	backoff, err := retry.NewExponential(dispatchRetryBase)
	if err == nil {
		backoff = retry.WithMaxRetries(dispatchMaxRetries, backoff)
	}

	execErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.executor.Execute(ctx, op); err != nil {
			return retry.RetryableError(err)
		}

		return nil
	})

	if execErr != nil {
		s.handleFailure(op, execErr)

		return
	}

	s.handleSuccess(op, time.Since(start))
}

func (s *Spooler) handleSuccess(op Operation, elapsed time.Duration) {
	if op.Kind == OpSend {
		s.abandon.RecordSuccess(op.Handle)
	}

	s.logger.Debug("spooler: operation completed",
		slog.String("kind", op.Kind.String()),
		slog.String("peer", op.PeerID),
		slog.Duration("elapsed", elapsed),
	)
}

func (s *Spooler) handleFailure(op Operation, err error) {
	if op.Kind == OpSend {
		count := s.abandon.RecordTimeout(op.Handle)
		if s.abandon.ShouldAbandon(op.Handle) {
			s.logger.Warn("spooler: abandoning operation after repeated timeouts",
				slog.String("peer", op.PeerID),
				slog.Int("attempts", count),
				slog.String("error", err.Error()),
			)
			s.abandon.Reset(op.Handle)

			return
		}
	}

	op.Attempts++
	s.queue.Push(op)

	s.logger.Warn("spooler: operation failed, requeued",
		slog.String("kind", op.Kind.String()),
		slog.String("peer", op.PeerID),
		slog.Int("attempts", op.Attempts),
		slog.String("error", err.Error()),
	)
}
