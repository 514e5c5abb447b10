package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

const (
	// DefaultRequestSyncInterval is TimerClientRequestSynchronization's
	// period absent a failed cycle.
	DefaultRequestSyncInterval = 60 * time.Minute
	// DefaultRequestSyncIntervalAfterFailure shortens the safety-net
	// period once a cycle has failed, so recovery doesn't wait a full
	// hour.
	DefaultRequestSyncIntervalAfterFailure = 5 * time.Minute
	// DefaultMountCheckInterval is CheckSyncStatusChanged's cadence.
	DefaultMountCheckInterval = 30 * time.Second
	// DefaultLedgerSweepInterval is how often the send/recv ledgers are
	// swept for expired per-chunk deadlines.
	DefaultLedgerSweepInterval = 5 * time.Second
	// DefaultDeletedPersistInterval is how often the deleted-id list is
	// flushed to its on-disk PDIL file while the engine runs.
	DefaultDeletedPersistInterval = 5 * time.Second
)

// Run starts the watcher, spooler, ledger sweeps, and the three sync
// timers, blocking until ctx is canceled or one of them returns an error.
func (e *Engine) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return e.watch.Run(gctx) })
	g.Go(func() error { return e.spool.Run(gctx) })

	g.Go(func() error {
		e.sendLed.Sweep(gctx, DefaultLedgerSweepInterval, func(h handle.Handle) {
			e.logger.Warn("engine: send ledger deadline expired", "handle", h)
		})

		return nil
	})

	g.Go(func() error {
		e.recvLed.Sweep(gctx, DefaultLedgerSweepInterval, func(h handle.Handle) {
			e.logger.Warn("engine: recv ledger deadline expired", "handle", h)
		})

		return nil
	})

	g.Go(func() error {
		e.runStartSyncTimer(gctx)

		return nil
	})

	g.Go(func() error {
		e.runRequestSyncTimer(gctx)

		return nil
	})

	g.Go(func() error {
		e.runMountCheck(gctx)

		return nil
	})

	g.Go(func() error {
		e.runDeletedPersist(gctx)

		return nil
	})

	return g.Wait()
}

// runDeletedPersist periodically flushes the deleted-id list to its PDIL
// file on disk, and once more on shutdown. Local deletions otherwise only
// ever reach disk when the process exits cleanly, which would leave the
// file's own directory-watcher entry point with nothing to observe while
// the engine is actually running (spec.md §6, §9: the PDIL file is synced
// as ordinary content, so it has to exist on disk to be noticed).
func (e *Engine) runDeletedPersist(ctx context.Context) {
	interval := e.cfg.DeletedPersistInterval
	if interval <= 0 {
		interval = DefaultDeletedPersistInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := e.deleted.Persist(); err != nil {
				e.logger.Warn("engine: final deleted-list persist failed", "error", err)
			}

			return
		case <-ticker.C:
			if err := e.deleted.Persist(); err != nil {
				e.logger.Warn("engine: deleted-list persist failed", "error", err)
			}
		}
	}
}

// runStartSyncTimer implements TimerStartClientSynchronization: every
// debounced sync-request signal from the watcher fans a SendHashRoot out
// to every known peer, starting the RootHash phase of a convergence
// cycle.
func (e *Engine) runStartSyncTimer(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.watch.SyncRequested():
			e.broadcastRootHash(ctx)
		}
	}
}

// runRequestSyncTimer implements TimerClientRequestSynchronization: a
// periodic safety net that re-sends root hashes even absent filesystem
// activity, in case a peer's own trigger was lost. The period shortens
// after a peer's last cycle failed.
func (e *Engine) runRequestSyncTimer(ctx context.Context) {
	interval := e.cfg.RequestSyncInterval
	if interval <= 0 {
		interval = DefaultRequestSyncInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.Suspended() {
				continue
			}

			e.broadcastRootHash(ctx)

			ticker.Reset(e.nextRequestSyncInterval())
		}
	}
}

func (e *Engine) nextRequestSyncInterval() time.Duration {
	failAfter := e.cfg.RequestSyncIntervalAfterFailure
	if failAfter <= 0 {
		failAfter = DefaultRequestSyncIntervalAfterFailure
	}

	normal := e.cfg.RequestSyncInterval
	if normal <= 0 {
		normal = DefaultRequestSyncInterval
	}

	for _, peerID := range e.sess.Table().Peers() {
		ps := e.peerState(peerID)

		e.mu.Lock()
		failed := ps.lastCycleFailed
		e.mu.Unlock()

		if failed {
			return failAfter
		}
	}

	return normal
}

// runMountCheck implements CheckSyncStatusChanged: polling whether the
// cloud root is mounted and whether an external SuspendSync predicate has
// fired, toggling suspension accordingly.
func (e *Engine) runMountCheck(ctx context.Context) {
	interval := e.cfg.MountCheckInterval
	if interval <= 0 {
		interval = DefaultMountCheckInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.setSuspended(!cloudRootMounted(e.cfg.CloudRoot) || (e.cfg.SuspendSync != nil && e.cfg.SuspendSync()))
		}
	}
}

// broadcastRootHash sends the current root hash to every known peer,
// skipping entirely while sync is suspended.
func (e *Engine) broadcastRootHash(ctx context.Context) {
	if e.Suspended() {
		return
	}

	root := e.content.RootHashBytes()

	for _, peerID := range e.sess.Table().Peers() {
		if !e.transport.Connected(peerID) {
			continue
		}

		if err := e.transport.Send(ctx, peerID, CmdSendHashRoot, [][]byte{root}); err != nil {
			e.logger.Warn("engine: sending root hash failed", "peer_id", peerID, "error", err)

			ps := e.peerState(peerID)
			e.mu.Lock()
			ps.lastCycleFailed = true
			e.mu.Unlock()
		}
	}
}
