// Package engine implements the sync engine: the top-level orchestrator
// binding the indexed content map, deletion list, directory watcher, chunk
// transfer engine, differential sync protocol, operation spooler, and
// session manager to an external transport, and driving convergence between
// peers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/andrea-bruno/cloudsync/internal/dsp"
	"github.com/andrea-bruno/cloudsync/internal/icm"
	"github.com/andrea-bruno/cloudsync/internal/pdil"
	"github.com/andrea-bruno/cloudsync/internal/session"
	"github.com/andrea-bruno/cloudsync/internal/spooler"
	"github.com/andrea-bruno/cloudsync/internal/transfer"
	"github.com/andrea-bruno/cloudsync/internal/watcher"
	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

// ErrNotMounted is returned by operations attempted while the suspension
// rule holds — the cloud root is a mount point with nothing mounted, or an
// external SuspendSync predicate has returned true.
var ErrNotMounted = errors.New("engine: cloud root not mounted or sync suspended")

// Config holds everything New needs to assemble one running instance
// for a single CloudRoot, user id, and instance id.
type Config struct {
	CloudRoot  string
	UserID     string
	Instance   handle.InstanceID
	TempDir    string
	ChunkSize  int
	MinReserve int64

	MaxConcurrentOperations int
	DispatchInterval        time.Duration

	DeletedRingCapacity int
	DeletedListCapacity int

	// SyncDebounce is the quiet period TimerStartClientSynchronization
	// waits after the last filesystem event before starting a
	// RootHash-phase convergence cycle (spec.md §4.7).
	SyncDebounce time.Duration

	PINStore     *session.PINStore
	RateLimiter  *session.RateLimiter
	ChallengeTTL time.Duration

	// SuspendSync, when non-nil, is polled by CheckSyncStatusChanged
	// alongside the CloudRoot mount check; returning true pauses all
	// send/recv and disables watchers (spec.md §4.7).
	SuspendSync func() bool

	// RequestSyncInterval is the default period of
	// TimerClientRequestSynchronization; RequestSyncIntervalAfterFailure
	// is the shortened period used after a failed cycle.
	RequestSyncInterval            time.Duration
	RequestSyncIntervalAfterFailure time.Duration

	// MountCheckInterval is CheckSyncStatusChanged's cadence.
	MountCheckInterval time.Duration

	// DeletedPersistInterval is how often the deleted-id list is flushed
	// to its on-disk PDIL file while the engine runs, rather than only at
	// shutdown — the watcher can only notice and sync a deletion as
	// ordinary content once it actually lands on disk.
	DeletedPersistInterval time.Duration

	Transport  Transport
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

// Transport is the narrow send/connected contract the engine is built
// against (spec.md §6); satisfied by *wstransport.Transport or any other
// implementation.
type Transport interface {
	Send(ctx context.Context, peerID string, cmd CommandCode, frames [][]byte) error
	Connected(peerID string) bool
}

// peerState tracks per-peer convergence bookkeeping the engine needs
// beyond what internal/session.Table already owns.
type peerState struct {
	lastRemoteRoot   uint64
	haveRemoteRoot   bool
	lastCycleFailed  bool
}

// Engine wires the indexed content map, deletion list, watcher, spooler,
// session manager, and transport together into one running sync instance.
type Engine struct {
	cfg Config

	content *icm.Map
	deleted *pdil.List
	watch   *watcher.Watcher
	spool   *spooler.Spooler
	sess    *session.Manager
	guard   *dsp.ReentryGuard
	sendLed *transfer.Ledger
	recvLed *transfer.Ledger
	metrics *Metrics

	transport Transport
	logger    *slog.Logger

	mu          sync.Mutex
	peers       map[string]*peerState
	suspended   bool
	pendingPIN  map[string]string
	sendCRC     map[handle.Handle]*transfer.RollingCRC

	convergeGroup singleflight.Group
}

// New assembles an Engine from already-loaded collaborators (content map
// and deleted list are loaded or rebuilt by the caller, since that
// decision — Load vs. RebuildFromTree — belongs to startup, not the
// engine itself).
func New(cfg Config, content *icm.Map, deleted *pdil.List) (*Engine, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("engine: Transport is required")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}

	e := &Engine{
		cfg:       cfg,
		content:   content,
		deleted:   deleted,
		sess:      session.NewManager(cfg.PINStore, cfg.RateLimiter, cfg.ChallengeTTL, cfg.Logger),
		guard:     dsp.NewReentryGuard(),
		sendLed:   transfer.NewLedger(),
		recvLed:   transfer.NewLedger(),
		metrics:   NewMetrics(cfg.Registerer),
		transport: cfg.Transport,
		logger:     cfg.Logger,
		peers:      make(map[string]*peerState),
		pendingPIN: make(map[string]string),
		sendCRC:    make(map[handle.Handle]*transfer.RollingCRC),
	}

	e.watch = watcher.New(cfg.CloudRoot, content, deleted, cfg.DeletedRingCapacity, cfg.SyncDebounce, cfg.Logger)
	e.spool = spooler.New(e, cfg.MaxConcurrentOperations, cfg.DispatchInterval, cfg.Logger)

	return e, nil
}

// Content returns the engine's indexed content map.
func (e *Engine) Content() *icm.Map { return e.content }

// Deleted returns the engine's persistent deleted-id list.
func (e *Engine) Deleted() *pdil.List { return e.deleted }

// Sessions returns the engine's session manager, so a transport adapter can
// authenticate inbound connections before handing them events.
func (e *Engine) Sessions() *session.Manager { return e.sess }

// Watcher returns the engine's directory watcher.
func (e *Engine) Watcher() *watcher.Watcher { return e.watch }

func (e *Engine) peerState(peerID string) *peerState {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, ok := e.peers[peerID]
	if !ok {
		ps = &peerState{}
		e.peers[peerID] = ps
	}

	return ps
}

// Suspended reports whether sync is currently suspended: an external
// SuspendSync predicate returned true, or the last mount probe found the
// cloud root absent.
func (e *Engine) Suspended() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.suspended
}

// Login begins a client-side login to peerID: it remembers pin for when
// the peer's challenge arrives and sends RequestOfAuthentication. host and
// userAgent identify this instance to the peer, for its own logging.
func (e *Engine) Login(ctx context.Context, peerID, host, userAgent, pin string) error {
	e.mu.Lock()
	e.pendingPIN[peerID] = pin
	e.mu.Unlock()

	e.sess.Table().GetOrCreate(peerID, session.RoleClient)

	return e.transport.Send(ctx, peerID, CmdRequestOfAuthentication, requestAuthFrames(host, userAgent))
}

func (e *Engine) setSuspended(v bool) {
	e.mu.Lock()
	changed := e.suspended != v
	e.suspended = v
	e.mu.Unlock()

	if changed {
		if v {
			e.logger.Warn("engine: sync suspended")
		} else {
			e.logger.Info("engine: sync resumed")
		}
	}
}
