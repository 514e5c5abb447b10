// Package e2e exercises two in-process engines wired together by a paired
// fake transport, converging real files across two real CloudRoot
// directories through the full watcher -> root hash -> structure diff ->
// spooler -> chunk transfer pipeline. It replaces the teacher's live-OneDrive
// suite (device-code login, multi-drive TOML config, Graph API HTTP calls),
// none of which has any counterpart once PIN/SRM authentication and a flat
// single-CloudRoot config replace OAuth and per-drive accounts.
package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrea-bruno/cloudsync/internal/engine"
	"github.com/andrea-bruno/cloudsync/internal/icm"
	"github.com/andrea-bruno/cloudsync/internal/pdil"
	"github.com/andrea-bruno/cloudsync/internal/session"
	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

// pairedTransport wires one engine directly to another in-process,
// dispatching OnCommand on a goroutine so a handler that itself calls back
// through Send (e.g. replying to a challenge, or answering a chunk request)
// never reenters its own peer synchronously. peer is backfilled after both
// engines exist, mirroring the lazy-bind pattern the daemon's own
// transportBridge uses to wire two halves of a connection together.
type pairedTransport struct {
	selfID string
	peer   *engine.Engine
}

func (p *pairedTransport) Send(_ context.Context, peerID string, cmd engine.CommandCode, frames [][]byte) error {
	peer := p.peer
	go peer.OnCommand(p.selfID, cmd, frames)

	return nil
}

func (p *pairedTransport) Connected(string) bool { return true }

// newPeerPair builds two engines, each rooted at its own temp directory,
// wired together by a pairedTransport on each side. The returned contexts'
// Run loops are started in the background and torn down by t.Cleanup.
func newPeerPair(t *testing.T, idA, idB string) (*engine.Engine, string, *engine.Engine, string) {
	t.Helper()

	rootA, rootB := t.TempDir(), t.TempDir()

	transportA := &pairedTransport{selfID: idA}
	transportB := &pairedTransport{selfID: idB}

	// Each peer's own PDIL file is named after its UserID
	// (.cloud_cache/<userID>.Deleted); the two must differ, or peer A's
	// synced copy of its own PDIL file would land on the exact same
	// relative path as peer B's, overwriting B's own deleted-id list.
	engA := newPeerEngine(t, rootA, idA, transportA)
	engB := newPeerEngine(t, rootB, idB, transportB)

	transportA.peer = engB
	transportB.peer = engA

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() { _ = engA.Run(ctx) }()
	go func() { _ = engB.Run(ctx) }()

	return engA, rootA, engB, rootB
}

func newPeerEngine(t *testing.T, root, userID string, transport engine.Transport) *engine.Engine {
	t.Helper()

	content := icm.New()
	deleted := pdil.New(pdil.PathFor(root, userID), 1000, testLogger())

	cfg := engine.Config{
		CloudRoot:               root,
		UserID:                  userID,
		TempDir:                 t.TempDir(),
		Instance:                handle.NewInstanceID(),
		MinReserve:              0,
		MaxConcurrentOperations: 4,
		DispatchInterval:        10 * time.Millisecond,
		SyncDebounce:            20 * time.Millisecond,
		RequestSyncInterval:     time.Hour,
		MountCheckInterval:      time.Hour,
		DeletedPersistInterval:  15 * time.Millisecond,
		PINStore:                session.NewPINStore("1234"),
		RateLimiter:             session.NewRateLimiter(3, 5*time.Second, 600*time.Second),
		ChallengeTTL:            5 * time.Second,
		Transport:               transport,
		Logger:                  testLogger(),
		Registerer:              prometheus.NewRegistry(),
	}

	e, err := engine.New(cfg, content, deleted)
	require.NoError(t, err)

	return e
}

// loginPeers drives a full PIN challenge/response handshake: client
// initiates against server, server issues the challenge, client answers it,
// and server marks the client's record authenticated on a matching proof —
// the same exchange TestEngine_LoginRoundTrip exercises one-sided (a single
// engine standing in for both ends). Here both engines are real and the
// messages actually cross the paired transport, so only the side that calls
// CompleteLogin (the server, responding to the client's proof) ever flips
// its own record's Authenticated bit; the client's own table entry just
// tracks that a login is underway.
func loginPeers(t *testing.T, client *engine.Engine, serverPeerID string, server *engine.Engine, clientPeerID string) {
	t.Helper()

	require.NoError(t, client.Login(context.Background(), serverPeerID, "hostA", "agentA", "1234"))

	require.Eventually(t, func() bool {
		rec, ok := server.Sessions().Table().Get(clientPeerID)

		return ok && rec.Authenticated()
	}, 2*time.Second, 10*time.Millisecond, "login handshake never completed")
}

func TestE2E_LoginRoundTripBetweenRealEngines(t *testing.T) {
	engA, _, engB, _ := newPeerPair(t, "peer-a", "peer-b")

	loginPeers(t, engA, "peer-b", engB, "peer-a")

	_, ok := engA.Sessions().Table().Get("peer-b")
	require.True(t, ok, "peer A should record session state for peer B after initiating login")

	recB, ok := engB.Sessions().Table().Get("peer-a")
	require.True(t, ok)
	assert.True(t, recB.Authenticated())
}

func TestE2E_FileCreatedOnOnePeerConvergesToTheOther(t *testing.T) {
	engA, rootA, engB, rootB := newPeerPair(t, "peer-a", "peer-b")

	loginPeers(t, engA, "peer-b", engB, "peer-a")

	const content = "hello from peer a"
	require.NoError(t, os.WriteFile(filepath.Join(rootA, "greeting.txt"), []byte(content), 0o644))

	require.Eventually(t, func() bool {
		got, err := os.ReadFile(filepath.Join(rootB, "greeting.txt"))

		return err == nil && string(got) == content
	}, 10*time.Second, 50*time.Millisecond, "file never converged to peer B")
}

func TestE2E_DeletePropagatesAsPDILFileThenRemovesRemoteCopy(t *testing.T) {
	engA, rootA, engB, rootB := newPeerPair(t, "peer-a", "peer-b")

	loginPeers(t, engA, "peer-b", engB, "peer-a")

	const content = "will be deleted"
	path := filepath.Join(rootA, "temporary.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	require.Eventually(t, func() bool {
		got, err := os.ReadFile(filepath.Join(rootB, "temporary.txt"))

		return err == nil && string(got) == content
	}, 10*time.Second, 50*time.Millisecond, "file never converged to peer B before deletion")

	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(rootB, "temporary.txt"))

		return os.IsNotExist(err)
	}, 10*time.Second, 50*time.Millisecond, "deletion never propagated to peer B")

	// The deletion is also recorded in A's own PDIL file, which syncs to B
	// as ordinary content rather than being excluded with the rest of
	// .cloud_cache, so B learns A's delete set independent of the direct
	// DeleteFile push above.
	pdilPath := pdil.PathFor(rootB, "peer-a")
	require.Eventually(t, func() bool {
		info, err := os.Stat(pdilPath)

		return err == nil && info.Size() > 0
	}, 10*time.Second, 50*time.Millisecond, "peer A's PDIL file never converged onto peer B")
}
