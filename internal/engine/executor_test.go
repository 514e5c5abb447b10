package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrea-bruno/cloudsync/internal/icm"
	"github.com/andrea-bruno/cloudsync/internal/spooler"
	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

func TestEngine_ExecuteRejectsDisconnectedPeer(t *testing.T) {
	transport := newFakeTransport()
	e, _, _ := newTestEngine(t, transport)

	err := e.Execute(context.Background(), spooler.Operation{Kind: spooler.OpDeleteFile, PeerID: "peer-1"})
	assert.Error(t, err)
}

func TestEngine_ExecuteRequestNoOpForDirectory(t *testing.T) {
	transport := newFakeTransport()
	e, _, _ := newTestEngine(t, transport)
	transport.setConnected("peer-1", true)

	err := e.Execute(context.Background(), spooler.Operation{Kind: spooler.OpRequest, PeerID: "peer-1", Mtime: 0})
	require.NoError(t, err)
	assert.Empty(t, transport.messagesFor(CmdRequestChunkFile))
}

func TestEngine_ExecuteRequestSendsForFile(t *testing.T) {
	transport := newFakeTransport()
	e, _, _ := newTestEngine(t, transport)
	transport.setConnected("peer-1", true)

	err := e.Execute(context.Background(), spooler.Operation{Kind: spooler.OpRequest, PeerID: "peer-1", Mtime: 123})
	require.NoError(t, err)
	assert.Len(t, transport.messagesFor(CmdRequestChunkFile), 1)
}

func TestEngine_ExecuteSendPushesFile(t *testing.T) {
	transport := newFakeTransport()
	e, content, _ := newTestEngine(t, transport)
	transport.setConnected("peer-1", true)

	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o600))

	h := handle.Derive("a.txt", handle.File)
	require.NoError(t, content.Add(icm.Entry{
		Handle:        h,
		AbsolutePath:  path,
		RelativePath:  "a.txt",
		Mtime:         1000,
		AllocatedSize: 11,
		Kind:          icm.File,
	}))

	err := e.Execute(context.Background(), spooler.Operation{Kind: spooler.OpSend, PeerID: "peer-1", Handle: h})
	require.NoError(t, err)

	sent := transport.messagesFor(CmdSendChunkFile)
	require.Len(t, sent, 1)

	packet, err := decodeChunkFile(sent[0].frames)
	require.NoError(t, err)
	assert.Equal(t, h, packet.Handle)
	require.NotNil(t, packet.Final)
	assert.Equal(t, "a.txt", packet.Final.RelPath)
}
