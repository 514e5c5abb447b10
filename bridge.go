package main

import (
	"context"

	"github.com/andrea-bruno/cloudsync/internal/engine"
	"github.com/andrea-bruno/cloudsync/internal/wstransport"
)

// transportBridge adapts between the engine's transport contract and
// wstransport's WebSocket transport. The two packages enumerate the same
// command/notice/status values independently (the engine stays buildable
// without importing a WebSocket library), so bridging is a plain numeric
// cast in both directions.
//
// eng is set after engine.New returns, since wstransport.New needs a
// Handler before the Engine exists and engine.New needs a Transport before
// the bridge can forward inbound frames anywhere. No inbound frame arrives
// before a connection is accepted or dialed, which happens after both
// halves are wired, so the nil window is never observed.
type transportBridge struct {
	ws  *wstransport.Transport
	eng *engine.Engine
}

func (b *transportBridge) OnCommand(peerID string, cmd wstransport.CommandCode, frames [][]byte) {
	b.eng.OnCommand(peerID, engine.CommandCode(cmd), frames)
}

func (b *transportBridge) Send(ctx context.Context, peerID string, cmd engine.CommandCode, frames [][]byte) error {
	return b.ws.Send(ctx, peerID, wstransport.CommandCode(cmd), frames)
}

func (b *transportBridge) Connected(peerID string) bool {
	return b.ws.Connected(peerID)
}
