package wstransport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// Handler is the inbound entry point a Transport invokes for every
// decoded message it receives from a peer.
type Handler interface {
	OnCommand(peerID string, cmd CommandCode, frames [][]byte)
}

// Transport multiplexes WebSocket connections to one or more peers behind
// the engine's send/on_command contract. One Transport instance serves
// both the client side (Dial) and the server side (Accept) of a
// connection.
type Transport struct {
	mu      sync.Mutex
	conns   map[string]*websocket.Conn
	handler Handler
	logger  *slog.Logger
}

// New creates a Transport that dispatches inbound messages to handler.
func New(handler Handler, logger *slog.Logger) *Transport {
	return &Transport{
		conns:   make(map[string]*websocket.Conn),
		handler: handler,
		logger:  logger,
	}
}

// Dial opens a client-side connection to url and registers it under
// peerID. The read loop runs until the connection closes or ctx is
// canceled.
func (t *Transport) Dial(ctx context.Context, peerID, url string) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("wstransport: dialing %s: %w", url, err)
	}

	t.register(peerID, conn)
	go t.readLoop(ctx, peerID, conn)

	return nil
}

// Accept upgrades an inbound HTTP request to a WebSocket connection and
// registers it under peerID, the server-side counterpart of Dial.
func (t *Transport) Accept(w http.ResponseWriter, r *http.Request, peerID string) error {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return fmt.Errorf("wstransport: accepting connection from %s: %w", peerID, err)
	}

	t.register(peerID, conn)
	go t.readLoop(r.Context(), peerID, conn)

	return nil
}

func (t *Transport) register(peerID string, conn *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.conns[peerID]; ok {
		existing.Close(websocket.StatusNormalClosure, "superseded by new connection")
	}

	t.conns[peerID] = conn
}

func (t *Transport) remove(peerID string, conn *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conns[peerID] == conn {
		delete(t.conns, peerID)
	}
}

func (t *Transport) readLoop(ctx context.Context, peerID string, conn *websocket.Conn) {
	defer t.remove(peerID, conn)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			t.logger.Debug("connection closed", "peer_id", peerID, "error", err)

			return
		}

		if typ != websocket.MessageBinary {
			continue
		}

		cmd, frames, err := DecodeMessage(data)
		if err != nil {
			t.logger.Warn("dropping malformed message", "peer_id", peerID, "error", err)

			continue
		}

		t.handler.OnCommand(peerID, cmd, frames)
	}
}

// Send implements the transport contract's fire-and-forget send: it
// encodes cmd and frames and writes them as a single binary WebSocket
// message to peerID.
func (t *Transport) Send(ctx context.Context, peerID string, cmd CommandCode, frames [][]byte) error {
	t.mu.Lock()
	conn, ok := t.conns[peerID]
	t.mu.Unlock()

	if !ok {
		return fmt.Errorf("wstransport: no connection to peer %q", peerID)
	}

	if err := conn.Write(ctx, websocket.MessageBinary, EncodeMessage(cmd, frames)); err != nil {
		return fmt.Errorf("wstransport: sending to peer %q: %w", peerID, err)
	}

	return nil
}

// Connected reports whether peerID currently has a live connection.
func (t *Transport) Connected(peerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.conns[peerID]

	return ok
}

// Close tears down the connection to peerID, if any.
func (t *Transport) Close(peerID string) error {
	t.mu.Lock()
	conn, ok := t.conns[peerID]
	delete(t.conns, peerID)
	t.mu.Unlock()

	if !ok {
		return nil
	}

	if err := conn.Close(websocket.StatusNormalClosure, "closed"); err != nil {
		return fmt.Errorf("wstransport: closing connection to peer %q: %w", peerID, err)
	}

	return nil
}
