package engine

import (
	"context"
	"os"

	"github.com/andrea-bruno/cloudsync/internal/dsp"
	"github.com/andrea-bruno/cloudsync/internal/icm"
	"github.com/andrea-bruno/cloudsync/internal/session"
	"github.com/andrea-bruno/cloudsync/internal/spooler"
	"github.com/andrea-bruno/cloudsync/internal/transfer"
	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

// OnCommand is the engine's inbound entry point: a Transport invokes this
// for every decoded message received from peerID, mirroring the wire
// contract's on_command(peer_id, command_u16, frames) shape (no context —
// replies are fire-and-forget sends against the engine's own background
// context). Engine never imports a concrete transport package, so an
// adapter bridges the wire CommandCode enum to this package's own before
// calling through.
func (e *Engine) OnCommand(peerID string, cmd CommandCode, frames [][]byte) {
	ctx := context.Background()

	var err error

	switch cmd {
	case CmdNotification:
		err = e.handleNotification(peerID, frames)
	case CmdRequestOfAuthentication:
		err = e.handleRequestAuth(ctx, peerID, frames)
	case CmdAuthentication:
		err = e.handleAuthentication(ctx, peerID, frames)
	case CmdSendHashStructure:
		err = e.handleSendHashStructure(peerID, frames)
	case CmdRequestHashStructure:
		err = e.handleRequestHashStructure(ctx, peerID)
	case CmdSendHashRoot:
		err = e.handleSendHashRoot(ctx, peerID, frames)
	case CmdRequestChunkFile:
		err = e.handleRequestChunkFile(ctx, peerID, frames)
	case CmdSendChunkFile:
		err = e.handleSendChunkFile(ctx, peerID, frames)
	case CmdDeleteFile:
		err = e.handleDeleteFile(peerID, frames)
	case CmdCreateDirectory:
		err = e.handleCreateDirectory(peerID, frames)
	case CmdDeleteDirectory:
		err = e.handleDeleteDirectory(peerID, frames)
	case CmdStatusNotification:
		err = e.handleStatusNotification(peerID, frames)
	default:
		e.logger.Warn("engine: dropping unknown command", "peer_id", peerID, "cmd", cmd)

		return
	}

	if err != nil {
		e.logger.Warn("engine: error handling command", "peer_id", peerID, "cmd", cmd, "error", err)
	}
}

func (e *Engine) handleNotification(peerID string, frames [][]byte) error {
	n, err := decodeNotice(frames)
	if err != nil {
		return err
	}

	switch n {
	case NoticeSynchronized:
		ps := e.peerState(peerID)
		e.mu.Lock()
		ps.lastCycleFailed = false
		e.mu.Unlock()
	case NoticeFullSpace:
		e.spool.SetPeerFullSpace(peerID, true)
	case NoticeFullSpaceOff:
		e.spool.SetPeerFullSpace(peerID, false)
	case NoticeLoggedOut:
		e.sess.Logout(peerID)
	}

	e.logger.Debug("engine: notification received", "peer_id", peerID, "notice", n)

	return nil
}

// handleRequestAuth is the server side of login: a peer asked to
// authenticate, so a fresh challenge is issued and returned.
func (e *Engine) handleRequestAuth(ctx context.Context, peerID string, frames [][]byte) error {
	host, userAgent, err := decodeRequestAuth(frames)
	if err != nil {
		return err
	}

	e.logger.Info("engine: login requested", "peer_id", peerID, "host", host, "user_agent", userAgent)

	challenge, err := e.sess.BeginLogin(peerID)
	if err != nil {
		return e.transport.Send(ctx, peerID, CmdNotification, notificationFrames(NoticeLoginError))
	}

	return e.transport.Send(ctx, peerID, CmdAuthentication, authFrames(challenge[:]))
}

// handleAuthentication dispatches on payload length: a 32-byte challenge
// travels server-to-client, an 8-byte proof client-to-server.
func (e *Engine) handleAuthentication(ctx context.Context, peerID string, frames [][]byte) error {
	payload, err := decodeAuth(frames)
	if err != nil {
		return err
	}

	switch len(payload) {
	case 32:
		return e.respondToChallenge(ctx, peerID, payload)
	case 8:
		return e.completeServerLogin(ctx, peerID, payload)
	default:
		e.logger.Warn("engine: malformed Authentication payload", "peer_id", peerID, "length", len(payload))

		return nil
	}
}

func (e *Engine) respondToChallenge(ctx context.Context, peerID string, raw []byte) error {
	e.mu.Lock()
	pin, ok := e.pendingPIN[peerID]
	e.mu.Unlock()

	if !ok {
		e.logger.Warn("engine: challenge received with no pending login", "peer_id", peerID)

		return nil
	}

	var challenge session.Challenge
	copy(challenge[:], raw)

	proof := session.ClientProof(challenge, pin)

	return e.transport.Send(ctx, peerID, CmdAuthentication, authFrames(encodeUint64(proof)))
}

func (e *Engine) completeServerLogin(ctx context.Context, peerID string, raw []byte) error {
	proof, err := decodeUint64(raw)
	if err != nil {
		return err
	}

	if err := e.sess.CompleteLogin(peerID, proof); err != nil {
		return e.transport.Send(ctx, peerID, CmdNotification, notificationFrames(NoticeLoginError))
	}

	return e.transport.Send(ctx, peerID, CmdNotification, notificationFrames(NoticeLoginSuccessful))
}

func (e *Engine) handleStatusNotification(peerID string, frames [][]byte) error {
	status, err := decodeStatus(frames)
	if err != nil {
		return err
	}

	e.logger.Debug("engine: peer status", "peer_id", peerID, "status", status)

	return nil
}

// handleSendHashRoot is the RootHash phase: equal roots mean the peers
// already converged; unequal roots trigger the Structure phase. Concurrent
// root-hash triggers for the same peer (e.g. two debounced watcher events
// landing close together) are collapsed by convergeGroup so only one
// structure exchange is in flight per peer at a time.
func (e *Engine) handleSendHashRoot(ctx context.Context, peerID string, frames [][]byte) error {
	root, err := decodeUint64(frames[0])
	if err != nil {
		return err
	}

	ps := e.peerState(peerID)

	e.mu.Lock()
	ps.lastRemoteRoot = root
	ps.haveRemoteRoot = true
	e.mu.Unlock()

	if dsp.RootsEqual(e.content.RootHash(), root) {
		return e.transport.Send(ctx, peerID, CmdNotification, notificationFrames(NoticeSynchronized))
	}

	_, err, _ = e.convergeGroup.Do(peerID, func() (any, error) {
		return nil, e.transport.Send(ctx, peerID, CmdSendHashStructure, sendHashStructureFrames(e.content.StructureHash()))
	})

	return err
}

func (e *Engine) handleRequestHashStructure(ctx context.Context, peerID string) error {
	return e.transport.Send(ctx, peerID, CmdSendHashStructure, sendHashStructureFrames(e.content.StructureHash()))
}

// handleSendHashStructure is the Structure phase: the reentry guard
// ensures a peer's prior exchange has fully drained into the spooler
// before a newer one is processed.
func (e *Engine) handleSendHashStructure(peerID string, frames [][]byte) error {
	raw, err := decodeSendHashStructure(frames)
	if err != nil {
		return err
	}

	if !e.guard.TryEnter(peerID) {
		e.logger.Debug("engine: dropping structure exchange, prior one still in flight", "peer_id", peerID)

		return nil
	}
	defer e.guard.Leave(peerID)

	remoteRaw, err := icm.ParseStructure(raw)
	if err != nil {
		return err
	}

	remote := make(map[handle.Handle]uint32, len(remoteRaw))
	for h, mt := range remoteRaw {
		remote[handle.Handle(h)] = mt
	}

	local := e.content.KeysWithMtimes()
	ops := dsp.DiffStructure(local, remote, e.deleted)

	for _, op := range ops {
		e.spool.Enqueue(e.toSpoolerOp(peerID, op))
	}

	return nil
}

// toSpoolerOp converts one diff-phase operation into a queued spooler
// operation, resolving the directory-vs-file split the diff itself can't
// see (it only has handles and mtimes).
func (e *Engine) toSpoolerOp(peerID string, op dsp.Operation) spooler.Operation {
	out := spooler.Operation{
		PeerID: peerID,
		Handle: op.Handle,
		Mtime:  op.Mtime,
	}

	switch op.Kind {
	case dsp.OpRequest:
		out.Kind = spooler.OpRequest
	case dsp.OpDeleteFile:
		if entry, ok := e.content.Get(op.Handle); ok && entry.Kind == icm.Dir {
			out.Kind = spooler.OpDeleteDir
		} else {
			out.Kind = spooler.OpDeleteFile
		}
	case dsp.OpSend:
		if entry, ok := e.content.Get(op.Handle); ok {
			out.RelPath = entry.RelativePath

			if entry.Kind == icm.Dir {
				out.Kind = spooler.OpMkdir
			} else {
				out.Kind = spooler.OpSend
			}
		} else {
			out.Kind = spooler.OpSend
		}
	}

	return out
}

// handleRequestChunkFile is the sender side of a pull: part == total+1 is
// the logical end-of-transfer signal (spec's GetChunk contract), which
// just releases the send-side ledger and CRC state.
func (e *Engine) handleRequestChunkFile(ctx context.Context, peerID string, frames [][]byte) error {
	h, part, err := decodeRequestChunk(frames)
	if err != nil {
		return err
	}

	entry, ok := e.content.Get(h)
	if !ok {
		return nil
	}

	chunkSize := e.cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = transfer.DefaultChunkSize
	}

	data, total, fileLength, err := transfer.GetChunk(entry.AbsolutePath, part, chunkSize)
	if err != nil {
		return err
	}

	if part == total+1 {
		e.sendLed.Clear(h)
		e.clearSendCRC(h)

		return nil
	}

	crc := e.sendCRCFor(h, part)
	sum := crc.Update(data)

	packet := transfer.ChunkPacket{Handle: h, Part: part, Total: total, Data: data}

	if part == total {
		packet.Final = &transfer.FinalFooter{
			Mtime:   entry.Mtime,
			Length:  uint32(fileLength), //nolint:gosec // bounded by on-disk file size
			RelPath: entry.RelativePath,
			CRC:     sum,
		}
		e.clearSendCRC(h)
	}

	e.sendLed.Deadline(h, 0, int64(len(data)), e.cfg.MaxConcurrentOperations)
	e.metrics.TransferBytesTotal.Add(float64(len(data)))

	return e.transport.Send(ctx, peerID, CmdSendChunkFile, chunkFileFrames(packet))
}

func (e *Engine) sendCRCFor(h handle.Handle, part uint32) *transfer.RollingCRC {
	e.mu.Lock()
	defer e.mu.Unlock()

	crc, ok := e.sendCRC[h]
	if !ok || part == 1 {
		crc = transfer.NewRollingCRC()
		e.sendCRC[h] = crc
	}

	return crc
}

func (e *Engine) clearSendCRC(h handle.Handle) {
	e.mu.Lock()
	delete(e.sendCRC, h)
	e.mu.Unlock()
}

// handleSendChunkFile is the receiver side of a pull: each non-final
// chunk is appended to staging and the next part is requested; the final
// chunk is validated against its footer and finalized into the content
// map.
func (e *Engine) handleSendChunkFile(ctx context.Context, peerID string, frames [][]byte) error {
	packet, err := decodeChunkFile(frames)
	if err != nil {
		return err
	}

	chunkSize := int64(e.cfg.ChunkSize)
	if chunkSize <= 0 {
		chunkSize = transfer.DefaultChunkSize
	}

	remaining := chunkSize * int64(packet.Total-packet.Part+1)

	admit, err := transfer.AdmitWrite(e.cfg.CloudRoot, e.cfg.MinReserve, remaining)
	if err != nil {
		return err
	}

	if !admit {
		return e.transport.Send(ctx, peerID, CmdNotification, notificationFrames(NoticeFullSpace))
	}

	stagingPath := transfer.StagingPath(e.cfg.TempDir, peerID, packet.Handle, e.cfg.Instance)

	if err := transfer.FileAppend(stagingPath, packet.Data, chunkSize, packet.Part); err != nil {
		return err
	}

	e.recvLed.Deadline(packet.Handle, 0, int64(len(packet.Data)), e.cfg.MaxConcurrentOperations)

	if packet.Final == nil {
		return e.transport.Send(ctx, peerID, CmdRequestChunkFile, requestChunkFrames(packet.Handle, packet.Part+1))
	}

	return e.finalizeReceive(ctx, peerID, packet, stagingPath)
}

func (e *Engine) finalizeReceive(ctx context.Context, peerID string, packet transfer.ChunkPacket, stagingPath string) error {
	computed := e.recomputeCRC(stagingPath)

	finalPath := stagingPath
	if packet.Final.RelPath != "" {
		finalPath = e.cfg.CloudRoot + "/" + packet.Final.RelPath
	}

	if err := transfer.Finalize(stagingPath, finalPath, *packet.Final, computed); err != nil {
		return err
	}

	e.recvLed.Clear(packet.Handle)

	_ = e.content.Add(icm.Entry{
		Handle:        packet.Handle,
		AbsolutePath:  finalPath,
		RelativePath:  packet.Final.RelPath,
		Mtime:         packet.Final.Mtime,
		AllocatedSize: int64(packet.Final.Length),
		Kind:          icm.File,
	})

	e.deleted.RemoveByHandle(packet.Handle)

	return e.transport.Send(ctx, peerID, CmdNotification, notificationFrames(NoticeOperationCompleted))
}

// recomputeCRC folds the staged file's bytes through a fresh rolling CRC
// in chunk-sized strides, matching the sender's per-chunk accumulation so
// the comparison in Finalize is apples-to-apples.
func (e *Engine) recomputeCRC(path string) uint64 {
	chunkSize := e.cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = transfer.DefaultChunkSize
	}

	crc := transfer.NewRollingCRC()

	var part uint32 = 1

	for {
		data, total, _, err := transfer.GetChunk(path, part, chunkSize)
		if err != nil || part > total {
			return crc.Sum()
		}

		crc.Update(data)

		if part == total {
			return crc.Sum()
		}

		part++
	}
}

func (e *Engine) handleDeleteFile(peerID string, frames [][]byte) error {
	h, _, err := decodeDeleteFile(frames)
	if err != nil {
		return err
	}

	if entry, ok := e.content.Get(h); ok {
		e.watch.ExpectRemoteDelete(entry.FileId())
		_ = os.Remove(entry.AbsolutePath)
	}

	e.content.Remove(h)

	e.logger.Debug("engine: remote delete file applied", "peer_id", peerID, "handle", h)

	return nil
}

func (e *Engine) handleCreateDirectory(peerID string, frames [][]byte) error {
	relPath, err := decodeCreateDirectory(frames)
	if err != nil {
		return err
	}

	absPath := e.cfg.CloudRoot + "/" + relPath
	if err := os.MkdirAll(absPath, 0o700); err != nil {
		return err
	}

	h := handle.Derive(relPath, handle.Dir)

	_ = e.content.Add(icm.Entry{
		Handle:       h,
		AbsolutePath: absPath,
		RelativePath: relPath,
		Kind:         icm.Dir,
	})

	e.logger.Debug("engine: remote mkdir applied", "peer_id", peerID, "rel_path", relPath)

	return nil
}

func (e *Engine) handleDeleteDirectory(peerID string, frames [][]byte) error {
	h, err := decodeDeleteDirectory(frames)
	if err != nil {
		return err
	}

	if entry, ok := e.content.Get(h); ok {
		e.watch.ExpectRemoteDelete(entry.FileId())
		_ = os.RemoveAll(entry.AbsolutePath)
		e.content.RemoveSubtree(entry.RelativePath)
	}

	e.logger.Debug("engine: remote rmdir applied", "peer_id", peerID, "handle", h)

	return nil
}
