package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/andrea-bruno/cloudsync/internal/icm"
	"github.com/andrea-bruno/cloudsync/internal/spooler"
	"github.com/andrea-bruno/cloudsync/internal/transfer"
)

// Execute implements spooler.Executor: it turns one dispatched operation
// into wire traffic against op.PeerID. Directories have no pull path on
// the wire (spec.md §6's command set carries no "request directory"), so a
// Request for a zero-mtime (directory) entry is a deliberate no-op: the
// peer that owns it discovers the gap from its own diff and pushes
// CreateDirectory unprompted.
func (e *Engine) Execute(ctx context.Context, op spooler.Operation) error {
	if e.Suspended() {
		return ErrNotMounted
	}

	if !e.transport.Connected(op.PeerID) {
		return fmt.Errorf("engine: peer %s not connected", op.PeerID)
	}

	switch op.Kind {
	case spooler.OpRequest:
		if op.Mtime == 0 {
			return nil
		}

		return e.transport.Send(ctx, op.PeerID, CmdRequestChunkFile, requestChunkFrames(op.Handle, 1))

	case spooler.OpSend:
		return e.executeSend(ctx, op)

	case spooler.OpDeleteFile:
		return e.transport.Send(ctx, op.PeerID, CmdDeleteFile, deleteFileFrames(op.Handle, op.Mtime))

	case spooler.OpDeleteDir:
		return e.transport.Send(ctx, op.PeerID, CmdDeleteDirectory, deleteDirectoryFrames(op.Handle))

	case spooler.OpMkdir:
		return e.transport.Send(ctx, op.PeerID, CmdCreateDirectory, createDirectoryFrames(op.RelPath))

	default:
		return fmt.Errorf("engine: unknown operation kind %v", op.Kind)
	}
}

// executeSend pushes a local entry to op.PeerID: CreateDirectory for a
// directory entry, or a full chunked SendChunkFile sequence for a file.
func (e *Engine) executeSend(ctx context.Context, op spooler.Operation) error {
	entry, ok := e.content.Get(op.Handle)
	if !ok {
		return fmt.Errorf("engine: send requested for unknown handle %s", op.Handle)
	}

	if entry.Kind == icm.Dir {
		return e.transport.Send(ctx, op.PeerID, CmdCreateDirectory, createDirectoryFrames(entry.RelativePath))
	}

	return e.sendFile(ctx, op.PeerID, entry)
}

func (e *Engine) sendFile(ctx context.Context, peerID string, entry icm.Entry) error {
	chunkSize := e.cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = transfer.DefaultChunkSize
	}

	crc := transfer.NewRollingCRC()

	total := transfer.TotalParts(entry.AllocatedSize, chunkSize)

	for part := uint32(1); part <= total; part++ {
		started := time.Now()

		data, _, fileLength, err := transfer.GetChunk(entry.AbsolutePath, part, chunkSize)
		if err != nil {
			return fmt.Errorf("engine: reading chunk %d of %s: %w", part, entry.RelativePath, err)
		}

		sum := crc.Update(data)

		packet := transfer.ChunkPacket{
			Handle: entry.Handle,
			Part:   part,
			Total:  total,
			Data:   data,
		}

		if part == total {
			packet.Final = &transfer.FinalFooter{
				Mtime:   entry.Mtime,
				Length:  uint32(fileLength), //nolint:gosec // bounded by on-disk file size
				RelPath: entry.RelativePath,
				CRC:     sum,
			}
		}

		if err := e.transport.Send(ctx, peerID, CmdSendChunkFile, chunkFileFrames(packet)); err != nil {
			return fmt.Errorf("engine: sending chunk %d of %s: %w", part, entry.RelativePath, err)
		}

		e.metrics.TransferBytesTotal.Add(float64(len(data)))
		e.spool.RecordChunk(int64(len(data)), time.Since(started))
	}

	return nil
}
