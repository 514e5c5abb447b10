package transfer

import (
	"fmt"
	"unicode/utf16"

	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

// ChunkPacket is one SendChunkFile wire message. Data carries the
// chunk's payload; Final carries the footer fields only the last chunk
// of a transfer (Part == Total) includes.
type ChunkPacket struct {
	Handle handle.Handle
	Part   uint32
	Total  uint32
	Data   []byte
	Final  *FinalFooter
}

// FinalFooter is the extra footer present only on the final chunk of a
// transfer: the sender's mtime, the total file length, the relative path
// (so the receiver can place the file even for a brand-new handle), and
// the cumulative rolling CRC for end-to-end verification.
type FinalFooter struct {
	Mtime    uint32
	Length   uint32
	RelPath  string
	CRC      uint64
}

// Marshal encodes the packet as `handle_u64, part_u32, total_u32,
// data_len_u32, data[]` followed, on the final chunk, by `mtime_u32,
// length_u32, relpath_len_u16, relpath_utf16le, crc_u64`.
func (p ChunkPacket) Marshal() []byte {
	out := make([]byte, 0, 20+len(p.Data))

	var head [20]byte
	putUint64LE(head[0:8], uint64(p.Handle))
	putUint32LE(head[8:12], p.Part)
	putUint32LE(head[12:16], p.Total)
	putUint32LE(head[16:20], uint32(len(p.Data)))
	out = append(out, head[:]...)
	out = append(out, p.Data...)

	if p.Final != nil {
		pathBytes := handle.UTF16LEBytes(p.Final.RelPath)

		var tail [16]byte
		putUint32LE(tail[0:4], p.Final.Mtime)
		putUint32LE(tail[4:8], p.Final.Length)
		putUint16LE(tail[8:10], uint16(len(pathBytes)))
		out = append(out, tail[0:10]...)
		out = append(out, pathBytes...)

		var crc [8]byte
		putUint64LE(crc[:], p.Final.CRC)
		out = append(out, crc[:]...)
	}

	return out
}

// UnmarshalChunkPacket decodes a ChunkPacket from raw bytes; isFinal tells
// the decoder whether to expect the footer (the caller already knows this
// from part == total, carried out-of-band by the transport framing).
func UnmarshalChunkPacket(b []byte, isFinal bool) (ChunkPacket, error) {
	if len(b) < 20 {
		return ChunkPacket{}, fmt.Errorf("transfer: packet too short: %d bytes", len(b))
	}

	p := ChunkPacket{
		Handle: handle.Handle(getUint64LE(b[0:8])),
		Part:   getUint32LE(b[8:12]),
		Total:  getUint32LE(b[12:16]),
	}

	dataLen := getUint32LE(b[16:20])
	offset := 20

	if uint32(len(b)-offset) < dataLen {
		return ChunkPacket{}, fmt.Errorf("transfer: packet data truncated: want %d, have %d", dataLen, len(b)-offset)
	}

	p.Data = b[offset : offset+int(dataLen)]
	offset += int(dataLen)

	if !isFinal {
		return p, nil
	}

	if len(b)-offset < 10 {
		return ChunkPacket{}, fmt.Errorf("transfer: final footer header truncated")
	}

	mtime := getUint32LE(b[offset : offset+4])
	length := getUint32LE(b[offset+4 : offset+8])
	pathLen := getUint16LE(b[offset+8 : offset+10])
	offset += 10

	if uint16(len(b)-offset) < pathLen+8 {
		return ChunkPacket{}, fmt.Errorf("transfer: final footer path/crc truncated")
	}

	pathBytes := b[offset : offset+int(pathLen)]
	offset += int(pathLen)

	crc := getUint64LE(b[offset : offset+8])

	p.Final = &FinalFooter{
		Mtime:   mtime,
		Length:  length,
		RelPath: utf16leToString(pathBytes),
		CRC:     crc,
	}

	return p, nil
}

func putUint16LE(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func getUint16LE(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func putUint64LE(b []byte, v uint64) {
	for i := range 8 {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint64LE(b []byte) uint64 {
	var v uint64
	for i := range 8 {
		v |= uint64(b[i]) << (8 * i)
	}

	return v
}

func putUint32LE(b []byte, v uint32) {
	for i := range 4 {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint32LE(b []byte) uint32 {
	var v uint32
	for i := range 4 {
		v |= uint32(b[i]) << (8 * i)
	}

	return v
}

func utf16leToString(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}

	return string(utf16.Decode(units))
}
