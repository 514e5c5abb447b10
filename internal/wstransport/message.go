package wstransport

import "fmt"

// EncodeMessage lays out one wire message as `command_u16, frame_count_u16,
// (frame_len_u32, frame_bytes)*`, the length-prefixed framing the command
// table's variable frame lists need on top of a single WebSocket message.
func EncodeMessage(cmd CommandCode, frames [][]byte) []byte {
	size := 4
	for _, f := range frames {
		size += 4 + len(f)
	}

	out := make([]byte, 0, size)

	var head [4]byte
	putUint16LE(head[0:2], uint16(cmd))
	putUint16LE(head[2:4], uint16(len(frames)))
	out = append(out, head[:]...)

	for _, f := range frames {
		var lenBuf [4]byte
		putUint32LE(lenBuf[:], uint32(len(f)))
		out = append(out, lenBuf[:]...)
		out = append(out, f...)
	}

	return out
}

// DecodeMessage parses a message produced by EncodeMessage.
func DecodeMessage(b []byte) (CommandCode, [][]byte, error) {
	if len(b) < 4 {
		return 0, nil, fmt.Errorf("wstransport: message too short: %d bytes", len(b))
	}

	cmd := CommandCode(getUint16LE(b[0:2]))
	frameCount := getUint16LE(b[2:4])
	offset := 4

	frames := make([][]byte, 0, frameCount)

	for range frameCount {
		if len(b)-offset < 4 {
			return 0, nil, fmt.Errorf("wstransport: truncated frame length at offset %d", offset)
		}

		frameLen := getUint32LE(b[offset : offset+4])
		offset += 4

		if uint32(len(b)-offset) < frameLen {
			return 0, nil, fmt.Errorf("wstransport: truncated frame body: want %d, have %d", frameLen, len(b)-offset)
		}

		frames = append(frames, b[offset:offset+int(frameLen)])
		offset += int(frameLen)
	}

	return cmd, frames, nil
}

func putUint16LE(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func getUint16LE(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
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
