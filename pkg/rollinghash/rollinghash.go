// Package rollinghash implements a 64-bit circular shift-XOR checksum used
// by the chunk transfer engine to verify chunk integrity and to fold a
// running checksum across chunk boundaries.
//
// Derived from the QuickXorHash technique (circular XOR buffer advanced by
// a fixed bit-shift per byte), narrowed from its original 160-bit width to
// a single 64-bit register so that rotation and XOR operate on one machine
// word with no multi-cell bookkeeping.
package rollinghash

import (
	"encoding/binary"
	"hash"
	"math/bits"
)

const (
	// Size is the length, in bytes, of a checksum digest.
	Size = 8

	// BlockSize is the preferred input block size, in bytes.
	BlockSize = 64

	// shift is the number of bits the insertion point advances per byte.
	shift = 11

	// widthInBits is the width of the circular XOR register.
	widthInBits = 64
)

// digest is the internal state of a checksum computation.
type digest struct {
	acc         uint64
	offset      uint
	lengthSoFar uint64
}

// New returns a new hash.Hash computing the rolling checksum.
func New() hash.Hash {
	return &digest{}
}

// Write absorbs more data into the running checksum. It always returns
// len(p), nil.
func (d *digest) Write(p []byte) (int, error) {
	for _, b := range p {
		d.acc ^= bits.RotateLeft64(uint64(b), int(d.offset))
		d.offset = (d.offset + shift) % widthInBits
	}

	d.lengthSoFar += uint64(len(p))

	return len(p), nil
}

// Sum64 returns the current checksum, mixing in the total byte count so
// that two equal-length-prefix inputs of different total length never
// collide purely from the rotation state.
func (d *digest) Sum64() uint64 {
	return d.acc ^ d.lengthSoFar
}

// Sum appends the current checksum to b and returns the resulting slice. It
// does not change the underlying hash state.
func (d *digest) Sum(b []byte) []byte {
	var buf [Size]byte
	binary.LittleEndian.PutUint64(buf[:], d.Sum64())

	return append(b, buf[:]...)
}

// Reset resets the hash to its initial state.
func (d *digest) Reset() {
	*d = digest{}
}

// Size returns the number of bytes Sum will return.
func (d *digest) Size() int {
	return Size
}

// BlockSize returns the hash's underlying block size.
func (d *digest) BlockSize() int {
	return BlockSize
}

// Sum64 computes the checksum of data in one call.
func Sum64(data []byte) uint64 {
	d := &digest{}
	_, _ = d.Write(data)

	return d.Sum64()
}

// Update folds a new chunk into a running checksum without holding a
// hash.Hash object alive across chunk boundaries: the chunk transfer engine
// keeps only the returned uint64 in its in-flight transfer ledger. seed is
// the checksum returned by the previous call (or 0 for the first chunk).
func Update(seed uint64, chunk []byte) uint64 {
	return bits.RotateLeft64(seed, shift) ^ Sum64(chunk)
}

// Hash64 computes a seeded checksum of data. Handle derivation uses this
// with a fixed per-kind seed so that directory and file handles never
// collide for the same relative path.
func Hash64(seed uint64, data []byte) uint64 {
	d := &digest{acc: seed}
	_, _ = d.Write(data)

	return d.Sum64()
}
