package transfer

import "github.com/andrea-bruno/cloudsync/pkg/rollinghash"

// crcSeed is the fixed starting value every transfer's rolling CRC is
// seeded with.
const crcSeed uint64 = 0x434c4f55445359

// RollingCRC accumulates a chunk-by-chunk checksum across a whole-file
// transfer. Zero value is not usable — construct with NewRollingCRC.
type RollingCRC struct {
	acc uint64
}

// NewRollingCRC returns a RollingCRC seeded to the fixed transfer constant.
func NewRollingCRC() *RollingCRC {
	return &RollingCRC{acc: crcSeed}
}

// Update folds chunk into the running checksum and returns the new value.
func (c *RollingCRC) Update(chunk []byte) uint64 {
	c.acc = rollinghash.Update(c.acc, chunk)

	return c.acc
}

// Sum returns the current accumulated value without mutating state.
func (c *RollingCRC) Sum() uint64 {
	return c.acc
}
