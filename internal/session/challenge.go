package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"github.com/andrea-bruno/cloudsync/pkg/rollinghash"
)

// challengeSize is the length, in bytes, of a login challenge.
const challengeSize = 32

// proofSeed seeds the proof hash so a login proof never collides with a
// handle or chunk checksum computed over the same bytes.
const proofSeed uint64 = 0xA5A5A5A5DEADBEEF

// Challenge is the random nonce a server issues in response to a login
// request and the client must fold its PIN into to prove possession.
type Challenge [challengeSize]byte

// NewChallenge generates a cryptographically random challenge.
func NewChallenge() (Challenge, error) {
	var c Challenge

	if _, err := rand.Read(c[:]); err != nil {
		return Challenge{}, fmt.Errorf("generating login challenge: %w", err)
	}

	return c, nil
}

// Proof computes H(challenge XOR pin), the value both client and server
// derive independently to demonstrate knowledge of the PIN without either
// side ever putting the PIN itself on the wire.
func Proof(challenge Challenge, pin string) uint64 {
	mixed := make([]byte, len(challenge))
	pinBytes := []byte(pin)

	for i := range mixed {
		mixed[i] = challenge[i] ^ pinBytes[i%len(pinBytes)]
	}

	return rollinghash.Hash64(proofSeed, mixed)
}

// proofBytes renders a proof as 8 big-endian bytes for constant-time
// comparison.
func proofBytes(p uint64) []byte {
	var b [8]byte

	binary.BigEndian.PutUint64(b[:], p)

	return b[:]
}

// ProofsEqual compares two proofs without leaking timing information about
// where they diverge, so a failed login attempt cannot be used to narrow
// down the correct PIN byte by byte.
func ProofsEqual(a, b uint64) bool {
	return subtle.ConstantTimeCompare(proofBytes(a), proofBytes(b)) == 1
}
