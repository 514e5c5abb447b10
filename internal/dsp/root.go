package dsp

// RootsEqual reports whether two root hashes indicate identical visible
// content. A peer receiving an unequal root hash moves from Monitoring
// into the structure phase; an equal one means the content already
// converged and the peer can stay in Monitoring.
func RootsEqual(local, remote uint64) bool {
	return local == remote
}
