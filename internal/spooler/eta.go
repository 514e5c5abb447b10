package spooler

import (
	"sync"
	"time"
)

// emaAlpha weights the most recent sample against the running average.
const emaAlpha = 0.2

// RateTracker maintains an exponential moving average of transfer
// throughput, updated once per completed chunk, and projects an ETA for
// a given amount of pending work.
type RateTracker struct {
	mu   sync.Mutex
	rate float64 // bytes/sec
}

// NewRateTracker returns a RateTracker with no samples yet.
func NewRateTracker() *RateTracker {
	return &RateTracker{}
}

// RecordChunk folds one completed chunk's throughput into the running
// average. elapsed must be positive; zero or negative durations are
// ignored to avoid dividing by zero.
func (r *RateTracker) RecordChunk(bytes int64, elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}

	sample := float64(bytes) / elapsed.Seconds()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rate == 0 {
		r.rate = sample
	} else {
		r.rate = emaAlpha*sample + (1-emaAlpha)*r.rate
	}
}

// Rate returns the current estimated bytes/sec, or 0 if no samples have
// been recorded yet.
func (r *RateTracker) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rate
}

// ETA projects the time remaining to move pendingBytes at the current
// rate. Returns 0 if the rate is not yet known.
func (r *RateTracker) ETA(pendingBytes int64) time.Duration {
	rate := r.Rate()
	if rate <= 0 {
		return 0
	}

	seconds := float64(pendingBytes) / rate

	return time.Duration(seconds * float64(time.Second))
}
