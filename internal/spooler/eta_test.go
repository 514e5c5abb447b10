package spooler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateTracker_FirstSampleSetsRateDirectly(t *testing.T) {
	r := NewRateTracker()
	r.RecordChunk(1000, time.Second)

	assert.InDelta(t, 1000.0, r.Rate(), 0.001)
}

func TestRateTracker_ZeroBeforeAnySample(t *testing.T) {
	r := NewRateTracker()
	assert.Equal(t, 0.0, r.Rate())
}

func TestRateTracker_EMASmoothsTowardNewSamples(t *testing.T) {
	r := NewRateTracker()
	r.RecordChunk(1000, time.Second) // rate = 1000
	r.RecordChunk(2000, time.Second) // sample 2000, EMA pulls toward it but doesn't jump

	rate := r.Rate()
	assert.Greater(t, rate, 1000.0)
	assert.Less(t, rate, 2000.0)
}

func TestRateTracker_IgnoresNonPositiveElapsed(t *testing.T) {
	r := NewRateTracker()
	r.RecordChunk(1000, 0)

	assert.Equal(t, 0.0, r.Rate())
}

func TestRateTracker_ETAZeroWithoutSamples(t *testing.T) {
	r := NewRateTracker()
	assert.Equal(t, time.Duration(0), r.ETA(1_000_000))
}

func TestRateTracker_ETAProjectsFromRate(t *testing.T) {
	r := NewRateTracker()
	r.RecordChunk(1000, time.Second) // rate = 1000 bytes/sec

	eta := r.ETA(5000)
	assert.InDelta(t, float64(5*time.Second), float64(eta), float64(10*time.Millisecond))
}
