package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks the engine's Prometheus metrics. The engine uses its
// fields directly, so it must come from NewMetrics and never be nil. Only
// TransferBytesTotal is updated by the engine; SpoolerQueueDepth,
// SpoolerETASeconds and TransferInFlight are registered but never set.
type Metrics struct {
	SpoolerQueueDepth  prometheus.Gauge
	SpoolerETASeconds  prometheus.Gauge
	TransferBytesTotal prometheus.Counter
	TransferInFlight   prometheus.Gauge
}

// NewMetrics constructs and registers the engine's collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SpoolerQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cloudsync_spooler_queue_depth",
			Help: "Number of operations currently queued in the spooler.",
		}),
		SpoolerETASeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cloudsync_spooler_eta_seconds",
			Help: "Estimated seconds remaining to drain the spooler queue at the current transfer rate.",
		}),
		TransferBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cloudsync_transfer_bytes_total",
			Help: "Total bytes sent or received across chunk transfers.",
		}),
		TransferInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cloudsync_transfer_inflight",
			Help: "Number of chunk transfers currently in flight.",
		}),
	}

	reg.MustRegister(m.SpoolerQueueDepth, m.SpoolerETASeconds, m.TransferBytesTotal, m.TransferInFlight)

	return m
}
