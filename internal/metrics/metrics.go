// Package metrics exposes capture counters and gauges for Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/chunk"
)

const namespace = "screen_capture"

// States reported by the capture_state gauge, one series per state.
var states = []string{"idle", "starting", "running", "stopping"}

// Recorder records capture metrics. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	deliveriesTotal     *prometheus.CounterVec
	deliveredBytesTotal *prometheus.CounterVec
	chunksTotal         *prometheus.CounterVec
	chunkBytes          *prometheus.HistogramVec
	chunksPersisted     *prometheus.CounterVec
	pipelineErrorsTotal *prometheus.CounterVec
	sessionsTotal       *prometheus.CounterVec
	state               *prometheus.GaugeVec
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		deliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sample_deliveries_total",
				Help:      "Total number of raw sample deliveries received from pipelines",
			},
			[]string{"stream"},
		),
		deliveredBytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delivered_bytes_total",
				Help:      "Total raw bytes delivered by pipelines",
			},
			[]string{"stream"},
		),
		chunksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunks_total",
				Help:      "Total number of completed chunks",
			},
			[]string{"stream", "status"}, // status: emitted, dropped
		),
		chunkBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chunk_bytes",
				Help:      "Size of emitted chunks in bytes",
				Buckets:   prometheus.ExponentialBuckets(64*1024, 4, 8), // 64KiB .. 1GiB
			},
			[]string{"stream"},
		),
		chunksPersisted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunks_persisted_total",
				Help:      "Total number of chunks handled by the consumer",
			},
			[]string{"stream", "status"}, // status: success, error
		),
		pipelineErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_errors_total",
				Help:      "Total number of pipeline bus errors by category",
			},
			[]string{"stream", "category"},
		),
		sessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_total",
				Help:      "Total number of capture start attempts",
			},
			[]string{"result"}, // result: started, failed
		),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "state",
				Help:      "Current capture state (1 for the active state, 0 otherwise)",
			},
			[]string{"state"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			r.deliveriesTotal,
			r.deliveredBytesTotal,
			r.chunksTotal,
			r.chunkBytes,
			r.chunksPersisted,
			r.pipelineErrorsTotal,
			r.sessionsTotal,
			r.state,
		)
	}

	r.SetState("idle")
	return r
}

// Delivery records one raw sample delivery.
func (r *Recorder) Delivery(kind chunk.Kind, bytes int) {
	if r == nil {
		return
	}
	r.deliveriesTotal.WithLabelValues(kind.String()).Inc()
	r.deliveredBytesTotal.WithLabelValues(kind.String()).Add(float64(bytes))
}

// ChunkEmitted records a chunk accepted by the dispatch queue.
func (r *Recorder) ChunkEmitted(kind chunk.Kind, bytes int) {
	if r == nil {
		return
	}
	r.chunksTotal.WithLabelValues(kind.String(), "emitted").Inc()
	r.chunkBytes.WithLabelValues(kind.String()).Observe(float64(bytes))
}

// ChunkDropped records a chunk that could not be dispatched.
func (r *Recorder) ChunkDropped(kind chunk.Kind) {
	if r == nil {
		return
	}
	r.chunksTotal.WithLabelValues(kind.String(), "dropped").Inc()
}

// ChunkPersisted records the consumer outcome for one chunk.
func (r *Recorder) ChunkPersisted(kind chunk.Kind, err error) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.chunksPersisted.WithLabelValues(kind.String(), status).Inc()
}

// PipelineError records a classified bus error.
func (r *Recorder) PipelineError(kind chunk.Kind, category string) {
	if r == nil {
		return
	}
	r.pipelineErrorsTotal.WithLabelValues(kind.String(), category).Inc()
}

// SessionStarted records a start attempt.
func (r *Recorder) SessionStarted(err error) {
	if r == nil {
		return
	}
	result := "started"
	if err != nil {
		result = "failed"
	}
	r.sessionsTotal.WithLabelValues(result).Inc()
}

// SetState marks state as the current capture state.
func (r *Recorder) SetState(state string) {
	if r == nil {
		return
	}
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1
		}
		r.state.WithLabelValues(s).Set(v)
	}
}
