package monitoring

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stagerun/interfaces"
	"stagerun/model"
)

type stagePromMetrics struct {
	checkpointHeight *prometheus.GaugeVec
	entitiesTotal    *prometheus.GaugeVec
	batchesTotal     *prometheus.GaugeVec
	throughput       *prometheus.GaugeVec
	batchDuration    *prometheus.HistogramVec
}

func newStagePromMetrics() *stagePromMetrics {
	labels := []string{"stage", "direction"}
	return &stagePromMetrics{
		checkpointHeight: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stagerun_checkpoint_height",
				Help: "The committed checkpoint height of the running stage",
			},
			labels,
		),
		entitiesTotal: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stagerun_entities_total",
				Help: "Entities processed since the run started",
			},
			labels,
		),
		batchesTotal: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stagerun_batches_total",
				Help: "Batches committed since the run started",
			},
			labels,
		),
		throughput: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stagerun_entities_per_second",
				Help: "Entity throughput averaged over the run",
			},
			labels,
		),
		batchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "stagerun_batch_duration_seconds",
				Help: "Wall time per committed batch",
			},
			labels,
		),
	}
}

// Recorder publishes per-batch progress as prometheus metrics. One instance
// per process; gauges are labeled by stage and direction so consecutive runs
// of different stages do not clobber each other.
type Recorder struct {
	metrics     *stagePromMetrics
	lastElapsed time.Duration
}

func NewRecorder() *Recorder {
	return &Recorder{metrics: newStagePromMetrics()}
}

var _ interfaces.Recorder = (*Recorder)(nil)

func (r *Recorder) RecordBatch(snap model.ProgressSnapshot) {
	labels := prometheus.Labels{
		"stage":     snap.Stage,
		"direction": string(snap.Direction),
	}
	r.metrics.checkpointHeight.With(labels).Set(float64(snap.Height))
	r.metrics.entitiesTotal.With(labels).Set(float64(snap.Entities))
	r.metrics.batchesTotal.With(labels).Set(float64(snap.Batches))
	r.metrics.throughput.With(labels).Set(snap.PerSecond)
	r.metrics.batchDuration.With(labels).Observe((snap.Elapsed - r.lastElapsed).Seconds())
	r.lastElapsed = snap.Elapsed
}

func (r *Recorder) Close() {}

// Serve exposes /metrics on addr. Errors are logged, not fatal; a run
// without metrics is still a valid run.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		slog.Info("serving prometheus metrics", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Warn("metrics server stopped", "error", err)
		}
	}()
}
