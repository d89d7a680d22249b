package metrics

import (
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"stagerun/config"
	"stagerun/interfaces"
	"stagerun/model"
)

// InfluxRecorder ships one measurement per committed batch. Writes go
// through the async WriteAPI so a slow or unreachable server never stalls
// the run loop.
type InfluxRecorder struct {
	cfg    config.InfluxDBConfig
	client influxdb2.Client
}

func NewInfluxRecorder(cfg config.InfluxDBConfig) *InfluxRecorder {
	slog.Info("connecting to influxdb", "url", cfg.URL)
	r := &InfluxRecorder{cfg: cfg}
	r.client = influxdb2.NewClient(cfg.URL, cfg.Token)
	return r
}

var _ interfaces.Recorder = (*InfluxRecorder)(nil)

func (r *InfluxRecorder) RecordBatch(snap model.ProgressSnapshot) {
	writer := r.client.WriteAPI(r.cfg.Org, r.cfg.Bucket)
	point := influxdb2.NewPoint("stage_batch",
		map[string]string{
			"stage":     snap.Stage,
			"direction": string(snap.Direction),
		},
		map[string]interface{}{
			"height":      int64(snap.Height),
			"target":      int64(snap.Target),
			"entities":    int64(snap.Entities),
			"batches":     int64(snap.Batches),
			"per_second":  snap.PerSecond,
			"elapsed_sec": snap.Elapsed.Seconds(),
		},
		time.Now())
	writer.WritePoint(point)
}

func (r *InfluxRecorder) Close() {
	writer := r.client.WriteAPI(r.cfg.Org, r.cfg.Bucket)
	writer.Flush()
	r.client.Close()
}
