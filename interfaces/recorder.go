package interfaces

import "stagerun/model"

// Recorder receives a snapshot after every committed batch. Implementations
// export run metrics (Prometheus, InfluxDB); failures there never affect
// the run itself.
type Recorder interface {
	RecordBatch(snap model.ProgressSnapshot)
	Close()
}
