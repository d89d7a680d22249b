package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"

	"stagerun/interfaces"
	"stagerun/model"
)

// runner drives a single stage between batch boundaries. It owns the write
// transaction for the duration of each batch; nothing else touches the
// database while a batch is in flight.
type runner struct {
	store     interfaces.CheckpointStore
	stage     interfaces.Stage
	target    model.RunTarget
	bus       *ProgressBus
	recorders []interfaces.Recorder
	batch     func() uint64

	start     uint64
	startedAt time.Time
}

type loopResult struct {
	end       uint64
	entities  uint64
	batches   uint64
	cancelled bool
	err       error
}

func (r *runner) runForward(ctx context.Context) loopResult {
	height := r.start
	res := loopResult{end: height}

	for height < r.target.Height {
		in := interfaces.BatchInput{From: height, Target: r.target.Height, Limit: r.batch()}

		var out interfaces.BatchResult
		err := r.store.Commit(r.stage.Name(), func(tx *bolt.Tx) (model.Checkpoint, error) {
			o, err := r.stage.Execute(ctx, tx, in)
			if err != nil {
				return model.Checkpoint{}, err
			}
			if o.To < in.From {
				return model.Checkpoint{}, fmt.Errorf("checkpoint regressed from %d to %d", in.From, o.To)
			}
			if o.To > r.target.Height {
				return model.Checkpoint{}, fmt.Errorf("checkpoint %d exceeds target %d", o.To, r.target.Height)
			}
			out = o
			return model.Checkpoint{Height: o.To, Aux: o.Aux, UpdatedAt: time.Now()}, nil
		})
		if err != nil {
			res.err = r.classify(err, height)
			return res
		}

		if out.Processed == 0 && out.To == height {
			if ctx.Err() != nil {
				// the interrupt landed before the batch processed anything;
				// an empty batch is a cancellation, not a completed run
				res.cancelled = true
				return res
			}
			// caught up or out of input
			slog.Info("stage made no progress, stopping", "stage", r.stage.Name(), "height", height)
			return res
		}

		height = out.To
		res.end = height
		res.entities += out.Processed
		res.batches++
		r.publish(height, &res)

		if out.Done {
			return res
		}
		// cancellation is honored only here, after the batch committed
		select {
		case <-ctx.Done():
			res.cancelled = true
			return res
		default:
		}
	}
	return res
}

func (r *runner) runUnwind(ctx context.Context) loopResult {
	height := r.start
	res := loopResult{end: height}

	for height > r.target.Height {
		in := interfaces.UnwindInput{From: height, Floor: r.target.Height, Limit: r.batch()}

		var out interfaces.BatchResult
		err := r.store.Commit(r.stage.Name(), func(tx *bolt.Tx) (model.Checkpoint, error) {
			o, err := r.stage.Unwind(ctx, tx, in)
			if err != nil {
				return model.Checkpoint{}, err
			}
			if o.To >= in.From {
				return model.Checkpoint{}, fmt.Errorf("unwind did not regress checkpoint %d", in.From)
			}
			if o.To < in.Floor {
				return model.Checkpoint{}, fmt.Errorf("unwind went below floor %d, got %d", in.Floor, o.To)
			}
			out = o
			return model.Checkpoint{Height: o.To, Aux: o.Aux, UpdatedAt: time.Now()}, nil
		})
		if err != nil {
			res.err = r.classify(err, height)
			return res
		}

		height = out.To
		res.end = height
		res.entities += out.Processed
		res.batches++
		r.publish(height, &res)

		select {
		case <-ctx.Done():
			res.cancelled = true
			return res
		default:
		}
	}
	return res
}

func (r *runner) publish(height uint64, res *loopResult) {
	elapsed := time.Since(r.startedAt)
	perSecond := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		perSecond = float64(res.entities) / secs
	}
	snap := model.ProgressSnapshot{
		Stage:       r.stage.Name(),
		Direction:   r.target.Direction,
		StartHeight: r.start,
		Height:      height,
		Target:      r.target.Height,
		Entities:    res.entities,
		Batches:     res.batches,
		Elapsed:     elapsed,
		PerSecond:   perSecond,
	}
	r.bus.Publish(snap)
	for _, rec := range r.recorders {
		rec.RecordBatch(snap)
	}
}

// classify maps a batch failure onto the error taxonomy, attaching the
// height of the last good checkpoint where the source did not.
func (r *runner) classify(err error, height uint64) error {
	var storageErr *model.StorageError
	if errors.As(err, &storageErr) {
		if storageErr.Height == 0 {
			storageErr.Height = height
		}
		return err
	}
	var stageErr *model.StageError
	var configErr *model.ConfigurationError
	if errors.As(err, &stageErr) || errors.As(err, &configErr) {
		return err
	}
	return &model.StageError{Stage: r.stage.Name(), Height: height, Err: err}
}
