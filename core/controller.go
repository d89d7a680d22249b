package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"stagerun/interfaces"
	"stagerun/model"
)

type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

const defaultBatchSize = 1_000

// Options carries the controller's explicit configuration; nothing is read
// from ambient state so the controller stays testable without a terminal
// or a real chain.
type Options struct {
	// BatchSize returns the commit threshold for the next batch. It is
	// re-read at every batch boundary, which is what makes live config
	// tuning possible. RunTarget.BatchSize takes precedence when set.
	BatchSize func() uint64
	Recorders []interfaces.Recorder
}

// Controller wires the loop and the renderer together for one run. The two
// tasks share only the progress bus and the cancellation context; the
// controller joins both before constructing the outcome, so the terminal
// is settled by the time the process reports anything.
type Controller struct {
	store    interfaces.CheckpointStore
	stage    interfaces.Stage
	renderer interfaces.Renderer
	opts     Options

	state atomic.Int32
	sync.WaitGroup
}

func NewController(store interfaces.CheckpointStore, stage interfaces.Stage, renderer interfaces.Renderer, opts Options) *Controller {
	return &Controller{store: store, stage: stage, renderer: renderer, opts: opts}
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

// Run executes a single stage run to completion, cancellation or failure.
// A controller is single-use.
func (c *Controller) Run(ctx context.Context, target model.RunTarget) model.RunOutcome {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return c.fail(target, 0, 0, &model.ConfigurationError{Stage: target.Stage, Msg: "controller already ran"})
	}

	cp, _, err := c.store.Load(target.Stage)
	if err != nil {
		return c.fail(target, 0, 0, err)
	}
	start := cp.Height

	// preflight validation: configuration errors are reported before any
	// batch runs and before the dashboard starts
	switch target.Direction {
	case model.Forward:
		if start >= target.Height {
			slog.Info("stage already at target", "stage", target.Stage, "height", start, "target", target.Height)
			c.state.Store(int32(StateCompleted))
			return model.RunOutcome{
				Stage:       target.Stage,
				Direction:   target.Direction,
				Status:      model.StatusCompleted,
				StartHeight: start,
				EndHeight:   start,
			}
		}
	case model.Unwind:
		if target.Height >= start {
			return c.fail(target, start, start, &model.ConfigurationError{
				Stage: target.Stage,
				Msg:   fmt.Sprintf("unwind target %d not below checkpoint %d", target.Height, start),
			})
		}
	default:
		return c.fail(target, start, start, &model.ConfigurationError{
			Stage: target.Stage,
			Msg:   fmt.Sprintf("unknown direction %q", target.Direction),
		})
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	bus := NewProgressBus()
	r := &runner{
		store:     c.store,
		stage:     c.stage,
		target:    target,
		bus:       bus,
		recorders: c.opts.Recorders,
		batch:     c.batchFn(target),
		start:     start,
		startedAt: time.Now(),
	}

	slog.Info("starting run",
		"stage", target.Stage,
		"direction", target.Direction,
		"from", start,
		"to", target.Height)

	var result loopResult
	c.runInGoroutine(func() {
		defer bus.Close()
		if target.Direction == model.Forward {
			result = r.runForward(runCtx)
		} else {
			result = r.runUnwind(runCtx)
		}
	})
	c.runInGoroutine(func() {
		c.renderer.Render(bus.Updates(), cancel)
	})
	c.Wait()

	outcome := model.RunOutcome{
		Stage:       target.Stage,
		Direction:   target.Direction,
		StartHeight: start,
		EndHeight:   result.end,
		Entities:    result.entities,
		Batches:     result.batches,
		Elapsed:     time.Since(r.startedAt),
		Err:         result.err,
	}
	switch {
	case result.err != nil:
		outcome.Status = model.StatusFailed
		c.state.Store(int32(StateFailed))
		slog.Error("run failed", "stage", target.Stage, "height", result.end, "error", result.err)
	case result.cancelled:
		outcome.Status = model.StatusCancelled
		c.state.Store(int32(StateCancelled))
		slog.Info("run cancelled", "stage", target.Stage, "checkpoint", result.end)
	default:
		outcome.Status = model.StatusCompleted
		c.state.Store(int32(StateCompleted))
		slog.Info("run completed", "stage", target.Stage, "height", result.end)
	}
	return outcome
}

func (c *Controller) batchFn(target model.RunTarget) func() uint64 {
	if target.BatchSize > 0 {
		return func() uint64 { return target.BatchSize }
	}
	if c.opts.BatchSize != nil {
		return c.opts.BatchSize
	}
	return func() uint64 { return defaultBatchSize }
}

func (c *Controller) fail(target model.RunTarget, start, end uint64, err error) model.RunOutcome {
	c.state.Store(int32(StateFailed))
	slog.Error("run rejected", "stage", target.Stage, "error", err)
	return model.RunOutcome{
		Stage:       target.Stage,
		Direction:   target.Direction,
		Status:      model.StatusFailed,
		StartHeight: start,
		EndHeight:   end,
		Err:         err,
	}
}

func (c *Controller) runInGoroutine(fn func()) {
	c.Add(1)
	go func() {
		defer c.Done()
		fn()
	}()
}
