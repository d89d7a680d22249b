package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"stagerun/db"
	"stagerun/interfaces"
	"stagerun/mocks"
	"stagerun/model"
)

// drainRenderer consumes every snapshot and never interrupts.
type drainRenderer struct {
	snaps []model.ProgressSnapshot
}

func (r *drainRenderer) Render(updates <-chan model.ProgressSnapshot, _ context.CancelFunc) {
	for snap := range updates {
		r.snaps = append(r.snaps, snap)
	}
}

// interruptRenderer cancels the run as soon as the first snapshot arrives,
// then keeps draining until the bus closes.
type interruptRenderer struct{}

func (r *interruptRenderer) Render(updates <-chan model.ProgressSnapshot, cancel context.CancelFunc) {
	for range updates {
		cancel()
	}
}

// quitRenderer cancels before the first snapshot, like an operator hitting
// ctrl-c the moment the run starts.
type quitRenderer struct{}

func (r *quitRenderer) Render(updates <-chan model.ProgressSnapshot, cancel context.CancelFunc) {
	cancel()
	for range updates {
	}
}

func newTestStore(t *testing.T) *db.Handler {
	t.Helper()
	h, err := db.NewHandler(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func seedCheckpoint(t *testing.T, store *db.Handler, stage string, height uint64) {
	t.Helper()
	require.NoError(t, store.Commit(stage, func(tx *bolt.Tx) (model.Checkpoint, error) {
		return model.Checkpoint{Height: height, UpdatedAt: time.Now()}, nil
	}))
}

// advancingStage scripts a stage that processes one entity per height up to
// the batch limit.
func advancingStage(ctrl *gomock.Controller, name string) *mocks.MockStage {
	stage := mocks.NewMockStage(ctrl)
	stage.EXPECT().Name().Return(name).AnyTimes()
	stage.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ *bolt.Tx, in interfaces.BatchInput) (interfaces.BatchResult, error) {
			n := in.Limit
			if remaining := in.Target - in.From; remaining < n {
				n = remaining
			}
			return interfaces.BatchResult{Processed: n, To: in.From + n}, nil
		}).AnyTimes()
	return stage
}

func TestForward_BodiesScenario(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := newTestStore(t)
	seedCheckpoint(t, store, "bodies", 100)

	stage := mocks.NewMockStage(ctrl)
	stage.EXPECT().Name().Return("bodies").AnyTimes()
	// 100 -> 150 with batch size 10 must run exactly 5 batches
	stage.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ *bolt.Tx, in interfaces.BatchInput) (interfaces.BatchResult, error) {
			return interfaces.BatchResult{Processed: in.Limit, To: in.From + in.Limit}, nil
		}).Times(5)

	renderer := &drainRenderer{}
	c := NewController(store, stage, renderer, Options{})
	outcome := c.Run(context.Background(), model.RunTarget{
		Stage:     "bodies",
		Direction: model.Forward,
		Height:    150,
		BatchSize: 10,
	})

	assert.Equal(t, model.StatusCompleted, outcome.Status)
	assert.Equal(t, uint64(100), outcome.StartHeight)
	assert.Equal(t, uint64(150), outcome.EndHeight)
	assert.Equal(t, uint64(50), outcome.Entities)
	assert.Equal(t, uint64(5), outcome.Batches)
	assert.Equal(t, StateCompleted, c.State())

	cp, found, err := store.Load("bodies")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(150), cp.Height)
}

func TestForward_SnapshotsMonotonic(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := newTestStore(t)
	stage := advancingStage(ctrl, "headers")

	renderer := &drainRenderer{}
	c := NewController(store, stage, renderer, Options{})
	outcome := c.Run(context.Background(), model.RunTarget{
		Stage:     "headers",
		Direction: model.Forward,
		Height:    70,
		BatchSize: 7,
	})

	require.Equal(t, model.StatusCompleted, outcome.Status)
	var prev uint64
	for _, snap := range renderer.snaps {
		assert.GreaterOrEqual(t, snap.Height, prev)
		prev = snap.Height
	}

	cp, _, err := store.Load("headers")
	require.NoError(t, err)
	assert.Equal(t, outcome.EndHeight, cp.Height)
}

func TestForward_IdempotentAtTarget(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := newTestStore(t)
	seedCheckpoint(t, store, "headers", 50)

	target := model.RunTarget{Stage: "headers", Direction: model.Forward, Height: 50}

	for i := 0; i < 2; i++ {
		// no Execute expectation: reaching the target again runs zero batches
		stage := mocks.NewMockStage(ctrl)
		stage.EXPECT().Name().Return("headers").AnyTimes()

		c := NewController(store, stage, &drainRenderer{}, Options{})
		outcome := c.Run(context.Background(), target)
		assert.Equal(t, model.StatusCompleted, outcome.Status)
		assert.Equal(t, uint64(50), outcome.EndHeight)
		assert.Zero(t, outcome.Batches)
	}
}

func TestForward_StopsOnNoProgress(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := newTestStore(t)
	stage := mocks.NewMockStage(ctrl)
	stage.EXPECT().Name().Return("headers").AnyTimes()
	stage.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ *bolt.Tx, in interfaces.BatchInput) (interfaces.BatchResult, error) {
			return interfaces.BatchResult{Processed: 0, To: in.From}, nil
		}).Times(1)

	c := NewController(store, stage, &drainRenderer{}, Options{})
	outcome := c.Run(context.Background(), model.RunTarget{
		Stage:     "headers",
		Direction: model.Forward,
		Height:    1000,
	})

	assert.Equal(t, model.StatusCompleted, outcome.Status)
	assert.Zero(t, outcome.EndHeight)
	assert.Zero(t, outcome.Entities)
}

func TestForward_StageErrorKeepsLastCheckpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := newTestStore(t)
	boom := errors.New("peer disappeared")

	stage := mocks.NewMockStage(ctrl)
	stage.EXPECT().Name().Return("bodies").AnyTimes()
	first := stage.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ *bolt.Tx, in interfaces.BatchInput) (interfaces.BatchResult, error) {
			return interfaces.BatchResult{Processed: 10, To: in.From + 10}, nil
		})
	stage.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any()).After(first).Return(interfaces.BatchResult{}, boom)

	c := NewController(store, stage, &drainRenderer{}, Options{})
	outcome := c.Run(context.Background(), model.RunTarget{
		Stage:     "bodies",
		Direction: model.Forward,
		Height:    100,
		BatchSize: 10,
	})

	require.Equal(t, model.StatusFailed, outcome.Status)
	var stageErr *model.StageError
	require.ErrorAs(t, outcome.Err, &stageErr)
	assert.Equal(t, "bodies", stageErr.Stage)
	assert.Equal(t, uint64(10), stageErr.Height)

	cp, found, err := store.Load("bodies")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(10), cp.Height)
}

// flakyStore delegates to the real handler but forces the transaction of
// one chosen batch to roll back after the stage has written into it.
type flakyStore struct {
	*db.Handler
	failAt   int
	calls    int
	injected error
}

func (s *flakyStore) Commit(stage string, mutate func(tx *bolt.Tx) (model.Checkpoint, error)) error {
	s.calls++
	if s.calls == s.failAt {
		_ = s.Handler.Commit(stage, func(tx *bolt.Tx) (model.Checkpoint, error) {
			if _, err := mutate(tx); err != nil {
				return model.Checkpoint{}, err
			}
			return model.Checkpoint{}, s.injected
		})
		return &model.StorageError{Stage: stage, Err: s.injected}
	}
	return s.Handler.Commit(stage, mutate)
}

func TestForward_CommitFailureAtomicity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handler := newTestStore(t)
	store := &flakyStore{Handler: handler, failAt: 3, injected: errors.New("disk full")}

	stage := mocks.NewMockStage(ctrl)
	stage.EXPECT().Name().Return("headers").AnyTimes()
	stage.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, tx *bolt.Tx, in interfaces.BatchInput) (interfaces.BatchResult, error) {
			b, err := db.StageBucket(tx, "headers")
			if err != nil {
				return interfaces.BatchResult{}, err
			}
			for n := in.From + 1; n <= in.From+in.Limit; n++ {
				if err := b.Put(db.EncodeHeight(n), []byte("hdr")); err != nil {
					return interfaces.BatchResult{}, err
				}
			}
			return interfaces.BatchResult{Processed: in.Limit, To: in.From + in.Limit}, nil
		}).Times(3)

	c := NewController(store, stage, &drainRenderer{}, Options{})
	outcome := c.Run(context.Background(), model.RunTarget{
		Stage:     "headers",
		Direction: model.Forward,
		Height:    100,
		BatchSize: 10,
	})

	require.Equal(t, model.StatusFailed, outcome.Status)
	var storageErr *model.StorageError
	require.ErrorAs(t, outcome.Err, &storageErr)
	assert.Equal(t, uint64(20), storageErr.Height)

	// checkpoint is exactly batch N-1, and no data from batch N survived
	cp, found, err := handler.Load("headers")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(20), cp.Height)

	require.NoError(t, handler.View(func(tx *bolt.Tx) error {
		b := db.StageBucketRO(tx, "headers")
		require.NotNil(t, b)
		assert.NotNil(t, b.Get(db.EncodeHeight(20)))
		assert.Nil(t, b.Get(db.EncodeHeight(21)))
		return nil
	}))
}

func TestForward_CancelledAtBatchBoundary(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := newTestStore(t)
	stage := mocks.NewMockStage(ctrl)
	stage.EXPECT().Name().Return("headers").AnyTimes()
	stage.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ *bolt.Tx, in interfaces.BatchInput) (interfaces.BatchResult, error) {
			time.Sleep(time.Millisecond)
			return interfaces.BatchResult{Processed: in.Limit, To: in.From + in.Limit}, nil
		}).AnyTimes()

	c := NewController(store, stage, &interruptRenderer{}, Options{})
	outcome := c.Run(context.Background(), model.RunTarget{
		Stage:     "headers",
		Direction: model.Forward,
		Height:    1 << 40, // only cancellation can stop this run
		BatchSize: 10,
	})

	require.Equal(t, model.StatusCancelled, outcome.Status)
	assert.Equal(t, StateCancelled, c.State())
	// the checkpoint sits exactly at the end of a batch
	assert.Zero(t, outcome.EndHeight%10)

	cp, found, err := store.Load("headers")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, outcome.EndHeight, cp.Height)
}

func TestForward_CancelBeforeFirstEntity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := newTestStore(t)
	seedCheckpoint(t, store, "headers", 30)

	stage := mocks.NewMockStage(ctrl)
	stage.EXPECT().Name().Return("headers").AnyTimes()
	// the stage sees the interrupt before fetching anything and hands back
	// an empty batch, exactly like the per-fetch ctx check in the real stages
	stage.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *bolt.Tx, in interfaces.BatchInput) (interfaces.BatchResult, error) {
			<-ctx.Done()
			return interfaces.BatchResult{To: in.From}, nil
		}).Times(1)

	c := NewController(store, stage, &quitRenderer{}, Options{})
	outcome := c.Run(context.Background(), model.RunTarget{
		Stage:     "headers",
		Direction: model.Forward,
		Height:    100,
		BatchSize: 10,
	})

	// an empty interrupted batch is a cancellation, not completion
	assert.Equal(t, model.StatusCancelled, outcome.Status)
	assert.Equal(t, StateCancelled, c.State())
	assert.Equal(t, uint64(30), outcome.EndHeight)
	assert.Zero(t, outcome.Entities)

	cp, _, err := store.Load("headers")
	require.NoError(t, err)
	assert.Equal(t, uint64(30), cp.Height)
}

func TestUnwind_RegressesToTarget(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := newTestStore(t)
	seedCheckpoint(t, store, "bodies", 150)

	stage := mocks.NewMockStage(ctrl)
	stage.EXPECT().Name().Return("bodies").AnyTimes()
	stage.EXPECT().Unwind(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ *bolt.Tx, in interfaces.UnwindInput) (interfaces.BatchResult, error) {
			to := in.Floor
			if in.From > in.Limit && in.From-in.Limit > in.Floor {
				to = in.From - in.Limit
			}
			return interfaces.BatchResult{Processed: in.From - to, To: to}, nil
		}).Times(3)

	renderer := &drainRenderer{}
	c := NewController(store, stage, renderer, Options{})
	outcome := c.Run(context.Background(), model.RunTarget{
		Stage:     "bodies",
		Direction: model.Unwind,
		Height:    100,
		BatchSize: 20,
	})

	assert.Equal(t, model.StatusCompleted, outcome.Status)
	assert.Equal(t, uint64(150), outcome.StartHeight)
	assert.Equal(t, uint64(100), outcome.EndHeight)
	assert.Equal(t, uint64(50), outcome.Entities)

	// never below the target, never above the start
	for _, snap := range renderer.snaps {
		assert.GreaterOrEqual(t, snap.Height, uint64(100))
		assert.LessOrEqual(t, snap.Height, uint64(150))
	}

	cp, _, err := store.Load("bodies")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), cp.Height)
}

func TestUnwind_TargetNotBelowCheckpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := newTestStore(t)
	seedCheckpoint(t, store, "execution", 100)

	// no Unwind expectation: the run must fail before any batch
	stage := mocks.NewMockStage(ctrl)
	stage.EXPECT().Name().Return("execution").AnyTimes()

	c := NewController(store, stage, &drainRenderer{}, Options{})
	outcome := c.Run(context.Background(), model.RunTarget{
		Stage:     "execution",
		Direction: model.Unwind,
		Height:    100,
	})

	require.Equal(t, model.StatusFailed, outcome.Status)
	var configErr *model.ConfigurationError
	require.ErrorAs(t, outcome.Err, &configErr)
	assert.Equal(t, StateFailed, c.State())
	assert.Zero(t, outcome.Batches)

	cp, _, err := store.Load("execution")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), cp.Height)
}

func TestController_RecordersSeeEveryBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := newTestStore(t)
	stage := advancingStage(ctrl, "headers")

	recorder := mocks.NewMockRecorder(ctrl)
	recorder.EXPECT().RecordBatch(gomock.Any()).Times(4)

	c := NewController(store, stage, &drainRenderer{}, Options{Recorders: []interfaces.Recorder{recorder}})
	outcome := c.Run(context.Background(), model.RunTarget{
		Stage:     "headers",
		Direction: model.Forward,
		Height:    40,
		BatchSize: 10,
	})
	require.Equal(t, model.StatusCompleted, outcome.Status)
}

func TestController_SingleUse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := newTestStore(t)
	stage := advancingStage(ctrl, "headers")

	c := NewController(store, stage, &drainRenderer{}, Options{})
	target := model.RunTarget{Stage: "headers", Direction: model.Forward, Height: 10, BatchSize: 10}

	first := c.Run(context.Background(), target)
	require.Equal(t, model.StatusCompleted, first.Status)

	second := c.Run(context.Background(), target)
	assert.Equal(t, model.StatusFailed, second.Status)
}
