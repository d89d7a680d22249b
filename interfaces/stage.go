package interfaces

import (
	"context"

	bolt "go.etcd.io/bbolt"
)

// BatchInput bounds one forward batch. From is the current checkpoint
// height, Target the run target and Limit the maximum number of heights
// the batch may advance before handing control back. Stages that store one
// entity per height process at most Limit entities; derived indexes can
// report more.
type BatchInput struct {
	From   uint64
	Target uint64
	Limit  uint64
}

// UnwindInput bounds one unwind batch. Floor is the lowest height the batch
// may regress to; Limit is measured in heights.
type UnwindInput struct {
	From  uint64
	Floor uint64
	Limit uint64
}

// BatchResult reports what a batch did. To is the new checkpoint height,
// Aux optional stage state persisted alongside it. Done signals the stage
// has no more input regardless of the target.
type BatchResult struct {
	Processed uint64
	To        uint64
	Aux       []byte
	Done      bool
}

// Stage is the contract every pipeline stage satisfies. The harness drives
// stages only through this interface; it never depends on a concrete one.
//
// Both methods run inside the write transaction that also carries the
// checkpoint update, so a stage's mutation and its new checkpoint commit or
// roll back together.
type Stage interface {
	Name() string
	Execute(ctx context.Context, tx *bolt.Tx, in BatchInput) (BatchResult, error)
	Unwind(ctx context.Context, tx *bolt.Tx, in UnwindInput) (BatchResult, error)
}
