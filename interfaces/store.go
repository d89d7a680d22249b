package interfaces

import (
	bolt "go.etcd.io/bbolt"

	"stagerun/model"
)

// CheckpointStore is the sole reader and writer of stage checkpoints.
//
// Commit runs mutate inside a single write transaction and persists the
// checkpoint it returns in the same transaction. An error from mutate is
// returned unchanged and aborts the transaction; a failure of the store
// itself surfaces as *model.StorageError. There is no retry at this layer.
type CheckpointStore interface {
	Load(stage string) (model.Checkpoint, bool, error)
	Commit(stage string, mutate func(tx *bolt.Tx) (model.Checkpoint, error)) error
	View(fn func(tx *bolt.Tx) error) error
	Close() error
}
