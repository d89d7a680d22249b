package db

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"stagerun/interfaces"
	"stagerun/model"
)

const dbFileName = "stagerun.db"

// Handler wraps the bolt database holding stage data and checkpoints.
// A batch's data mutation and its checkpoint land in one Update call, so
// either both are durable or neither is.
type Handler struct {
	db *bolt.DB
}

func NewHandler(datadir string) (*Handler, error) {
	if err := os.MkdirAll(datadir, 0o755); err != nil {
		return nil, fmt.Errorf("creating datadir: %w", err)
	}
	path := filepath.Join(datadir, dbFileName)
	slog.Info("opening database", "path", path)
	database, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &Handler{db: database}, nil
}

func (h *Handler) Load(stage string) (model.Checkpoint, bool, error) {
	var (
		cp    model.Checkpoint
		found bool
	)
	err := h.db.View(func(tx *bolt.Tx) error {
		c, ok, err := LoadIn(tx, stage)
		cp, found = c, ok
		return err
	})
	if err != nil {
		return model.Checkpoint{}, false, &model.StorageError{Stage: stage, Err: err}
	}
	return cp, found, nil
}

// LoadIn reads a stage's checkpoint inside an already open transaction.
// Stages use it to read a sibling stage's progress, e.g. bodies capping at
// the headers height.
func LoadIn(tx *bolt.Tx, stage string) (model.Checkpoint, bool, error) {
	b := tx.Bucket([]byte(checkpointBucket))
	if b == nil {
		return model.Checkpoint{}, false, nil
	}
	raw := b.Get([]byte(stage))
	if raw == nil {
		return model.Checkpoint{}, false, nil
	}
	var cp model.Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return model.Checkpoint{}, false, fmt.Errorf("decoding checkpoint for %s: %w", stage, err)
	}
	return cp, true, nil
}

func (h *Handler) Commit(stage string, mutate func(tx *bolt.Tx) (model.Checkpoint, error)) error {
	var mutateErr error
	err := h.db.Update(func(tx *bolt.Tx) error {
		cp, err := mutate(tx)
		if err != nil {
			mutateErr = err
			return err
		}
		b, err := tx.CreateBucketIfNotExists([]byte(checkpointBucket))
		if err != nil {
			return err
		}
		enc, err := json.Marshal(cp)
		if err != nil {
			return err
		}
		return b.Put([]byte(stage), enc)
	})
	if err == nil {
		return nil
	}
	if mutateErr != nil {
		// the stage's own failure; the transaction rolled back around it
		return mutateErr
	}
	return &model.StorageError{Stage: stage, Err: err}
}

func (h *Handler) View(fn func(tx *bolt.Tx) error) error {
	return h.db.View(fn)
}

func (h *Handler) Close() error {
	return h.db.Close()
}

var _ interfaces.CheckpointStore = (*Handler)(nil)
