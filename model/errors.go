package model

import "fmt"

// ConfigurationError means the requested run is invalid relative to the
// current checkpoint. It is reported before any batch runs.
type ConfigurationError struct {
	Stage string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Msg)
}

// StageError means a batch failed inside the stage. The checkpoint from the
// last committed batch is still valid.
type StageError struct {
	Stage  string
	Height uint64
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed at height %d: %v", e.Stage, e.Height, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StorageError means a batch could not be committed. The transaction is
// rolled back as a whole, so no partial state survives.
type StorageError struct {
	Stage  string
	Height uint64
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("stage %s: commit failed at height %d: %v", e.Stage, e.Height, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
