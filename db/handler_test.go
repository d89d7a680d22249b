package db

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"stagerun/model"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	h, err := NewHandler(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestHandler_LoadMissing(t *testing.T) {
	h := newTestHandler(t)

	_, found, err := h.Load("headers")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHandler_CommitThenLoad(t *testing.T) {
	h := newTestHandler(t)

	err := h.Commit("headers", func(tx *bolt.Tx) (model.Checkpoint, error) {
		b, err := StageBucket(tx, "headers")
		require.NoError(t, err)
		require.NoError(t, b.Put(EncodeHeight(42), []byte("payload")))
		return model.Checkpoint{Height: 42, UpdatedAt: time.Now()}, nil
	})
	require.NoError(t, err)

	cp, found, err := h.Load("headers")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(42), cp.Height)

	err = h.View(func(tx *bolt.Tx) error {
		b := StageBucketRO(tx, "headers")
		require.NotNil(t, b)
		assert.Equal(t, []byte("payload"), b.Get(EncodeHeight(42)))
		return nil
	})
	require.NoError(t, err)
}

func TestHandler_CommitRollsBackOnMutateError(t *testing.T) {
	h := newTestHandler(t)

	require.NoError(t, h.Commit("headers", func(tx *bolt.Tx) (model.Checkpoint, error) {
		b, err := StageBucket(tx, "headers")
		require.NoError(t, err)
		require.NoError(t, b.Put(EncodeHeight(1), []byte("one")))
		return model.Checkpoint{Height: 1}, nil
	}))

	boom := errors.New("batch exploded")
	err := h.Commit("headers", func(tx *bolt.Tx) (model.Checkpoint, error) {
		b, bErr := StageBucket(tx, "headers")
		require.NoError(t, bErr)
		require.NoError(t, b.Put(EncodeHeight(2), []byte("two")))
		return model.Checkpoint{Height: 2}, boom
	})
	require.ErrorIs(t, err, boom)

	// neither the data nor the checkpoint from the failed batch survive
	cp, found, loadErr := h.Load("headers")
	require.NoError(t, loadErr)
	require.True(t, found)
	assert.Equal(t, uint64(1), cp.Height)

	require.NoError(t, h.View(func(tx *bolt.Tx) error {
		b := StageBucketRO(tx, "headers")
		assert.Nil(t, b.Get(EncodeHeight(2)))
		return nil
	}))
}

func TestHandler_MutateErrorIsNotStorageError(t *testing.T) {
	h := newTestHandler(t)

	boom := errors.New("stage failure")
	err := h.Commit("bodies", func(tx *bolt.Tx) (model.Checkpoint, error) {
		return model.Checkpoint{}, boom
	})
	require.ErrorIs(t, err, boom)

	var storageErr *model.StorageError
	assert.False(t, errors.As(err, &storageErr))
}

func TestEncodeHeightOrdering(t *testing.T) {
	assert.Equal(t, uint64(7), DecodeHeight(EncodeHeight(7)))
	// big-endian keys keep bolt cursor order aligned with heights
	assert.Less(t, string(EncodeHeight(255)), string(EncodeHeight(256)))
}
