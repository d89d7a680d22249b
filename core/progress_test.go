package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagerun/model"
)

func TestProgressBus_LatestValueWins(t *testing.T) {
	bus := NewProgressBus()

	// the consumer is slow: three publishes, only the last survives
	bus.Publish(model.ProgressSnapshot{Height: 1})
	bus.Publish(model.ProgressSnapshot{Height: 2})
	bus.Publish(model.ProgressSnapshot{Height: 3})

	snap := <-bus.Updates()
	assert.Equal(t, uint64(3), snap.Height)

	select {
	case extra, ok := <-bus.Updates():
		if ok {
			t.Fatalf("unexpected queued snapshot at height %d", extra.Height)
		}
	default:
	}
}

func TestProgressBus_CloseSignalsFinalFrame(t *testing.T) {
	bus := NewProgressBus()
	bus.Publish(model.ProgressSnapshot{Height: 9})
	bus.Close()

	snap, ok := <-bus.Updates()
	require.True(t, ok)
	assert.Equal(t, uint64(9), snap.Height)

	_, ok = <-bus.Updates()
	assert.False(t, ok)
}

func TestProgressBus_PublishNeverBlocks(t *testing.T) {
	bus := NewProgressBus()
	for i := uint64(0); i < 1000; i++ {
		bus.Publish(model.ProgressSnapshot{Height: i})
	}
	snap := <-bus.Updates()
	assert.Equal(t, uint64(999), snap.Height)
}
