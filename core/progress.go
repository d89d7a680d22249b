package core

import "stagerun/model"

// ProgressBus carries snapshots from the loop to the renderer. It is a
// single-slot, latest-value-wins channel: when the renderer lags, a new
// snapshot replaces the unconsumed one instead of queueing behind it.
// Closing the bus is the renderer's signal to draw a final frame and stop.
type ProgressBus struct {
	ch chan model.ProgressSnapshot
}

func NewProgressBus() *ProgressBus {
	return &ProgressBus{ch: make(chan model.ProgressSnapshot, 1)}
}

// Publish never blocks. Single producer only.
func (b *ProgressBus) Publish(snap model.ProgressSnapshot) {
	for {
		select {
		case b.ch <- snap:
			return
		default:
		}
		// slot full: drop the stale snapshot and retry
		select {
		case <-b.ch:
		default:
		}
	}
}

func (b *ProgressBus) Updates() <-chan model.ProgressSnapshot {
	return b.ch
}

func (b *ProgressBus) Close() {
	close(b.ch)
}
