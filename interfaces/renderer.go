package interfaces

import (
	"context"

	"stagerun/model"
)

// Renderer consumes progress snapshots until the channel closes, then draws
// a final frame and returns. It invokes cancel when the operator asks to
// stop; the run honors that at the next batch boundary.
type Renderer interface {
	Render(updates <-chan model.ProgressSnapshot, cancel context.CancelFunc)
}
