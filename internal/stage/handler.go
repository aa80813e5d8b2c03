package stage

import (
	"context"

	"polyvox/internal/queue"
)

// Handler is the contract the workflow manager needs from the five pipeline
// stages: cleanup, translate, synthesis, assembly, and video. Prepare
// validates the job payload before the item flips to running, Execute
// produces the stage's artifact and records the output path, and HealthCheck
// reports whether the external engine the stage shells out to or calls over
// HTTP is reachable.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}
