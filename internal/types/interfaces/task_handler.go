package interfaces

import (
	"context"

	"github.com/hibiken/asynq"
)

// TaskHandler is the contract for a background asynq task's handler.
type TaskHandler interface {
	// Handle handles the task.
	Handle(ctx context.Context, t *asynq.Task) error
}
