package cache

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/faqrag/engine/internal/logger"
	"github.com/faqrag/engine/internal/types/interfaces"
)

// SweepTaskType is the asynq task type for the periodic Tier B TTL sweep,
// scheduled as a recurring job.
const SweepTaskType = "cache:sweep_semantic_cache"

// NewSweepTask builds the periodic-sweep payload (the manager to sweep
// is resolved by the handler from its own closure, not carried in the
// payload).
func NewSweepTask() *asynq.Task {
	return asynq.NewTask(SweepTaskType, []byte("{}"))
}

// SweepHandler implements interfaces.TaskHandler, invoking Manager.Sweep
// when the scheduler fires the recurring task.
type SweepHandler struct {
	manager *Manager
}

// NewSweepHandler builds a TaskHandler bound to manager.
func NewSweepHandler(manager *Manager) *SweepHandler {
	return &SweepHandler{manager: manager}
}

func (h *SweepHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload struct{}
	_ = json.Unmarshal(t.Payload(), &payload)
	if err := h.manager.Sweep(ctx); err != nil {
		logger.GetLogger(ctx).Warnf("semantic cache sweep failed: %v", err)
		return err
	}
	return nil
}

var _ interfaces.TaskHandler = (*SweepHandler)(nil)
