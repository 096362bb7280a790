package repository

import (
	"context"

	"ai-task-orchestrator/internal/domain/model"
)

type TaskRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Task) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Task, error)

	// MarkRunning transitions a pending task to running and stamps
	// startedAt. Returns model.ErrNotFound-equivalent behavior via the
	// boolean: false means the task was not pending (already started or
	// terminal) and nothing was changed.
	MarkRunning(ctx context.Context, tx Tx, id string) (bool, error)

	// Complete writes a terminal state. The update is guarded so a task
	// that is already terminal is left untouched; false reports that the
	// signal was a no-op.
	Complete(ctx context.Context, tx Tx, id string, status model.TaskStatus, result map[string]any, errMsg string) (bool, error)

	// UpdateRetry bumps retryCount and last error on a retryable failure,
	// moving the task back to pending for re-enqueue.
	UpdateRetry(ctx context.Context, tx Tx, id string, retryCount int, lastErr string) error

	SetProgress(ctx context.Context, tx Tx, id string, progress int) error
}
