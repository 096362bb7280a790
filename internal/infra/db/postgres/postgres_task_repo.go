package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-task-orchestrator/internal/domain"
	"ai-task-orchestrator/internal/domain/model"
	"ai-task-orchestrator/internal/domain/ports/repository"
)

var _ repository.TaskRepository = (*taskRepo)(nil)

type taskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *taskRepo {
	return &taskRepo{pool: pool}
}

func (r *taskRepo) Save(ctx context.Context, tx repository.Tx, t *model.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.UpdatedAt = time.Now()

	input, err := json.Marshal(t.Input)
	if err != nil {
		return err
	}
	var result []byte
	if t.ResultData != nil {
		if result, err = json.Marshal(t.ResultData); err != nil {
			return err
		}
	}

	const q = `
INSERT INTO tasks (id, user_id, type, model, priority, status, progress,
                   retry_count, max_retries, last_error, input, result_data, cost,
                   created_at, started_at, completed_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  progress = EXCLUDED.progress,
  retry_count = EXCLUDED.retry_count,
  last_error = EXCLUDED.last_error,
  result_data = EXCLUDED.result_data,
  started_at = EXCLUDED.started_at,
  completed_at = EXCLUDED.completed_at,
  updated_at = EXCLUDED.updated_at;`

	_, err = execSQL(ctx, r.pool, tx, q,
		t.ID, t.UserID, string(t.Type), t.Model, int(t.Priority), string(t.Status), t.Progress,
		t.RetryCount, t.MaxRetries, t.LastError, input, result, t.Cost,
		t.CreatedAt, t.StartedAt, t.CompletedAt, t.UpdatedAt)
	return err
}

func (r *taskRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Task, error) {
	const q = `
SELECT id, user_id, type, model, priority, status, progress,
       retry_count, max_retries, last_error, input, result_data, cost,
       created_at, started_at, completed_at, updated_at
FROM tasks WHERE id = $1;`

	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	var t model.Task
	var typ, status string
	var prio int
	var input, result []byte
	err = row.Scan(&t.ID, &t.UserID, &typ, &t.Model, &prio, &status, &t.Progress,
		&t.RetryCount, &t.MaxRetries, &t.LastError, &input, &result, &t.Cost,
		&t.CreatedAt, &t.StartedAt, &t.CompletedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	t.Type = model.TaskType(typ)
	t.Status = model.TaskStatus(status)
	t.Priority = model.TaskPriority(prio)
	if len(input) > 0 {
		_ = json.Unmarshal(input, &t.Input)
	}
	if len(result) > 0 {
		_ = json.Unmarshal(result, &t.ResultData)
	}
	return &t, nil
}

func (r *taskRepo) MarkRunning(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE tasks SET status = 'running', started_at = now(), updated_at = now()
WHERE id = $1 AND status = 'pending';`

	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Complete is guarded against already-terminal rows so duplicate or late
// completion signals are silently dropped.
func (r *taskRepo) Complete(ctx context.Context, tx repository.Tx, id string, status model.TaskStatus, result map[string]any, errMsg string) (bool, error) {
	if status != model.TaskStatusSuccess && status != model.TaskStatusFailed {
		return false, domain.ErrInvalidArgument
	}
	var resultJSON []byte
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return false, err
		}
		resultJSON = b
	}
	progress := 100
	if status == model.TaskStatusFailed {
		progress = -1 // keep current progress
	}

	const q = `
UPDATE tasks SET status = $2,
                 progress = CASE WHEN $3 >= 0 THEN $3 ELSE progress END,
                 result_data = COALESCE($4, result_data),
                 last_error = $5,
                 completed_at = now(),
                 updated_at = now()
WHERE id = $1 AND status NOT IN ('success', 'failed');`

	tag, err := execSQL(ctx, r.pool, tx, q, id, string(status), progress, resultJSON, errMsg)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *taskRepo) UpdateRetry(ctx context.Context, tx repository.Tx, id string, retryCount int, lastErr string) error {
	const q = `
UPDATE tasks SET status = 'pending', retry_count = $2, last_error = $3, updated_at = now()
WHERE id = $1 AND status NOT IN ('success', 'failed');`

	_, err := execSQL(ctx, r.pool, tx, q, id, retryCount, lastErr)
	return err
}

func (r *taskRepo) SetProgress(ctx context.Context, tx repository.Tx, id string, progress int) error {
	const q = `
UPDATE tasks SET progress = GREATEST(progress, $2), updated_at = now()
WHERE id = $1 AND status = 'running';`

	_, err := execSQL(ctx, r.pool, tx, q, id, progress)
	return err
}
