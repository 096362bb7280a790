package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-task-orchestrator/internal/domain"
	"ai-task-orchestrator/internal/domain/model"
	"ai-task-orchestrator/internal/domain/ports/repository"
)

var (
	_ repository.UserRepository = (*userRepo)(nil)
	_ repository.RefundLedger   = (*userRepo)(nil)
)

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if u.RegisteredAt.IsZero() {
		u.RegisteredAt = time.Now()
	}
	const q = `
INSERT INTO users (id, tier, credits, registered_at, last_active_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
  tier = EXCLUDED.tier,
  last_active_at = EXCLUDED.last_active_at;`

	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Tier, u.Credits, u.RegisteredAt, u.LastActiveAt)
	return err
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT id, tier, credits, registered_at, last_active_at FROM users WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := row.Scan(&u.ID, &u.Tier, &u.Credits, &u.RegisteredAt, &u.LastActiveAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &u, nil
}

// DebitCredits is a single conditional UPDATE so concurrent debits cannot
// drive the balance negative.
func (r *userRepo) DebitCredits(ctx context.Context, tx repository.Tx, userID string, amount int64) (bool, error) {
	const q = `UPDATE users SET credits = credits - $2 WHERE id = $1 AND credits >= $2;`
	tag, err := execSQL(ctx, r.pool, tx, q, userID, amount)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *userRepo) CreditCredits(ctx context.Context, tx repository.Tx, userID string, amount int64) error {
	const q = `UPDATE users SET credits = credits + $2 WHERE id = $1;`
	_, err := execSQL(ctx, r.pool, tx, q, userID, amount)
	return err
}

// RecordRefund inserts the per-task dedup row. ON CONFLICT DO NOTHING
// makes duplicate failure notifications a no-op.
func (r *userRepo) RecordRefund(ctx context.Context, tx repository.Tx, taskID, userID string, amount int64) (bool, error) {
	const q = `
INSERT INTO task_refunds (task_id, user_id, amount, refunded_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (task_id) DO NOTHING;`

	tag, err := execSQL(ctx, r.pool, tx, q, taskID, userID, amount)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
