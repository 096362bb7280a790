package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-task-orchestrator/internal/domain"
	"ai-task-orchestrator/internal/domain/model"
	"ai-task-orchestrator/internal/domain/ports/repository"
)

var _ repository.ProviderKeyRepository = (*providerKeyRepo)(nil)

type providerKeyRepo struct {
	pool *pgxpool.Pool
}

func NewProviderKeyRepo(pool *pgxpool.Pool) *providerKeyRepo {
	return &providerKeyRepo{pool: pool}
}

func (r *providerKeyRepo) ListEnabled(ctx context.Context, tx repository.Tx) ([]*model.ProviderKey, error) {
	const q = `
SELECT id, provider, api_key, models, priority, weight, max_requests_per_minute, enabled, created_at
FROM provider_keys
WHERE enabled
ORDER BY priority DESC, weight DESC;`

	rows, err := pickRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ProviderKey
	for rows.Next() {
		var k model.ProviderKey
		if err := rows.Scan(&k.ID, &k.Provider, &k.Key, &k.Models, &k.Priority,
			&k.Weight, &k.MaxRequestsPerMinute, &k.Enabled, &k.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &k)
	}
	return out, rows.Err()
}

func (r *providerKeyRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ProviderKey, error) {
	const q = `
SELECT id, provider, api_key, models, priority, weight, max_requests_per_minute, enabled, created_at
FROM provider_keys WHERE id = $1;`

	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var k model.ProviderKey
	err = row.Scan(&k.ID, &k.Provider, &k.Key, &k.Models, &k.Priority,
		&k.Weight, &k.MaxRequestsPerMinute, &k.Enabled, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &k, nil
}
