package repository

import (
	"context"

	"ai-task-orchestrator/internal/domain/model"
)

type ProviderKeyRepository interface {
	// ListEnabled returns all enabled keys ordered by priority descending.
	ListEnabled(ctx context.Context, tx Tx) ([]*model.ProviderKey, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.ProviderKey, error)
}
