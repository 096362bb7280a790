package ai

import (
	"context"

	"ai-task-orchestrator/internal/domain/model"
	"ai-task-orchestrator/internal/domain/ports/adapter"
)

var _ adapter.AIProviderAdapter = (*limitedAI)(nil)

type limitedAI struct {
	inner adapter.AIProviderAdapter
	sem   chan struct{}
}

// NewLimitedAI caps concurrent Generate calls across all workers.
func NewLimitedAI(inner adapter.AIProviderAdapter, maxConcurrent int) adapter.AIProviderAdapter {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedAI{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedAI) Name() string { return l.inner.Name() }

func (l *limitedAI) ListModels(ctx context.Context) ([]string, error) {
	return l.inner.ListModels(ctx)
}

func (l *limitedAI) Generate(ctx context.Context, typ model.TaskType, req adapter.Request) (*adapter.Result, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, typ, req)
}
