package ai

import (
	"context"
	"fmt"

	"ai-task-orchestrator/internal/domain/model"
	"ai-task-orchestrator/internal/domain/ports/adapter"
)

var _ adapter.AIProviderAdapter = (*NoopAdapter)(nil)

// NoopAdapter is the dev-mode provider: it echoes a canned result for any
// task type without leaving the process.
type NoopAdapter struct{}

func NewNoopAdapter() *NoopAdapter { return &NoopAdapter{} }

func (n *NoopAdapter) Name() string { return "noop" }

func (n *NoopAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{"noop-v1"}, nil
}

func (n *NoopAdapter) Generate(ctx context.Context, typ model.TaskType, req adapter.Request) (*adapter.Result, error) {
	prompt, _ := req.Input["prompt"].(string)
	if prompt == "" {
		prompt, _ = req.Input["text"].(string)
	}
	data := map[string]any{
		"text": fmt.Sprintf("noop %s result for: %s", typ, prompt),
	}
	if typ == model.TaskTypeImage {
		data["images"] = []any{"https://example.invalid/noop.png"}
	}
	return &adapter.Result{Data: data}, nil
}
