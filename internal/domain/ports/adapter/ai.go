package adapter

import (
	"context"

	"ai-task-orchestrator/internal/domain/model"
)

// Message represents a chat message for text-style generation.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Usage as reported by the provider for a single call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Request is the resolved call the worker hands to a provider: the model
// to invoke plus the task's (already dependency-substituted) input.
type Request struct {
	Model string
	Input map[string]any
}

// Result is the opaque provider output the worker writes back as the
// task's resultData.
type Result struct {
	Data  map[string]any
	Usage Usage
}

// AIProviderAdapter is the port for one external generative provider.
// Generate must match the task type exhaustively and reject types the
// provider does not support.
type AIProviderAdapter interface {
	Name() string
	ListModels(ctx context.Context) ([]string, error)
	Generate(ctx context.Context, typ model.TaskType, req Request) (*Result, error)
}
