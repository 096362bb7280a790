package ai

import (
	"context"
	"strings"

	"ai-task-orchestrator/internal/domain"
	"ai-task-orchestrator/internal/domain/model"
	"ai-task-orchestrator/internal/domain/ports/adapter"
)

var _ adapter.AIProviderAdapter = (*Registry)(nil)

// Registry multiplexes across configured providers. The model name picks
// the provider (explicit mapping first, then prefix heuristics, then the
// default provider).
type Registry struct {
	defaultProvider string
	byProvider      map[string]adapter.AIProviderAdapter
	modelToProvider map[string]string
}

func NewRegistry(defaultProvider string, byProvider map[string]adapter.AIProviderAdapter, modelToProvider map[string]string) *Registry {
	return &Registry{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
		modelToProvider: modelToProvider,
	}
}

func (r *Registry) Name() string { return "registry" }

// ResolveProvider maps a model name to the provider that serves it.
func (r *Registry) ResolveProvider(model string) string {
	if p := r.modelToProvider[model]; p != "" {
		return strings.ToLower(p)
	}
	l := strings.ToLower(model)
	switch {
	case strings.HasPrefix(l, "gemini"), strings.HasPrefix(l, "veo"), strings.HasPrefix(l, "imagen"):
		return "gemini"
	case strings.HasPrefix(l, "gpt"), strings.HasPrefix(l, "dall-e"), strings.HasPrefix(l, "o1"), strings.HasPrefix(l, "tts"):
		return "openai"
	case strings.HasPrefix(l, "noop"):
		return "noop"
	default:
		return r.defaultProvider
	}
}

// Provider returns the adapter registered for the given provider name.
func (r *Registry) Provider(name string) adapter.AIProviderAdapter {
	return r.byProvider[strings.ToLower(name)]
}

func (r *Registry) pick(model string) adapter.AIProviderAdapter {
	if a := r.byProvider[r.ResolveProvider(model)]; a != nil {
		return a
	}
	// last resort: first available
	for _, a := range r.byProvider {
		if a != nil {
			return a
		}
	}
	return nil
}

func (r *Registry) ListModels(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(r.modelToProvider)+4)
	for m := range r.modelToProvider {
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	for _, a := range r.byProvider {
		list, _ := a.ListModels(ctx)
		for _, name := range list {
			if name == "" {
				continue
			}
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	return out, nil
}

func (r *Registry) Generate(ctx context.Context, typ model.TaskType, req adapter.Request) (*adapter.Result, error) {
	a := r.pick(req.Model)
	if a == nil {
		return nil, domain.ErrProviderUnavailable
	}
	return a.Generate(ctx, typ, req)
}
