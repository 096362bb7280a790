package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-task-orchestrator/internal/domain"
	"ai-task-orchestrator/internal/domain/model"
	"ai-task-orchestrator/internal/domain/ports/repository"
	"ai-task-orchestrator/internal/infra/metrics"
	"ai-task-orchestrator/internal/infra/ratelimit"
)

// TaskRequest is the payload handed to the router by the boundary or the
// chain executor.
type TaskRequest struct {
	Type       model.TaskType
	Model      string
	Priority   model.TaskPriority
	Input      map[string]any
	MaxRetries int // 0 means the configured default
}

// TaskQueue is the router's handle on the per-category queues.
type TaskQueue interface {
	Enqueue(ctx context.Context, t *model.Task) error
}

// ProviderResolver maps a model name to the provider serving it.
type ProviderResolver interface {
	ResolveProvider(model string) string
}

var _ Router = (*routerUC)(nil)

// Router accepts one task request, resolves the model and key, reserves
// credits, persists the task and enqueues it. Creation is synchronous;
// execution is not.
type Router interface {
	Route(ctx context.Context, userID string, req TaskRequest) (*model.Task, error)
	Get(ctx context.Context, taskID string) (*model.Task, error)
	EstimateSeconds(typ model.TaskType) int
}

type routerUC struct {
	tasks        repository.TaskRepository
	keys         repository.ProviderKeyRepository
	ledger       CreditLedger
	pricing      *Pricing
	queue        TaskQueue
	resolver     ProviderResolver
	counters     ratelimit.CounterStore
	defaultModel string
	maxRetries   int
	devMode      bool
	log          *zerolog.Logger
}

func NewRouter(
	tasks repository.TaskRepository,
	keys repository.ProviderKeyRepository,
	ledger CreditLedger,
	pricing *Pricing,
	queue TaskQueue,
	resolver ProviderResolver,
	counters ratelimit.CounterStore,
	defaultModel string,
	maxRetries int,
	devMode bool,
	logger *zerolog.Logger,
) *routerUC {
	l := logger.With().Str("component", "Router").Logger()
	return &routerUC{
		tasks:        tasks,
		keys:         keys,
		ledger:       ledger,
		pricing:      pricing,
		queue:        queue,
		resolver:     resolver,
		counters:     counters,
		defaultModel: defaultModel,
		maxRetries:   maxRetries,
		devMode:      devMode,
		log:          &l,
	}
}

func (r *routerUC) Route(ctx context.Context, userID string, req TaskRequest) (*model.Task, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !model.ValidTaskType(req.Type) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTaskType, req.Type)
	}
	if req.Input == nil {
		req.Input = map[string]any{}
	}

	resolvedModel, err := r.resolveModel(ctx, req.Model)
	if err != nil {
		return nil, err
	}

	cost := int64(0)
	if !r.devMode {
		cost = r.pricing.Cost(req.Type, req.Input)
		if err := r.ledger.Reserve(ctx, userID, cost); err != nil {
			return nil, err
		}
	}

	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = r.maxRetries
	}
	now := time.Now()
	t := &model.Task{
		ID:         uuid.NewString(),
		UserID:     userID,
		Type:       req.Type,
		Model:      resolvedModel,
		Priority:   req.Priority,
		Status:     model.TaskStatusPending,
		MaxRetries: maxRetries,
		Input:      req.Input,
		Cost:       cost,
		CreatedAt:  now,
	}
	if err := r.tasks.Save(ctx, nil, t); err != nil {
		r.rollbackReserve(ctx, t)
		return nil, err
	}
	if err := r.queue.Enqueue(ctx, t); err != nil {
		// The row exists but nothing will execute it; fail it and give
		// the credits back.
		_, _ = r.tasks.Complete(ctx, nil, t.ID, model.TaskStatusFailed, nil, err.Error())
		r.rollbackReserve(ctx, t)
		return nil, err
	}

	metrics.IncTaskRouted(string(t.Type), t.Priority.String())
	r.log.Info().Str("task_id", t.ID).Str("type", string(t.Type)).
		Str("model", t.Model).Str("priority", t.Priority.String()).Msg("task routed")
	return t, nil
}

func (r *routerUC) Get(ctx context.Context, taskID string) (*model.Task, error) {
	if taskID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return r.tasks.FindByID(ctx, nil, taskID)
}

// EstimateSeconds is a coarse per-type hint surfaced on routing responses.
func (r *routerUC) EstimateSeconds(typ model.TaskType) int {
	switch typ {
	case model.TaskTypeVideo:
		return 300
	case model.TaskTypeImage:
		return 30
	case model.TaskTypeAudio:
		return 20
	default:
		return 10
	}
}

// resolveModel applies the selection policy: an explicit model wins;
// otherwise the highest-priority enabled key is picked weighted-random
// among equals. Exactly one per-minute quota slot is consumed, on the
// selected key; a key at its ceiling falls through to the next candidate.
func (r *routerUC) resolveModel(ctx context.Context, requested string) (string, error) {
	target := requested
	if target == "" {
		target = r.defaultModel
	}
	provider := r.resolver.ResolveProvider(target)

	keys, err := r.keys.ListEnabled(ctx, nil)
	if err != nil {
		return "", err
	}
	var eligible []*model.ProviderKey
	for _, k := range keys {
		if strings.EqualFold(k.Provider, provider) && k.Serves(target) {
			eligible = append(eligible, k)
		}
	}

	// Keys arrive ordered by priority desc; pick by weight within the top
	// band, consuming the picked key's slot. Removal preserves order, so
	// the band is recomputed over the remaining candidates each round.
	for len(eligible) > 0 {
		k := pickWeighted(eligible)
		if r.consumeKeyQuota(ctx, k) {
			r.log.Debug().Str("key_id", k.ID).Str("provider", k.Provider).Msg("provider key selected")
			return target, nil
		}
		eligible = removeKey(eligible, k.ID)
	}

	if r.devMode {
		// dev mode runs without provider_keys rows; the noop adapter
		// will serve the call.
		return target, nil
	}
	return "", domain.ErrProviderUnavailable
}

func pickWeighted(eligible []*model.ProviderKey) *model.ProviderKey {
	top := eligible[0].Priority
	totalWeight := 0
	band := eligible[:0:0]
	for _, k := range eligible {
		if k.Priority != top {
			break
		}
		band = append(band, k)
		totalWeight += keyWeight(k)
	}
	pick := rand.Intn(totalWeight)
	for _, k := range band {
		pick -= keyWeight(k)
		if pick < 0 {
			return k
		}
	}
	return band[len(band)-1]
}

func keyWeight(k *model.ProviderKey) int {
	if k.Weight <= 0 {
		return 1
	}
	return k.Weight
}

func removeKey(keys []*model.ProviderKey, id string) []*model.ProviderKey {
	out := keys[:0]
	for _, k := range keys {
		if k.ID != id {
			out = append(out, k)
		}
	}
	return out
}

// consumeKeyQuota takes one slot of the key's per-minute ceiling,
// reporting false when the ceiling is already reached.
func (r *routerUC) consumeKeyQuota(ctx context.Context, k *model.ProviderKey) bool {
	if k.MaxRequestsPerMinute <= 0 {
		return true
	}
	count, _, err := r.counters.Incr(ctx, "provider_rpm:"+k.ID, time.Minute)
	if err != nil {
		// Counter backend down: fail open rather than blocking routing.
		r.log.Warn().Err(err).Str("key_id", k.ID).Msg("key quota check failed")
		return true
	}
	return count <= int64(k.MaxRequestsPerMinute)
}

func (r *routerUC) rollbackReserve(ctx context.Context, t *model.Task) {
	if t.Cost <= 0 {
		return
	}
	if err := r.ledger.Refund(ctx, t.ID, t.UserID, t.Cost); err != nil {
		r.log.Error().Err(err).Str("task_id", t.ID).Msg("reserve rollback failed")
	}
}
