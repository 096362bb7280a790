package queue

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-task-orchestrator/internal/domain/model"
	"ai-task-orchestrator/internal/domain/ports/adapter"
	"ai-task-orchestrator/internal/domain/ports/repository"
	"ai-task-orchestrator/internal/infra/metrics"
	"ai-task-orchestrator/internal/retry"
	"ai-task-orchestrator/internal/usecase"
)

// Processor executes one dequeued task against the provider and writes
// the terminal state back. Retryable provider failures are re-enqueued
// with exponential backoff until maxRetries; everything terminal and paid
// that failed gets refunded.
type Processor struct {
	tasks      repository.TaskRepository
	provider   adapter.AIProviderAdapter
	ledger     usecase.CreditLedger
	queue      *Manager
	retryDelay time.Duration
	log        *zerolog.Logger
}

func NewProcessor(
	tasks repository.TaskRepository,
	provider adapter.AIProviderAdapter,
	ledger usecase.CreditLedger,
	queue *Manager,
	retryDelay time.Duration,
	logger *zerolog.Logger,
) *Processor {
	l := logger.With().Str("component", "Processor").Logger()
	return &Processor{
		tasks:      tasks,
		provider:   provider,
		ledger:     ledger,
		queue:      queue,
		retryDelay: retryDelay,
		log:        &l,
	}
}

func (p *Processor) Process(ctx context.Context, t *model.Task) {
	log := p.log.With().Str("task_id", t.ID).Str("type", string(t.Type)).Logger()

	ok, err := p.tasks.MarkRunning(ctx, nil, t.ID)
	if err != nil {
		log.Error().Err(err).Msg("mark running failed")
		return
	}
	if !ok {
		// Already running elsewhere or terminal; nothing to do.
		log.Debug().Msg("task not pending, skipping")
		return
	}

	start := time.Now()
	result, err := p.provider.Generate(ctx, t.Type, adapter.Request{Model: t.Model, Input: t.Input})
	latency := time.Since(start)
	metrics.ObserveProviderCall(p.provider.Name(), t.Model, int(latency/time.Millisecond), err == nil)

	if err != nil {
		p.handleFailure(ctx, t, err, log)
		return
	}

	applied, err := p.tasks.Complete(ctx, nil, t.ID, model.TaskStatusSuccess, result.Data, "")
	if err != nil {
		log.Error().Err(err).Msg("terminal write failed")
		return
	}
	if !applied {
		// Late completion for a task someone else already finished.
		log.Debug().Msg("completion was a no-op")
		return
	}
	metrics.IncTaskFinished(string(t.Type), string(model.TaskStatusSuccess))
	log.Info().Dur("duration", latency).Msg("task succeeded")
}

func (p *Processor) handleFailure(ctx context.Context, t *model.Task, callErr error, log zerolog.Logger) {
	if retry.IsRetryable(callErr) && t.RetryCount < t.MaxRetries {
		t.RetryCount++
		if err := p.tasks.UpdateRetry(ctx, nil, t.ID, t.RetryCount, callErr.Error()); err != nil {
			log.Error().Err(err).Msg("retry update failed")
			return
		}
		metrics.IncTaskRetry(string(t.Type))

		// Exponential backoff keyed on how often this task bounced.
		delay := p.retryDelay << (t.RetryCount - 1)
		log.Warn().Err(callErr).Int("retry", t.RetryCount).Dur("backoff", delay).Msg("retryable failure, re-enqueueing")
		time.AfterFunc(delay, func() {
			if err := p.queue.Enqueue(context.Background(), t); err != nil {
				p.failTerminal(context.Background(), t, callErr.Error(), log)
			}
		})
		return
	}

	p.failTerminal(ctx, t, callErr.Error(), log)
}

func (p *Processor) failTerminal(ctx context.Context, t *model.Task, errMsg string, log zerolog.Logger) {
	applied, err := p.tasks.Complete(ctx, nil, t.ID, model.TaskStatusFailed, nil, errMsg)
	if err != nil {
		log.Error().Err(err).Msg("terminal write failed")
		return
	}
	if !applied {
		return
	}
	metrics.IncTaskFinished(string(t.Type), string(model.TaskStatusFailed))
	log.Error().Str("error", errMsg).Msg("task failed")

	if t.Cost > 0 {
		if err := p.ledger.Refund(ctx, t.ID, t.UserID, t.Cost); err != nil {
			log.Error().Err(err).Msg("refund failed")
		}
	}
}
