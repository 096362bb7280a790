package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-task-orchestrator/internal/domain"
	"ai-task-orchestrator/internal/domain/model"
)

var _ ChainExecutor = (*chainUC)(nil)

// ChainExecutor walks a plan in topological order, dispatching each step
// through the router and feeding upstream outputs into downstream inputs.
type ChainExecutor interface {
	Execute(ctx context.Context, userID string, plan *model.Plan) ([]model.StepResult, error)
}

type chainUC struct {
	router       Router
	pollInterval time.Duration
	stepTimeout  time.Duration
	log          *zerolog.Logger
}

func NewChainExecutor(router Router, pollInterval, stepTimeout time.Duration, logger *zerolog.Logger) *chainUC {
	l := logger.With().Str("component", "ChainExecutor").Logger()
	return &chainUC{router: router, pollInterval: pollInterval, stepTimeout: stepTimeout, log: &l}
}

// Execute runs the plan's steps strictly in order. A step starts only
// after every dependency reached a terminal state; the first failure
// aborts the remaining steps, which are reported as skipped.
func (c *chainUC) Execute(ctx context.Context, userID string, plan *model.Plan) ([]model.StepResult, error) {
	if plan == nil {
		return nil, domain.ErrInvalidArgument
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPlan, err)
	}

	priority := model.ParsePriority(plan.Preferences.Priority)
	results := make([]model.StepResult, 0, len(plan.Steps))
	outputs := make(map[string]map[string]any, len(plan.Steps))
	aborted := false

	for _, step := range plan.Steps {
		if aborted {
			results = append(results, model.StepResult{
				StepID: step.ID, Status: model.TaskStatusFailed,
				Error: "skipped: earlier step failed", Skipped: true,
			})
			continue
		}

		input := resolveStepInput(step, outputs)
		task, err := c.router.Route(ctx, userID, TaskRequest{
			Type:     step.Type,
			Model:    step.Model,
			Priority: priority,
			Input:    input,
		})
		if err != nil {
			c.log.Warn().Err(err).Str("chain_id", plan.ID).Str("step_id", step.ID).Msg("step dispatch failed")
			results = append(results, model.StepResult{
				StepID: step.ID, Status: model.TaskStatusFailed, Error: err.Error(),
			})
			aborted = true
			continue
		}

		final, err := c.await(ctx, task.ID)
		if err != nil {
			results = append(results, model.StepResult{
				StepID: step.ID, TaskID: task.ID,
				Status: model.TaskStatusFailed, Error: err.Error(),
			})
			aborted = true
			continue
		}
		if final.Status != model.TaskStatusSuccess {
			results = append(results, model.StepResult{
				StepID: step.ID, TaskID: task.ID,
				Status: model.TaskStatusFailed, Error: final.LastError,
			})
			aborted = true
			continue
		}

		outputs[step.ID] = final.ResultData
		results = append(results, model.StepResult{
			StepID: step.ID, TaskID: task.ID,
			Status: model.TaskStatusSuccess, Result: final.ResultData,
		})
	}
	return results, nil
}

// await polls until the task is terminal or the step budget runs out.
// A budget overrun does not cancel the provider call; the task row's
// guarded terminal update keeps a late completion harmless.
func (c *chainUC) await(ctx context.Context, taskID string) (*model.Task, error) {
	deadline := time.NewTimer(c.stepTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("%w: step exceeded %s wait budget", domain.ErrTimeout, c.stepTimeout)
		case <-ticker.C:
			t, err := c.router.Get(ctx, taskID)
			if err != nil {
				return nil, err
			}
			if t.Terminal() {
				return t, nil
			}
		}
	}
}

var placeholderRe = regexp.MustCompile(`\{\{([^.}]+)\.([^}]+)\}\}`)

// resolveStepInput merges the step's declared input with the outputs of
// its dependencies: each dependency's resultData is attached under the
// dependency's step id, and "{{stepID.field}}" placeholders inside string
// values are substituted with the referenced output field.
func resolveStepInput(step model.Step, outputs map[string]map[string]any) map[string]any {
	merged := make(map[string]any, len(step.Input)+len(step.DependsOn))
	for k, v := range step.Input {
		merged[k] = v
	}
	for _, dep := range step.DependsOn {
		if out, ok := outputs[dep]; ok {
			merged[dep] = out
		}
	}
	for k, v := range merged {
		if s, ok := v.(string); ok {
			merged[k] = substitutePlaceholders(s, outputs)
		}
	}
	return merged
}

func substitutePlaceholders(s string, outputs map[string]map[string]any) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := placeholderRe.FindStringSubmatch(match)
		if out, ok := outputs[parts[1]]; ok {
			if v, ok := out[parts[2]]; ok {
				return strings.TrimSpace(fmt.Sprintf("%v", v))
			}
		}
		return match
	})
}
