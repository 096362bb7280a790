package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ai-task-orchestrator/internal/domain"
	"ai-task-orchestrator/internal/domain/model"
)

// scriptedRouter implements Router for chain tests: each routed task
// resolves immediately via the per-type script, so the executor's polling
// observes a terminal task on the first tick.
type scriptedRouter struct {
	mu     sync.Mutex
	seq    int
	tasks  map[string]*model.Task
	routed []TaskRequest
	// script returns the task's result data, or an error to fail it.
	script func(req TaskRequest) (map[string]any, error)
	// hang leaves every task pending forever.
	hang bool
}

func newScriptedRouter(script func(req TaskRequest) (map[string]any, error)) *scriptedRouter {
	return &scriptedRouter{tasks: make(map[string]*model.Task), script: script}
}

func (s *scriptedRouter) Route(ctx context.Context, userID string, req TaskRequest) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.routed = append(s.routed, req)
	t := &model.Task{
		ID:       fmt.Sprintf("task-%d", s.seq),
		UserID:   userID,
		Type:     req.Type,
		Priority: req.Priority,
		Status:   model.TaskStatusPending,
		Input:    req.Input,
	}
	if !s.hang {
		if result, err := s.script(req); err != nil {
			t.Status = model.TaskStatusFailed
			t.LastError = err.Error()
		} else {
			t.Status = model.TaskStatusSuccess
			t.ResultData = result
		}
	}
	s.tasks[t.ID] = t
	return t, nil
}

func (s *scriptedRouter) Get(ctx context.Context, taskID string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *scriptedRouter) EstimateSeconds(model.TaskType) int { return 1 }

func newTestExecutor(r Router) *chainUC {
	log := zerolog.Nop()
	return NewChainExecutor(r, 2*time.Millisecond, 100*time.Millisecond, &log)
}

func copyChainPlan() *model.Plan {
	return &model.Plan{
		ID:   "plan-1",
		Goal: "poster with slogan",
		Steps: []model.Step{
			{ID: "step-1", Index: 0, Type: model.TaskTypeText,
				Input: map[string]any{"prompt": "write a slogan"}},
			{ID: "step-2", Index: 1, Type: model.TaskTypeImage,
				Input:     map[string]any{"prompt": "{{step-1.text}} on a poster"},
				DependsOn: []string{"step-1"}},
		},
	}
}

func TestChain_RunsStepsInOrderAndFeedsOutputs(t *testing.T) {
	router := newScriptedRouter(func(req TaskRequest) (map[string]any, error) {
		if req.Type == model.TaskTypeText {
			return map[string]any{"text": "Brewed Awakening"}, nil
		}
		return map[string]any{"images": []string{"https://img/1.png"}}, nil
	})
	exec := newTestExecutor(router)

	results, err := exec.Execute(context.Background(), "u1", copyChainPlan())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for i, res := range results {
		if res.Status != model.TaskStatusSuccess {
			t.Fatalf("step %d failed: %s", i, res.Error)
		}
	}

	// The media step must see the placeholder substituted and the
	// upstream result attached under the dependency's step id.
	if len(router.routed) != 2 {
		t.Fatalf("routed = %d tasks, want 2", len(router.routed))
	}
	mediaInput := router.routed[1].Input
	if got := mediaInput["prompt"]; got != "Brewed Awakening on a poster" {
		t.Fatalf("placeholder not substituted: %v", got)
	}
	dep, ok := mediaInput["step-1"].(map[string]any)
	if !ok || dep["text"] != "Brewed Awakening" {
		t.Fatalf("upstream output not attached: %v", mediaInput["step-1"])
	}
}

func TestChain_AbortsOnFirstFailure(t *testing.T) {
	router := newScriptedRouter(func(req TaskRequest) (map[string]any, error) {
		if req.Type == model.TaskTypeText {
			return nil, errors.New("provider said no")
		}
		return map[string]any{"images": []string{"x"}}, nil
	})
	exec := newTestExecutor(router)

	results, err := exec.Execute(context.Background(), "u1", copyChainPlan())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Status != model.TaskStatusFailed || results[0].Error != "provider said no" {
		t.Fatalf("first result = %+v", results[0])
	}
	if !results[1].Skipped {
		t.Fatalf("second step should be skipped, got %+v", results[1])
	}
	if len(router.routed) != 1 {
		t.Fatalf("downstream step was dispatched after failure: %d routed", len(router.routed))
	}
}

func TestChain_StepTimeout(t *testing.T) {
	router := newScriptedRouter(nil)
	router.hang = true
	exec := newTestExecutor(router)

	results, err := exec.Execute(context.Background(), "u1", copyChainPlan())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if results[0].Status != model.TaskStatusFailed {
		t.Fatalf("hung step result = %+v", results[0])
	}
	if !strings.Contains(results[0].Error, "wait budget") {
		t.Fatalf("timeout error missing: %+v", results[0])
	}
	if !results[1].Skipped {
		t.Fatalf("steps after timeout should be skipped")
	}
}

func TestChain_RejectsInvalidPlan(t *testing.T) {
	exec := newTestExecutor(newScriptedRouter(nil))
	plan := &model.Plan{
		ID: "bad",
		Steps: []model.Step{
			{ID: "step-1", Index: 0, Type: model.TaskTypeText,
				Input:     map[string]any{"prompt": "x"},
				DependsOn: []string{"step-2"}},
			{ID: "step-2", Index: 1, Type: model.TaskTypeText,
				Input: map[string]any{"prompt": "y"}},
		},
	}
	_, err := exec.Execute(context.Background(), "u1", plan)
	if !errors.Is(err, domain.ErrInvalidPlan) {
		t.Fatalf("err = %v, want ErrInvalidPlan", err)
	}
}

func TestChain_PriorityFromPreferences(t *testing.T) {
	router := newScriptedRouter(func(req TaskRequest) (map[string]any, error) {
		return map[string]any{"text": "ok"}, nil
	})
	exec := newTestExecutor(router)

	plan := copyChainPlan()
	plan.Preferences = model.Preferences{Priority: "urgent"}
	if _, err := exec.Execute(context.Background(), "u1", plan); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for i, req := range router.routed {
		if req.Priority != model.PriorityUrgent {
			t.Fatalf("routed[%d] priority = %v, want urgent", i, req.Priority)
		}
	}
}
