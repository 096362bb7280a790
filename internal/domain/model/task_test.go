package model

import (
	"testing"
	"time"
)

func TestTask_TerminalStatesAreFinal(t *testing.T) {
	now := time.Now()
	task := &Task{ID: "t1", Status: TaskStatusPending}

	if !task.MarkRunning(now) {
		t.Fatal("pending task should start")
	}
	if !task.Complete(map[string]any{"text": "ok"}, now) {
		t.Fatal("running task should complete")
	}
	if task.Progress != 100 {
		t.Fatalf("progress = %d, want 100 on success", task.Progress)
	}

	// Every further transition must be a no-op.
	if task.Complete(map[string]any{"text": "again"}, now) {
		t.Fatal("duplicate completion applied")
	}
	if task.Fail("late failure", now) {
		t.Fatal("failure applied to a succeeded task")
	}
	if task.MarkRunning(now) {
		t.Fatal("terminal task restarted")
	}
	if task.ResultData["text"] != "ok" {
		t.Fatalf("result overwritten: %v", task.ResultData)
	}
}

func TestTask_MarkRunningOnlyFromPending(t *testing.T) {
	now := time.Now()
	task := &Task{ID: "t1", Status: TaskStatusRunning}
	if task.MarkRunning(now) {
		t.Fatal("running task marked running twice")
	}
}

func TestTask_ProgressNeverDecreases(t *testing.T) {
	now := time.Now()
	task := &Task{ID: "t1", Status: TaskStatusPending}
	task.SetProgress(50) // not running yet
	if task.Progress != 0 {
		t.Fatalf("progress set before start: %d", task.Progress)
	}

	task.MarkRunning(now)
	task.SetProgress(40)
	task.SetProgress(20)
	if task.Progress != 40 {
		t.Fatalf("progress regressed: %d", task.Progress)
	}
	task.SetProgress(150)
	if task.Progress != 100 {
		t.Fatalf("progress exceeded 100: %d", task.Progress)
	}
}

func TestParsePriorityRoundTrip(t *testing.T) {
	for _, p := range []TaskPriority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent} {
		if got := ParsePriority(p.String()); got != p {
			t.Errorf("ParsePriority(%q) = %v, want %v", p.String(), got, p)
		}
	}
	if got := ParsePriority("whatever"); got != PriorityNormal {
		t.Errorf("unknown priority should default to normal, got %v", got)
	}
}

func TestPlanValidate(t *testing.T) {
	valid := &Plan{ID: "p1", Steps: []Step{
		{ID: "step-1", Index: 0, Type: TaskTypeText},
		{ID: "step-2", Index: 1, Type: TaskTypeImage, DependsOn: []string{"step-1"}},
	}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}

	cases := []struct {
		name string
		plan *Plan
	}{
		{"empty", &Plan{ID: "p"}},
		{"forward dep", &Plan{ID: "p", Steps: []Step{
			{ID: "step-1", Type: TaskTypeText, DependsOn: []string{"step-2"}},
			{ID: "step-2", Type: TaskTypeText},
		}}},
		{"self dep", &Plan{ID: "p", Steps: []Step{
			{ID: "step-1", Type: TaskTypeText, DependsOn: []string{"step-1"}},
		}}},
		{"duplicate id", &Plan{ID: "p", Steps: []Step{
			{ID: "step-1", Type: TaskTypeText},
			{ID: "step-1", Type: TaskTypeText},
		}}},
		{"unknown type", &Plan{ID: "p", Steps: []Step{
			{ID: "step-1", Type: TaskType("hologram")},
		}}},
	}
	for _, tc := range cases {
		if err := tc.plan.Validate(); err == nil {
			t.Errorf("%s: invalid plan accepted", tc.name)
		}
	}
}
