package model

import (
	"fmt"
	"strings"
)

// Preferences tune how a plan is built and executed. Zero values mean
// "use the tier default"; the planner merges field-by-field with the
// caller's explicit values winning.
type Preferences struct {
	Budget   string // low | medium | high
	Quality  string // draft | standard | premium
	Speed    string // relaxed | normal | fast
	Priority string // low | normal | high | urgent
}

// Merge overlays explicit caller preferences on top of tier defaults.
func (p Preferences) Merge(override Preferences) Preferences {
	out := p
	if override.Budget != "" {
		out.Budget = override.Budget
	}
	if override.Quality != "" {
		out.Quality = override.Quality
	}
	if override.Speed != "" {
		out.Speed = override.Speed
	}
	if override.Priority != "" {
		out.Priority = override.Priority
	}
	return out
}

// UserProfile is the snapshot of the requesting user the planner works from.
type UserProfile struct {
	ID   string
	Tier string // free | basic | pro | enterprise
}

// Step is one node of a plan. DependsOn may only reference earlier steps,
// so a plan is a DAG by construction.
type Step struct {
	ID        string
	Index     int
	Type      TaskType
	Model     string
	Input     map[string]any
	DependsOn []string
}

// Plan is an immutable ordered DAG of steps derived from a user goal.
type Plan struct {
	ID          string
	Goal        string
	Profile     UserProfile
	Preferences Preferences
	Steps       []Step
}

// Validate checks the DAG invariant: every dependency must name a step
// that appears strictly earlier in the plan.
func (p *Plan) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan %s has no steps", p.ID)
	}
	seen := make(map[string]int, len(p.Steps))
	for i, s := range p.Steps {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("step %d has empty id", i)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("duplicate step id %q", s.ID)
		}
		if !ValidTaskType(s.Type) {
			return fmt.Errorf("step %q has unknown type %q", s.ID, s.Type)
		}
		for _, dep := range s.DependsOn {
			if dep == s.ID {
				return fmt.Errorf("step %q depends on itself", s.ID)
			}
			if _, ok := seen[dep]; !ok {
				return fmt.Errorf("step %q depends on %q which is not an earlier step", s.ID, dep)
			}
		}
		seen[s.ID] = i
	}
	return nil
}

// StepResult is the outcome of one executed (or skipped) step.
type StepResult struct {
	StepID  string
	TaskID  string
	Status  TaskStatus
	Result  map[string]any
	Error   string
	Skipped bool
}
