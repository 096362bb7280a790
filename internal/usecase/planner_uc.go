package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"ai-task-orchestrator/internal/domain"
	"ai-task-orchestrator/internal/domain/model"
)

// PlanRequest carries the high-level goal plus the user snapshot the
// planner derives defaults from.
type PlanRequest struct {
	Goal          string
	Input         map[string]any
	Files         []string
	Profile       model.UserProfile
	Preferences   model.Preferences
	PreferredType model.TaskType
}

// Strategy decomposes a free-text goal into an ordered step sequence.
// It is deliberately replaceable; the default is a keyword heuristic.
type Strategy interface {
	Decompose(goal string, input map[string]any, prefs model.Preferences) ([]model.Step, error)
}

var _ Planner = (*plannerUC)(nil)

type Planner interface {
	Plan(ctx context.Context, req PlanRequest) (*model.Plan, error)
}

type plannerUC struct {
	strategy Strategy
	log      *zerolog.Logger
}

func NewPlanner(strategy Strategy, logger *zerolog.Logger) *plannerUC {
	if strategy == nil {
		strategy = KeywordStrategy{}
	}
	l := logger.With().Str("component", "Planner").Logger()
	return &plannerUC{strategy: strategy, log: &l}
}

// tierDefaults maps a plan tier to its default preferences. Explicit
// caller preferences override these field-by-field.
func tierDefaults(tier string) model.Preferences {
	switch strings.ToLower(tier) {
	case "basic":
		return model.Preferences{Budget: "medium", Quality: "standard", Speed: "normal", Priority: "normal"}
	case "pro":
		return model.Preferences{Budget: "high", Quality: "premium", Speed: "normal", Priority: "high"}
	case "enterprise":
		return model.Preferences{Budget: "high", Quality: "premium", Speed: "fast", Priority: "urgent"}
	default: // free
		return model.Preferences{Budget: "low", Quality: "draft", Speed: "relaxed", Priority: "low"}
	}
}

func (p *plannerUC) Plan(ctx context.Context, req PlanRequest) (*model.Plan, error) {
	goal := strings.TrimSpace(req.Goal)
	if goal == "" && req.PreferredType == "" {
		return nil, fmt.Errorf("%w: goal is empty", domain.ErrInvalidArgument)
	}

	prefs := tierDefaults(req.Profile.Tier).Merge(req.Preferences)

	var steps []model.Step
	if req.PreferredType != "" {
		if !model.ValidTaskType(req.PreferredType) {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTaskType, req.PreferredType)
		}
		input := req.Input
		if input == nil {
			input = map[string]any{"prompt": goal}
		}
		steps = []model.Step{{ID: "step-1", Index: 0, Type: req.PreferredType, Input: input}}
	} else {
		var err error
		steps, err = p.strategy.Decompose(goal, req.Input, prefs)
		if err != nil {
			return nil, err
		}
	}

	plan := &model.Plan{
		ID:          ulid.Make().String(),
		Goal:        goal,
		Profile:     req.Profile,
		Preferences: prefs,
		Steps:       steps,
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPlan, err)
	}

	p.log.Info().Str("chain_id", plan.ID).Int("steps", len(plan.Steps)).
		Str("tier", req.Profile.Tier).Msg("plan built")
	return plan, nil
}

// KeywordStrategy is the default goal decomposition: it looks for media
// keywords and emits a text-refinement step feeding the media step when
// the goal asks for accompanying copy, or a single best-guess step
// otherwise.
type KeywordStrategy struct{}

var (
	imageWords = []string{"image", "picture", "poster", "logo", "illustration", "draw", "art", "photo", "banner"}
	videoWords = []string{"video", "clip", "animation", "film"}
	audioWords = []string{"audio", "voice", "speech", "narration", "song"}
	codeWords  = []string{"code", "function", "script", "program", "implement"}
	docWords   = []string{"document", "report", "essay", "article", "summary"}
	copyWords  = []string{"slogan", "tagline", "caption", "copy", "headline", "description"}
)

func (KeywordStrategy) Decompose(goal string, input map[string]any, prefs model.Preferences) ([]model.Step, error) {
	l := strings.ToLower(goal)

	mediaType := model.TaskType("")
	switch {
	case containsAny(l, videoWords):
		mediaType = model.TaskTypeVideo
	case containsAny(l, imageWords):
		mediaType = model.TaskTypeImage
	case containsAny(l, audioWords):
		mediaType = model.TaskTypeAudio
	}

	// Media goal with a copywriting component: refine the text first,
	// then feed it to the media step.
	if mediaType != "" && containsAny(l, copyWords) {
		textInput := mergeInput(input, map[string]any{
			"prompt": fmt.Sprintf("Write concise, high-impact copy for the following request. Return only the copy itself.\n\nRequest: %s", goal),
		})
		mediaInput := map[string]any{
			"prompt": fmt.Sprintf("{{step-1.text}} — %s", goal),
		}
		return []model.Step{
			{ID: "step-1", Index: 0, Type: model.TaskTypeText, Input: textInput},
			{ID: "step-2", Index: 1, Type: mediaType, Input: mediaInput, DependsOn: []string{"step-1"}},
		}, nil
	}

	if mediaType != "" {
		return []model.Step{{
			ID: "step-1", Index: 0, Type: mediaType,
			Input: mergeInput(input, map[string]any{"prompt": goal}),
		}}, nil
	}

	guess := model.TaskTypeText
	switch {
	case containsAny(l, codeWords):
		guess = model.TaskTypeCode
	case containsAny(l, docWords):
		guess = model.TaskTypeDocument
	}
	return []model.Step{{
		ID: "step-1", Index: 0, Type: guess,
		Input: mergeInput(input, map[string]any{"prompt": goal}),
	}}, nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// mergeInput overlays defaults with the caller's input, caller wins.
func mergeInput(caller, defaults map[string]any) map[string]any {
	out := make(map[string]any, len(caller)+len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range caller {
		out[k] = v
	}
	return out
}
