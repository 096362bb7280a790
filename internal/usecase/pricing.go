package usecase

import (
	"ai-task-orchestrator/internal/config"
	"ai-task-orchestrator/internal/domain/model"

	"github.com/pkoukk/tiktoken-go"
)

// Pricing turns a task request into a credit cost before dispatch.
// Images and videos have flat prices; text-style tasks are priced from an
// estimated prompt token count.
type Pricing struct {
	cfg config.CreditsConfig
	enc *tiktoken.Tiktoken
}

func NewPricing(cfg config.CreditsConfig) *Pricing {
	// cl100k_base covers the gpt-4 family; counting is best-effort and
	// only drives pricing, not provider limits.
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		enc = nil
	}
	return &Pricing{cfg: cfg, enc: enc}
}

func (p *Pricing) Cost(typ model.TaskType, input map[string]any) int64 {
	switch typ {
	case model.TaskTypeImage:
		return p.cfg.ImageCost
	case model.TaskTypeVideo:
		return p.cfg.VideoCost
	case model.TaskTypeAudio:
		return p.cfg.AudioCost
	case model.TaskTypeDocument:
		return p.cfg.DocumentCost
	case model.TaskTypeCode:
		return p.cfg.CodeCost
	case model.TaskTypeText, model.TaskTypeComposite:
		return p.textCost(input)
	default:
		return 0
	}
}

func (p *Pricing) textCost(input map[string]any) int64 {
	prompt, _ := input["prompt"].(string)
	if prompt == "" {
		prompt, _ = input["text"].(string)
	}
	tokens := p.countTokens(prompt)
	cost := int64(tokens/p.cfg.TextTokensPerCredit) + 1
	return cost
}

func (p *Pricing) countTokens(s string) int {
	if s == "" {
		return 0
	}
	if p.enc == nil {
		// rough fallback: ~4 chars per token
		return len(s) / 4
	}
	return len(p.enc.Encode(s, nil, nil))
}
