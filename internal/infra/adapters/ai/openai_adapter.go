package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ai-task-orchestrator/internal/domain/model"
	"ai-task-orchestrator/internal/domain/ports/adapter"
	"ai-task-orchestrator/internal/retry"
)

var _ adapter.AIProviderAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter talks to the OpenAI REST API or any OpenAI-compatible
// gateway (configurable base URL). Text-style tasks go through chat
// completions, images through the images endpoint, audio through speech.
type OpenAIAdapter struct {
	apiKey string
	base   string // e.g., https://api.openai.com/v1
	model  string
	client *http.Client
}

func NewOpenAIAdapter(apiKey, baseURL, defaultModel string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	return &OpenAIAdapter{
		apiKey: apiKey,
		base:   baseURL,
		model:  defaultModel,
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (o *OpenAIAdapter) Name() string { return "openai" }

func (o *OpenAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{o.model}, nil
}

func (o *OpenAIAdapter) Generate(ctx context.Context, typ model.TaskType, req adapter.Request) (*adapter.Result, error) {
	if req.Model == "" {
		req.Model = o.model
	}
	switch typ {
	case model.TaskTypeText, model.TaskTypeCode, model.TaskTypeDocument, model.TaskTypeComposite:
		return o.chat(ctx, req)
	case model.TaskTypeImage:
		return o.image(ctx, req)
	case model.TaskTypeAudio:
		return o.speech(ctx, req)
	case model.TaskTypeVideo:
		return nil, fmt.Errorf("openai: video generation not supported")
	default:
		return nil, fmt.Errorf("openai: unsupported task type %q", typ)
	}
}

func (o *OpenAIAdapter) chat(ctx context.Context, req adapter.Request) (*adapter.Result, error) {
	msgs := messagesFromInput(req.Input)
	if len(msgs) == 0 {
		return nil, errors.New("openai: empty prompt")
	}

	body := struct {
		Model    string            `json:"model"`
		Messages []adapter.Message `json:"messages"`
	}{Model: req.Model, Messages: msgs}

	var payload struct {
		Choices []struct {
			Message adapter.Message `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := o.post(ctx, "/chat/completions", body, &payload); err != nil {
		return nil, err
	}

	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return &adapter.Result{
				Data: map[string]any{"text": c.Message.Content},
				Usage: adapter.Usage{
					PromptTokens:     payload.Usage.PromptTokens,
					CompletionTokens: payload.Usage.CompletionTokens,
					TotalTokens:      payload.Usage.TotalTokens,
				},
			}, nil
		}
	}
	return nil, errors.New("openai: no choice content")
}

func (o *OpenAIAdapter) image(ctx context.Context, req adapter.Request) (*adapter.Result, error) {
	prompt, _ := req.Input["prompt"].(string)
	if prompt == "" {
		prompt, _ = req.Input["text"].(string)
	}
	if prompt == "" {
		return nil, errors.New("openai: image prompt empty")
	}
	size, _ := req.Input["size"].(string)
	if size == "" {
		size = "1024x1024"
	}

	body := map[string]any{"model": req.Model, "prompt": prompt, "n": 1, "size": size}
	var payload struct {
		Data []struct {
			URL     string `json:"url"`
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := o.post(ctx, "/images/generations", body, &payload); err != nil {
		return nil, err
	}
	if len(payload.Data) == 0 {
		return nil, errors.New("openai: no image returned")
	}

	images := make([]any, 0, len(payload.Data))
	for _, d := range payload.Data {
		if d.URL != "" {
			images = append(images, d.URL)
		} else if d.B64JSON != "" {
			images = append(images, d.B64JSON)
		}
	}
	return &adapter.Result{Data: map[string]any{"images": images, "prompt": prompt}}, nil
}

func (o *OpenAIAdapter) speech(ctx context.Context, req adapter.Request) (*adapter.Result, error) {
	input, _ := req.Input["text"].(string)
	if input == "" {
		input, _ = req.Input["prompt"].(string)
	}
	if input == "" {
		return nil, errors.New("openai: speech input empty")
	}
	voice, _ := req.Input["voice"].(string)
	if voice == "" {
		voice = "alloy"
	}

	body := map[string]any{"model": req.Model, "input": input, "voice": voice}
	b, _ := json.Marshal(body)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/audio/speech", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, &retry.StatusError{Status: resp.StatusCode, Message: fmt.Sprintf("openai http %d", resp.StatusCode)}
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return &adapter.Result{Data: map[string]any{"audio_bytes": buf.Len(), "voice": voice}}, nil
}

func (o *OpenAIAdapter) post(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &retry.StatusError{Status: resp.StatusCode, Message: fmt.Sprintf("openai http %d", resp.StatusCode)}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// messagesFromInput accepts either a plain "prompt"/"text" string or a
// pre-built "messages" list.
func messagesFromInput(input map[string]any) []adapter.Message {
	if raw, ok := input["messages"].([]any); ok {
		out := make([]adapter.Message, 0, len(raw))
		for _, m := range raw {
			mm, ok := m.(map[string]any)
			if !ok {
				continue
			}
			role, _ := mm["role"].(string)
			content, _ := mm["content"].(string)
			if content != "" {
				if role == "" {
					role = "user"
				}
				out = append(out, adapter.Message{Role: role, Content: content})
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	prompt, _ := input["prompt"].(string)
	if prompt == "" {
		prompt, _ = input["text"].(string)
	}
	if prompt == "" {
		return nil
	}
	return []adapter.Message{{Role: "user", Content: prompt}}
}
