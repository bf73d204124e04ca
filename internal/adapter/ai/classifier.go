// Package ai implements the classification client against an
// OpenAI-compatible chat-completions endpoint.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/stackcity/stackcity/internal/port"
)

// systemPrompt is the wire contract with the classification service. The
// response schema must match what the validator and store expect, so treat
// changes here as a protocol change.
const systemPrompt = `You are a technology stack classifier. You receive a JSON object describing a source repository:
- "found_files": the file paths that were extracted as evidence
- "all_dependency_names": every dependency name declared in any manifest in the repository
- "file_contents": the prioritized file contents

Identify the technologies in use and respond with ONLY a JSON object of this exact shape:
{"components":[{"name":string,"type":string,"version":string|null,"confidence":number,"description":string,"evidence":[{"file_path":string,"snippet":string}]}]}

Rules:
- Include a component for every name in "all_dependency_names" where feasible.
- "type" must be one of: language, framework, library, ui_component, state_management, validation, animation, database, cache, ci_cd, tooling, infra, testing, other.
- "confidence" must be between 0 and 1.
- Every "evidence.file_path" must be one of "found_files".
- "snippet" is the short excerpt that justifies the detection.
- No markdown, no prose, JSON only.`

// ClassifierConfig configures the external classification endpoint.
type ClassifierConfig struct {
	BaseURL string // OpenAI-compatible base URL, default api.openai.com
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAIClassifier implements port.Classifier via go-openai.
type OpenAIClassifier struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClassifier creates a classification client.
func NewOpenAIClassifier(cfg ClassifierConfig) *OpenAIClassifier {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClassifier{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// Classify sends the evidence pack and decodes the component list. Transport
// failures, empty responses, and schema violations all surface as errors; the
// orchestrator turns them into a job failure.
func (c *OpenAIClassifier) Classify(ctx context.Context, pack port.EvidencePack) ([]port.RawComponent, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(pack)
	if err != nil {
		return nil, fmt.Errorf("classification: encode evidence pack: %w", err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("classification request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("classification: empty response")
	}

	return decodeComponents(resp.Choices[0].Message.Content)
}

// decodeComponents parses the model output into raw components, tolerating a
// markdown code fence around the JSON.
func decodeComponents(content string) ([]port.RawComponent, error) {
	content = stripCodeFence(content)

	var out struct {
		Components []port.RawComponent `json:"components"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("classification: decode response: %w", err)
	}
	return out.Components, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
