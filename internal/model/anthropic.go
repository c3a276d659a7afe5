package model

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	// AnthropicKeyEnv is the environment variable holding the Anthropic API key.
	AnthropicKeyEnv = "ANTHROPIC_API_KEY"

	anthropicBaseURL   = "https://api.anthropic.com"
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 8192
	anthropicProvider  = "anthropic"
)

// thinkingBudgets maps effort to extended-thinking token budgets.
var thinkingBudgets = map[Effort]int{
	EffortLow:    2048,
	EffortMedium: 8192,
	EffortHigh:   16384,
}

var anthropicThinkingModel = regexp.MustCompile(`claude-(?:3-7-sonnet|(?:opus|sonnet|haiku)-4|4)`)

// Anthropic calls the Messages API.
type Anthropic struct {
	client
}

// NewAnthropic creates an Anthropic backend. The API key defaults to
// ANTHROPIC_API_KEY.
func NewAnthropic(opts ...Option) *Anthropic {
	return &Anthropic{client: newClient(AnthropicKeyEnv, anthropicBaseURL, opts)}
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
	Thinking    *anthropicThinking `json:"thinking,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type anthropicTool struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	MaxUses int    `json:"max_uses,omitempty"`
}

type anthropicResponse struct {
	Type    string                  `json:"type"`
	Content []anthropicContentBlock `json:"content"`
	Error   *anthropicError         `json:"error,omitempty"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Call implements Caller.
func (a *Anthropic) Call(ctx context.Context, system, user, model string, opts Options) (string, error) {
	if a.apiKey == "" {
		return "", ErrMissingCredentials
	}
	if model == "" {
		return "", ErrEmptyModel
	}

	data, err := a.postJSON(ctx, anthropicProvider, a.baseURL+"/v1/messages", map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}, buildAnthropicRequest(system, user, model, opts))
	if err != nil {
		return "", err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Type == "error" || resp.Error != nil {
		apiErr := &APIError{Provider: anthropicProvider, Status: 200}
		if resp.Error != nil {
			apiErr.Code = resp.Error.Type
			apiErr.Message = resp.Error.Message
		}
		return "", apiErr
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrNoText
	}
	return sb.String(), nil
}

func buildAnthropicRequest(system, user, model string, opts Options) anthropicRequest {
	req := anthropicRequest{
		Model:       model,
		MaxTokens:   anthropicMaxTokens,
		System:      system,
		Messages:    []anthropicMessage{{Role: "user", Content: user}},
		Temperature: opts.Temperature,
	}

	if budget, ok := thinkingBudgets[opts.Effort]; ok && anthropicThinkingModel.MatchString(model) {
		req.Thinking = &anthropicThinking{Type: "enabled", BudgetTokens: budget}
		req.MaxTokens = budget + anthropicMaxTokens
		// Extended thinking rejects any temperature other than the default.
		req.Temperature = nil
	}

	if opts.WebSearch {
		req.Tools = []anthropicTool{{Type: "web_search_20250305", Name: "web_search", MaxUses: 5}}
	}
	return req
}
