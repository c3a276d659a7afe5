package model

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const (
	// GeminiKeyEnv is the environment variable holding the Gemini API key.
	GeminiKeyEnv = "GEMINI_API_KEY"

	geminiBaseURL  = "https://generativelanguage.googleapis.com"
	geminiProvider = "gemini"
)

var geminiThinkingBudgets = map[Effort]int{
	EffortLow:    1024,
	EffortMedium: 8192,
	EffortHigh:   24576,
}

// Gemini calls the generateContent API.
type Gemini struct {
	client
}

// NewGemini creates a Gemini backend. The API key defaults to GEMINI_API_KEY.
func NewGemini(opts ...Option) *Gemini {
	return &Gemini{client: newClient(GeminiKeyEnv, geminiBaseURL, opts)}
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
	Tools             []geminiTool            `json:"tools,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature    *float64              `json:"temperature,omitempty"`
	ThinkingConfig *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

type geminiThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Call implements Caller.
func (g *Gemini) Call(ctx context.Context, system, user, model string, opts Options) (string, error) {
	if g.apiKey == "" {
		return "", ErrMissingCredentials
	}
	model = strings.TrimPrefix(model, "models/")
	if model == "" {
		return "", ErrEmptyModel
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, url.PathEscape(model))
	data, err := g.postJSON(ctx, geminiProvider, endpoint, map[string]string{
		"x-goog-api-key": g.apiKey,
	}, buildGeminiRequest(system, user, model, opts))
	if err != nil {
		return "", err
	}

	var resp geminiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return "", &APIError{
			Provider: geminiProvider,
			Status:   resp.Error.Code,
			Code:     resp.Error.Status,
			Message:  resp.Error.Message,
		}
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if !part.Thought {
				sb.WriteString(part.Text)
			}
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrNoText
	}
	return sb.String(), nil
}

func buildGeminiRequest(system, user, model string, opts Options) geminiRequest {
	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: user}}}},
	}
	if system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	cfg := &geminiGenerationConfig{Temperature: opts.Temperature}
	if strings.Contains(model, "gemini-2.5") {
		if budget, ok := geminiThinkingBudgets[opts.Effort]; ok {
			cfg.ThinkingConfig = &geminiThinkingConfig{ThinkingBudget: budget}
		} else if opts.Effort == EffortNone && strings.Contains(model, "flash") {
			// Only the flash models accept a zero budget.
			cfg.ThinkingConfig = &geminiThinkingConfig{ThinkingBudget: 0}
		}
	}
	if cfg.Temperature != nil || cfg.ThinkingConfig != nil {
		req.GenerationConfig = cfg
	}

	if opts.WebSearch {
		req.Tools = []geminiTool{{GoogleSearch: &struct{}{}}}
	}
	return req
}
