package model

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	// OpenAIKeyEnv is the environment variable holding the OpenAI API key.
	OpenAIKeyEnv = "OPENAI_API_KEY"

	openAIBaseURL  = "https://api.openai.com"
	openAIProvider = "openai"
)

var openAIReasoningModel = regexp.MustCompile(`^(?:o[1-9]|gpt-5)`)

// openAISearchModel matches the chat models that accept web_search_options.
var openAISearchModel = regexp.MustCompile(`-search(?:-|$)`)

// OpenAI calls the Chat Completions API.
type OpenAI struct {
	client
}

// NewOpenAI creates an OpenAI backend. The API key defaults to OPENAI_API_KEY.
func NewOpenAI(opts ...Option) *OpenAI {
	return &OpenAI{client: newClient(OpenAIKeyEnv, openAIBaseURL, opts)}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	Temperature      *float64      `json:"temperature,omitempty"`
	ReasoningEffort  string        `json:"reasoning_effort,omitempty"`
	WebSearchOptions *struct{}     `json:"web_search_options,omitempty"`
}

// chatResponse is the choices envelope shared by OpenAI-compatible APIs.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *chatError `json:"error,omitempty"`
}

type chatError struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Call implements Caller.
func (o *OpenAI) Call(ctx context.Context, system, user, model string, opts Options) (string, error) {
	if o.apiKey == "" {
		return "", ErrMissingCredentials
	}
	if model == "" {
		return "", ErrEmptyModel
	}

	data, err := o.postJSON(ctx, openAIProvider, o.baseURL+"/v1/chat/completions", map[string]string{
		"Authorization": "Bearer " + o.apiKey,
	}, buildOpenAIRequest(system, user, model, opts))
	if err != nil {
		return "", err
	}
	return parseChatResponse(openAIProvider, data)
}

func buildOpenAIRequest(system, user, model string, opts Options) openAIRequest {
	req := openAIRequest{
		Model:       model,
		Messages:    chatMessages(system, user),
		Temperature: opts.Temperature,
	}
	if openAIReasoningModel.MatchString(model) {
		req.Temperature = nil
		if opts.Effort.enabled() {
			req.ReasoningEffort = string(opts.Effort)
		}
	}
	if opts.WebSearch && openAISearchModel.MatchString(model) {
		req.WebSearchOptions = &struct{}{}
	}
	return req
}

func chatMessages(system, user string) []chatMessage {
	var msgs []chatMessage
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	return append(msgs, chatMessage{Role: "user", Content: user})
}

// parseChatResponse concatenates the content of every choice. Content may be
// a string or an array of typed parts.
func parseChatResponse(provider string, data []byte) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != nil {
		apiErr := &APIError{Provider: provider, Status: 200, Message: resp.Error.Message}
		if resp.Error.Code != nil {
			apiErr.Code = fmt.Sprint(resp.Error.Code)
		}
		return "", apiErr
	}

	var sb strings.Builder
	for _, choice := range resp.Choices {
		sb.WriteString(contentText(choice.Message.Content))
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrNoText
	}
	return sb.String(), nil
}

func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range parts {
		if p.Type == "text" || p.Type == "output_text" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}
