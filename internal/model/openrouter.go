package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/Iron-Ham/conclave/internal/errors"
)

const (
	// OpenRouterKeyEnv is the environment variable holding the OpenRouter API key.
	OpenRouterKeyEnv = "OPENROUTER_API_KEY"

	// AutoFree is the virtual model alias that walks the free-model
	// candidate chain.
	AutoFree = "auto-free"

	openRouterBaseURL  = "https://openrouter.ai"
	openRouterProvider = "openrouter"
	openRouterTitle    = "conclave"
	openRouterReferer  = "https://github.com/Iron-Ham/conclave"
)

// Candidates configures how the AutoFree alias picks concrete models.
type Candidates struct {
	// FreeRank is an explicit, ordered list of known-free model ids.
	FreeRank []string
	// SelectedFree lists free models the user picked, used when FreeRank is empty.
	SelectedFree []string
	// Enabled restricts candidates to these ids. Empty means no restriction.
	Enabled []string
}

// OpenRouter calls the OpenRouter chat completions API. It resolves the
// AutoFree alias to a ranked chain of free models and advances through the
// chain on retryable failures.
type OpenRouter struct {
	client
	candidates Candidates
	catalog    *Catalog
}

// OpenRouterOption configures fallback behaviour.
type OpenRouterOption func(*OpenRouter)

// WithCandidates sets the candidate sources and the enabled filter.
func WithCandidates(c Candidates) OpenRouterOption {
	return func(o *OpenRouter) { o.candidates = c }
}

// WithCatalog sets the catalog consulted when no explicit candidates exist.
func WithCatalog(c *Catalog) OpenRouterOption {
	return func(o *OpenRouter) { o.catalog = c }
}

// NewOpenRouter creates an OpenRouter backend. The API key defaults to
// OPENROUTER_API_KEY.
func NewOpenRouter(opts []Option, orOpts ...OpenRouterOption) *OpenRouter {
	o := &OpenRouter{client: newClient(OpenRouterKeyEnv, openRouterBaseURL, opts)}
	for _, opt := range orOpts {
		opt(o)
	}
	return o
}

type openRouterRequest struct {
	Model       string             `json:"model"`
	Messages    []chatMessage      `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
	Reasoning   *openRouterEffort  `json:"reasoning,omitempty"`
	Plugins     []openRouterPlugin `json:"plugins,omitempty"`
}

type openRouterEffort struct {
	Effort string `json:"effort"`
}

type openRouterPlugin struct {
	ID string `json:"id"`
}

// Call implements Caller. Concrete ids get exactly one attempt.
func (o *OpenRouter) Call(ctx context.Context, system, user, model string, opts Options) (string, error) {
	if o.apiKey == "" {
		return "", ErrMissingCredentials
	}
	if model == "" {
		return "", ErrEmptyModel
	}
	if model != AutoFree {
		return o.attempt(ctx, system, user, model, opts)
	}

	chain, err := o.Chain(ctx)
	if err != nil {
		return "", err
	}
	if len(chain) == 0 {
		return "", fmt.Errorf("%w: no enabled free models", ErrCandidatesExhausted)
	}

	var lastErr error
	for _, candidate := range chain {
		text, err := o.attempt(ctx, system, user, candidate, opts)
		if err == nil {
			return text, nil
		}
		if !errors.IsRetryable(err) {
			return "", fmt.Errorf("candidate %s: %w", candidate, err)
		}
		lastErr = fmt.Errorf("candidate %s: %w", candidate, err)
	}
	return "", fmt.Errorf("%w: %w", ErrCandidatesExhausted, lastErr)
}

// Chain returns the ordered candidate ids the AutoFree alias would try.
func (o *OpenRouter) Chain(ctx context.Context) ([]string, error) {
	source := o.candidates.FreeRank
	if len(source) == 0 {
		source = o.candidates.SelectedFree
	}
	if len(source) == 0 && o.catalog != nil {
		free, err := o.catalog.FreeModels(ctx)
		if err != nil {
			return nil, fmt.Errorf("load free models: %w", err)
		}
		for _, m := range free {
			source = append(source, m.ID)
		}
	}
	return filterCandidates(source, o.candidates.Enabled), nil
}

func filterCandidates(source, enabled []string) []string {
	allow := make(map[string]bool, len(enabled))
	for _, id := range enabled {
		allow[id] = true
	}
	seen := make(map[string]bool, len(source))
	var out []string
	for _, id := range source {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] || (len(allow) > 0 && !allow[id]) {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (o *OpenRouter) attempt(ctx context.Context, system, user, model string, opts Options) (string, error) {
	data, err := o.postJSON(ctx, openRouterProvider, o.baseURL+"/api/v1/chat/completions", map[string]string{
		"Authorization": "Bearer " + o.apiKey,
		"HTTP-Referer":  openRouterReferer,
		"X-Title":       openRouterTitle,
	}, buildOpenRouterRequest(system, user, model, opts))
	if err != nil {
		return "", err
	}
	return parseChatResponse(openRouterProvider, data)
}

func buildOpenRouterRequest(system, user, model string, opts Options) openRouterRequest {
	req := openRouterRequest{
		Model:       model,
		Messages:    chatMessages(system, user),
		Temperature: opts.Temperature,
	}
	if opts.Effort.enabled() {
		req.Reasoning = &openRouterEffort{Effort: string(opts.Effort)}
	}
	if opts.WebSearch {
		req.Plugins = []openRouterPlugin{{ID: "web"}}
	}
	return req
}
