package model

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Provider names accepted as model identifier prefixes.
const (
	ProviderAnthropic  = anthropicProvider
	ProviderOpenAI     = openAIProvider
	ProviderGemini     = geminiProvider
	ProviderOpenRouter = openRouterProvider
)

// Router dispatches "provider:model" identifiers to registered backends.
// Identifiers without a registered prefix go to the default provider
// unchanged, so OpenRouter ids such as "vendor/model:free" route correctly.
type Router struct {
	mu              sync.RWMutex
	backends        map[string]Caller
	defaultProvider string
}

// NewRouter creates a router with the given default provider.
func NewRouter(defaultProvider string) *Router {
	return &Router{
		backends:        make(map[string]Caller),
		defaultProvider: defaultProvider,
	}
}

// Register adds or replaces the backend for a provider name.
func (r *Router) Register(provider string, c Caller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[provider] = c
}

// Providers returns the registered provider names, sorted.
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve splits an identifier into its backend and backend-local model id.
func (r *Router) Resolve(id string) (Caller, string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, "", ErrEmptyModel
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if prefix, rest, ok := strings.Cut(id, ":"); ok {
		if c, found := r.backends[prefix]; found {
			if rest == "" {
				return nil, "", ErrEmptyModel
			}
			return c, rest, nil
		}
	}
	c, found := r.backends[r.defaultProvider]
	if !found {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownProvider, r.defaultProvider)
	}
	return c, id, nil
}

// Call implements Caller.
func (r *Router) Call(ctx context.Context, system, user, model string, opts Options) (string, error) {
	c, local, err := r.Resolve(model)
	if err != nil {
		return "", err
	}
	return c.Call(ctx, system, user, local, opts)
}

// Endpoint configures one backend.
type Endpoint struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

func (e Endpoint) options() []Option {
	return []Option{WithAPIKey(e.APIKey), WithBaseURL(e.BaseURL), WithTimeout(e.Timeout)}
}

// RouterConfig describes every backend a Router should carry.
type RouterConfig struct {
	Default    string
	Anthropic  Endpoint
	OpenAI     Endpoint
	Gemini     Endpoint
	OpenRouter Endpoint
	Candidates Candidates
	// Catalog backs the AutoFree alias when Candidates lists no models. Nil
	// disables catalog lookups.
	Catalog *Catalog
}

// NewRouterFromConfig builds a Router with all four backends registered.
// Backends without credentials are still registered and fail per call.
func NewRouterFromConfig(cfg RouterConfig) *Router {
	r := NewRouter(cfg.Default)
	r.Register(ProviderAnthropic, NewAnthropic(cfg.Anthropic.options()...))
	r.Register(ProviderOpenAI, NewOpenAI(cfg.OpenAI.options()...))
	r.Register(ProviderGemini, NewGemini(cfg.Gemini.options()...))
	r.Register(ProviderOpenRouter, NewOpenRouter(cfg.OpenRouter.options(),
		WithCandidates(cfg.Candidates),
		WithCatalog(cfg.Catalog),
	))
	return r
}
