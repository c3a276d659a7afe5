package model

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/spf13/cast"
)

// DefaultCatalogTTL is how long a fetched model list is reused.
const DefaultCatalogTTL = 30 * time.Minute

const catalogKey = "models"

// CatalogModel is one entry of the OpenRouter model list.
type CatalogModel struct {
	ID            string
	Name          string
	ContextLength int
	Free          bool
}

// Catalog lists OpenRouter models and caches the result.
type Catalog struct {
	client
	cache *expirable.LRU[string, []CatalogModel]
}

// NewCatalog creates a catalog whose results live for ttl. The models
// endpoint does not require an API key, so a missing key is not an error.
func NewCatalog(ttl time.Duration, opts ...Option) *Catalog {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &Catalog{
		client: newClient(OpenRouterKeyEnv, openRouterBaseURL, opts),
		cache:  expirable.NewLRU[string, []CatalogModel](1, nil, ttl),
	}
}

type catalogResponse struct {
	Data []struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		ContextLength int    `json:"context_length"`
		Pricing       struct {
			Prompt     any `json:"prompt"`
			Completion any `json:"completion"`
		} `json:"pricing"`
	} `json:"data"`
}

// Models returns every listed model, from cache when fresh.
func (c *Catalog) Models(ctx context.Context) ([]CatalogModel, error) {
	if models, ok := c.cache.Get(catalogKey); ok {
		return models, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &APIError{Provider: openRouterProvider, Status: resp.StatusCode, Message: errorMessage(data)}
	}

	var body catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	models := make([]CatalogModel, 0, len(body.Data))
	for _, m := range body.Data {
		models = append(models, CatalogModel{
			ID:            m.ID,
			Name:          m.Name,
			ContextLength: m.ContextLength,
			Free:          isFree(m.ID, m.Pricing.Prompt, m.Pricing.Completion),
		})
	}
	c.cache.Add(catalogKey, models)
	return models, nil
}

// FreeModels returns the free models sorted by descending context length.
func (c *Catalog) FreeModels(ctx context.Context) ([]CatalogModel, error) {
	models, err := c.Models(ctx)
	if err != nil {
		return nil, err
	}
	var free []CatalogModel
	for _, m := range models {
		if m.Free {
			free = append(free, m)
		}
	}
	sort.SliceStable(free, func(i, j int) bool {
		if free[i].ContextLength != free[j].ContextLength {
			return free[i].ContextLength > free[j].ContextLength
		}
		return free[i].ID < free[j].ID
	})
	return free, nil
}

// Purge drops the cached list so the next call refetches.
func (c *Catalog) Purge() {
	c.cache.Purge()
}

// isFree reports whether both prices are zero or the id carries the ":free"
// suffix. Prices arrive as decimal strings.
func isFree(id string, prompt, completion any) bool {
	if strings.HasSuffix(id, ":free") {
		return true
	}
	p, errP := cast.ToFloat64E(prompt)
	q, errQ := cast.ToFloat64E(completion)
	return errP == nil && errQ == nil && prompt != nil && completion != nil && p == 0 && q == 0
}
