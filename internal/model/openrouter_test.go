package model

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"
)

func modelsTried(fb *fakeBackend) []string {
	var out []string
	for _, r := range fb.Requests() {
		if m, ok := r.Body["model"].(string); ok {
			out = append(out, m)
		}
	}
	return out
}

func TestOpenRouter_FallbackOrder(t *testing.T) {
	fb := newFakeBackend(t, func(r recordedRequest) (int, string) {
		switch r.Body["model"] {
		case "B":
			return http.StatusTooManyRequests, `{"error":{"message":"Rate limit exceeded"}}`
		case "C":
			return http.StatusOK, `{"choices":[{"message":{"content":"from C"}}]}`
		default:
			return http.StatusOK, `{"choices":[{"message":{"content":"unexpected"}}]}`
		}
	})

	o := NewOpenRouter([]Option{WithAPIKey("or-key"), WithBaseURL(fb.URL())}, WithCandidates(Candidates{
		FreeRank: []string{"A", "B", "C"},
		Enabled:  []string{"B", "C"},
	}))

	text, err := o.Call(context.Background(), "", "u", AutoFree, Options{})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if text != "from C" {
		t.Errorf("text = %q", text)
	}
	if got := modelsTried(fb); !reflect.DeepEqual(got, []string{"B", "C"}) {
		t.Errorf("call sequence = %v, want [B C]", got)
	}
}

func TestOpenRouter_NonRetryableStops(t *testing.T) {
	fb := newFakeBackend(t, func(r recordedRequest) (int, string) {
		return http.StatusBadRequest, `{"error":{"message":"invalid request"}}`
	})
	o := NewOpenRouter([]Option{WithAPIKey("k"), WithBaseURL(fb.URL())}, WithCandidates(Candidates{
		SelectedFree: []string{"X", "Y"},
	}))

	if _, err := o.Call(context.Background(), "", "u", AutoFree, Options{}); err == nil {
		t.Fatal("expected error")
	}
	if got := modelsTried(fb); !reflect.DeepEqual(got, []string{"X"}) {
		t.Errorf("call sequence = %v, want [X]", got)
	}
}

func TestOpenRouter_Exhausted(t *testing.T) {
	fb := newFakeBackend(t, func(recordedRequest) (int, string) {
		return http.StatusOK, `{"error":{"code":429,"message":"Provider returned error"}}`
	})
	o := NewOpenRouter([]Option{WithAPIKey("k"), WithBaseURL(fb.URL())}, WithCandidates(Candidates{
		FreeRank: []string{"X", "Y", "X"},
	}))

	_, err := o.Call(context.Background(), "", "u", AutoFree, Options{})
	if !errors.Is(err, ErrCandidatesExhausted) {
		t.Fatalf("err = %v, want ErrCandidatesExhausted", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "429" {
		t.Errorf("expected last APIError in chain, got %v", err)
	}
	if got := modelsTried(fb); !reflect.DeepEqual(got, []string{"X", "Y"}) {
		t.Errorf("call sequence = %v, want deduplicated [X Y]", got)
	}
}

func TestOpenRouter_ConcreteModelSingleAttempt(t *testing.T) {
	fb := newFakeBackend(t, func(recordedRequest) (int, string) {
		return http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`
	})
	o := NewOpenRouter([]Option{WithAPIKey("k"), WithBaseURL(fb.URL())}, WithCandidates(Candidates{
		FreeRank: []string{"X", "Y"},
	}))

	_, err := o.Call(context.Background(), "", "u", "meta-llama/llama-3.3-70b-instruct:free", Options{})
	if !IsRetryable(err) {
		t.Fatalf("err = %v, want retryable", err)
	}
	if n := len(fb.Requests()); n != 1 {
		t.Errorf("requests = %d, want exactly 1", n)
	}
}

func TestOpenRouter_NoCandidates(t *testing.T) {
	o := NewOpenRouter([]Option{WithAPIKey("k")}, WithCandidates(Candidates{
		FreeRank: []string{"A"},
		Enabled:  []string{"B"},
	}))
	_, err := o.Call(context.Background(), "", "u", AutoFree, Options{})
	if !errors.Is(err, ErrCandidatesExhausted) {
		t.Errorf("err = %v, want ErrCandidatesExhausted", err)
	}
}

func TestOpenRouter_ChainFromCatalog(t *testing.T) {
	fb := newFakeBackend(t, ok(catalogFixture))
	catalog := NewCatalog(time.Minute, WithBaseURL(fb.URL()))
	o := NewOpenRouter([]Option{WithAPIKey("k")}, WithCatalog(catalog), WithCandidates(Candidates{
		Enabled: []string{"small:free", "big/model"},
	}))

	chain, err := o.Chain(context.Background())
	if err != nil {
		t.Fatalf("Chain failed: %v", err)
	}
	if !reflect.DeepEqual(chain, []string{"big/model", "small:free"}) {
		t.Errorf("chain = %v", chain)
	}
}

func TestOpenRouter_RequestShape(t *testing.T) {
	fb := newFakeBackend(t, ok(`{"choices":[{"message":{"content":"ok"}}]}`))
	o := NewOpenRouter([]Option{WithAPIKey("or-key"), WithBaseURL(fb.URL())})

	if _, err := o.Call(context.Background(), "sys", "u", "anthropic/claude-sonnet-4", Options{Effort: EffortHigh, WebSearch: true}); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	req := fb.last(t)
	if req.Path != "/api/v1/chat/completions" {
		t.Errorf("path = %s", req.Path)
	}
	if req.Header.Get("Authorization") != "Bearer or-key" || req.Header.Get("X-Title") != openRouterTitle {
		t.Errorf("headers = %v", req.Header)
	}
	reasoning, _ := req.Body["reasoning"].(map[string]any)
	if reasoning["effort"] != "high" {
		t.Errorf("reasoning = %v", req.Body["reasoning"])
	}
	plugins, _ := req.Body["plugins"].([]any)
	if len(plugins) != 1 || !strings.EqualFold(plugins[0].(map[string]any)["id"].(string), "web") {
		t.Errorf("plugins = %v", req.Body["plugins"])
	}
}
