package model

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestAnthropic_Call(t *testing.T) {
	fb := newFakeBackend(t, ok(`{"type":"message","content":[
		{"type":"thinking","thinking":"hmm"},
		{"type":"text","text":"Hello, "},
		{"type":"server_tool_use","id":"x"},
		{"type":"text","text":"world"}]}`))

	a := NewAnthropic(WithAPIKey("test-key"), WithBaseURL(fb.URL()))
	text, err := a.Call(context.Background(), "be brief", "hi", "claude-3-haiku-20240307", Options{Temperature: Temperature(0.4)})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if text != "Hello, world" {
		t.Errorf("text = %q", text)
	}

	req := fb.last(t)
	if req.Path != "/v1/messages" {
		t.Errorf("path = %s", req.Path)
	}
	if req.Header.Get("x-api-key") != "test-key" || req.Header.Get("anthropic-version") != anthropicVersion {
		t.Errorf("missing auth headers: %v", req.Header)
	}
	if req.Body["system"] != "be brief" || req.Body["temperature"] != 0.4 {
		t.Errorf("body = %v", req.Body)
	}
	if _, ok := req.Body["thinking"]; ok {
		t.Error("non-thinking model should not send a thinking block")
	}
}

func TestAnthropic_EffortAndWebSearch(t *testing.T) {
	tests := []struct {
		name       string
		model      string
		effort     Effort
		wantBudget float64
	}{
		{"low", "claude-sonnet-4-5", EffortLow, 2048},
		{"medium", "claude-opus-4-1", EffortMedium, 8192},
		{"high", "claude-3-7-sonnet-latest", EffortHigh, 16384},
		{"none", "claude-sonnet-4-5", EffortNone, 0},
		{"unsupported model", "claude-3-haiku-20240307", EffortHigh, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend(t, ok(`{"content":[{"type":"text","text":"ok"}]}`))
			a := NewAnthropic(WithAPIKey("k"), WithBaseURL(fb.URL()))

			_, err := a.Call(context.Background(), "", "u", tt.model, Options{
				Effort:      tt.effort,
				Temperature: Temperature(0.9),
				WebSearch:   true,
			})
			if err != nil {
				t.Fatalf("Call failed: %v", err)
			}

			body := fb.last(t).Body
			thinking, hasThinking := body["thinking"].(map[string]any)
			if tt.wantBudget == 0 {
				if hasThinking {
					t.Errorf("unexpected thinking block: %v", thinking)
				}
				if body["temperature"] != 0.9 {
					t.Errorf("temperature = %v, want 0.9", body["temperature"])
				}
			} else {
				if !hasThinking || thinking["budget_tokens"] != tt.wantBudget {
					t.Errorf("thinking = %v, want budget %v", body["thinking"], tt.wantBudget)
				}
				if _, ok := body["temperature"]; ok {
					t.Error("temperature must be dropped when thinking is enabled")
				}
				if body["max_tokens"].(float64) <= tt.wantBudget {
					t.Errorf("max_tokens %v must exceed budget", body["max_tokens"])
				}
			}

			tools, _ := body["tools"].([]any)
			if len(tools) != 1 || tools[0].(map[string]any)["type"] != "web_search_20250305" {
				t.Errorf("tools = %v", body["tools"])
			}
		})
	}
}

func TestAnthropic_Failures(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		t.Setenv(AnthropicKeyEnv, "")
		_, err := NewAnthropic().Call(context.Background(), "", "u", "claude", Options{})
		if !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("err = %v, want ErrMissingCredentials", err)
		}
	})

	t.Run("key from environment", func(t *testing.T) {
		t.Setenv(AnthropicKeyEnv, "env-key")
		if NewAnthropic().apiKey != "env-key" {
			t.Error("expected API key from environment")
		}
	})

	t.Run("empty model", func(t *testing.T) {
		_, err := NewAnthropic(WithAPIKey("k")).Call(context.Background(), "", "u", "", Options{})
		if !errors.Is(err, ErrEmptyModel) {
			t.Errorf("err = %v, want ErrEmptyModel", err)
		}
	})

	t.Run("non-2xx", func(t *testing.T) {
		fb := newFakeBackend(t, func(recordedRequest) (int, string) {
			return http.StatusTooManyRequests, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`
		})
		_, err := NewAnthropic(WithAPIKey("k"), WithBaseURL(fb.URL())).Call(context.Background(), "", "u", "claude", Options{})
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != 429 || apiErr.Message != "slow down" {
			t.Fatalf("err = %v", err)
		}
		if !IsRetryable(err) {
			t.Error("429 should be retryable")
		}
	})

	t.Run("error payload", func(t *testing.T) {
		fb := newFakeBackend(t, ok(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
		_, err := NewAnthropic(WithAPIKey("k"), WithBaseURL(fb.URL())).Call(context.Background(), "", "u", "claude", Options{})
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Code != "overloaded_error" {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("no text", func(t *testing.T) {
		fb := newFakeBackend(t, ok(`{"content":[{"type":"tool_use"}]}`))
		_, err := NewAnthropic(WithAPIKey("k"), WithBaseURL(fb.URL())).Call(context.Background(), "", "u", "claude", Options{})
		if !errors.Is(err, ErrNoText) {
			t.Errorf("err = %v, want ErrNoText", err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		fb := newFakeBackend(t, ok(`not json`))
		text, err := NewAnthropic(WithAPIKey("k"), WithBaseURL(fb.URL())).Call(context.Background(), "", "u", "claude", Options{})
		if err == nil || text != "" {
			t.Errorf("Call() = %q, %v; want error", text, err)
		}
	})
}
