package model

import (
	"context"
	"errors"
	"testing"
)

func TestGemini_Call(t *testing.T) {
	fb := newFakeBackend(t, ok(`{"candidates":[
		{"content":{"parts":[{"text":"thinking...","thought":true},{"text":"Answer "}]}},
		{"content":{"parts":[{"text":"two"}]}}]}`))

	g := NewGemini(WithAPIKey("g-key"), WithBaseURL(fb.URL()))
	text, err := g.Call(context.Background(), "sys", "user", "models/gemini-2.0-flash", Options{Temperature: Temperature(0.7), WebSearch: true})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if text != "Answer two" {
		t.Errorf("text = %q", text)
	}

	req := fb.last(t)
	if req.Path != "/v1beta/models/gemini-2.0-flash:generateContent" {
		t.Errorf("path = %s", req.Path)
	}
	if req.Header.Get("x-goog-api-key") != "g-key" {
		t.Errorf("missing x-goog-api-key header")
	}
	if _, ok := req.Body["systemInstruction"]; !ok {
		t.Error("expected systemInstruction")
	}
	cfg, _ := req.Body["generationConfig"].(map[string]any)
	if cfg["temperature"] != 0.7 {
		t.Errorf("generationConfig = %v", cfg)
	}
	if _, ok := cfg["thinkingConfig"]; ok {
		t.Error("gemini-2.0 models should not receive a thinking config")
	}
	tools, _ := req.Body["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("tools = %v", req.Body["tools"])
	}
	if _, ok := tools[0].(map[string]any)["google_search"]; !ok {
		t.Errorf("tools = %v", tools)
	}
}

func TestGemini_ThinkingBudget(t *testing.T) {
	tests := []struct {
		name       string
		model      string
		effort     Effort
		wantBudget any
		wantConfig bool
	}{
		{"pro high", "gemini-2.5-pro", EffortHigh, 24576.0, true},
		{"flash low", "gemini-2.5-flash", EffortLow, 1024.0, true},
		{"flash none disables", "gemini-2.5-flash", EffortNone, 0.0, true},
		{"pro none omitted", "gemini-2.5-pro", EffortNone, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend(t, ok(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
			g := NewGemini(WithAPIKey("k"), WithBaseURL(fb.URL()))
			if _, err := g.Call(context.Background(), "", "u", tt.model, Options{Effort: tt.effort}); err != nil {
				t.Fatalf("Call failed: %v", err)
			}
			cfg, _ := fb.last(t).Body["generationConfig"].(map[string]any)
			thinking, ok := cfg["thinkingConfig"].(map[string]any)
			if ok != tt.wantConfig {
				t.Fatalf("thinkingConfig present = %v, want %v (%v)", ok, tt.wantConfig, cfg)
			}
			if ok && thinking["thinkingBudget"] != tt.wantBudget {
				t.Errorf("thinkingBudget = %v, want %v", thinking["thinkingBudget"], tt.wantBudget)
			}
		})
	}
}

func TestGemini_ErrorPayload(t *testing.T) {
	fb := newFakeBackend(t, ok(`{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	_, err := NewGemini(WithAPIKey("k"), WithBaseURL(fb.URL())).Call(context.Background(), "", "u", "gemini-2.5-pro", Options{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 429 || apiErr.Code != "RESOURCE_EXHAUSTED" {
		t.Fatalf("err = %v", err)
	}
	if !IsRetryable(err) {
		t.Error("quota errors should be retryable")
	}
}

func TestGemini_OnlyThoughts(t *testing.T) {
	fb := newFakeBackend(t, ok(`{"candidates":[{"content":{"parts":[{"text":"internal","thought":true}]}}]}`))
	_, err := NewGemini(WithAPIKey("k"), WithBaseURL(fb.URL())).Call(context.Background(), "", "u", "gemini-2.5-pro", Options{})
	if !errors.Is(err, ErrNoText) {
		t.Errorf("err = %v, want ErrNoText", err)
	}
}
