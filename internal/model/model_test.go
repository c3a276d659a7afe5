package model

import (
	"context"
	"fmt"
	"testing"
)

func TestParseEffort(t *testing.T) {
	tests := []struct {
		in      string
		want    Effort
		wantErr bool
	}{
		{"", EffortNone, false},
		{"none", EffortNone, false},
		{"LOW", EffortLow, false},
		{" medium ", EffortMedium, false},
		{"high", EffortHigh, false},
		{"extreme", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEffort(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEffort(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseEffort(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAPIError_IsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want bool
	}{
		{"429 status", &APIError{Status: 429, Message: "slow down"}, true},
		{"429 code in body", &APIError{Status: 200, Code: "429", Message: "upstream"}, true},
		{"rate limit phrasing", &APIError{Status: 503, Message: "Rate limit exceeded for model"}, true},
		{"rate_limit_error", &APIError{Status: 400, Message: "rate_limit_error"}, true},
		{"quota phrasing", &APIError{Status: 403, Message: "You exceeded your current quota"}, true},
		{"resource exhausted", &APIError{Status: 400, Message: "RESOURCE_EXHAUSTED"}, true},
		{"bad request", &APIError{Status: 400, Message: "invalid model"}, false},
		{"server error", &APIError{Status: 500, Message: "internal"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.IsRetryable(); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
			if got := IsRetryable(fmt.Errorf("wrapped: %w", tt.err)); got != tt.want {
				t.Errorf("IsRetryable(wrapped) = %v, want %v", got, tt.want)
			}
		})
	}

	if IsRetryable(ErrNoText) {
		t.Error("ErrNoText should not be retryable")
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Provider: "openrouter", Status: 200, Code: "429", Message: "busy"}
	want := "openrouter API error (status 200, code 429): busy"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCallerFunc(t *testing.T) {
	var f Caller = CallerFunc(func(_ context.Context, system, user, model string, _ Options) (string, error) {
		return system + user + model, nil
	})
	got, err := f.Call(context.Background(), "s", "u", "m", Options{})
	if err != nil || got != "sum" {
		t.Errorf("Call() = %q, %v", got, err)
	}
}
