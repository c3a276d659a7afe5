// Package model calls generative-model backends through one contract.
//
// Each backend (Anthropic, OpenAI, Gemini, OpenRouter) owns its request and
// response envelope types and maps the shared [Options] onto its own
// parameters. A [Router] dispatches provider-prefixed identifiers such as
// "anthropic:claude-sonnet-4-5" to the right backend.
//
// Calls never panic. Every failure is returned as an error and the text is
// empty; callers treat any error as "no usable output" and log it.
package model

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Iron-Ham/conclave/internal/errors"
)

// Caller invokes a model with a system and user prompt and returns the
// concatenated text of the response.
type Caller interface {
	Call(ctx context.Context, system, user, model string, opts Options) (string, error)
}

// CallerFunc adapts a function to the Caller interface.
type CallerFunc func(ctx context.Context, system, user, model string, opts Options) (string, error)

// Call implements Caller.
func (f CallerFunc) Call(ctx context.Context, system, user, model string, opts Options) (string, error) {
	return f(ctx, system, user, model, opts)
}

// Effort is a coarse reasoning-effort hint. Backends map it to a token
// budget or effort string, or drop it when the model cannot reason.
type Effort string

// Effort levels.
const (
	EffortNone   Effort = "none"
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// ParseEffort validates an effort string. The empty string maps to EffortNone.
func ParseEffort(s string) (Effort, error) {
	switch e := Effort(strings.ToLower(strings.TrimSpace(s))); e {
	case "":
		return EffortNone, nil
	case EffortNone, EffortLow, EffortMedium, EffortHigh:
		return e, nil
	default:
		return "", fmt.Errorf("invalid effort %q: must be one of none, low, medium, high", s)
	}
}

// enabled reports whether the effort asks for any reasoning.
func (e Effort) enabled() bool {
	return e == EffortLow || e == EffortMedium || e == EffortHigh
}

// Options tune a single call.
type Options struct {
	// WebSearch enables the backend's search tool, when it has one.
	WebSearch bool
	// Temperature is the sampling temperature. Nil leaves the backend default.
	Temperature *float64
	// Effort is the reasoning-effort hint.
	Effort Effort
}

// Temperature returns a pointer to t, for building Options literals.
func Temperature(t float64) *float64 { return &t }

var (
	// ErrMissingCredentials indicates the backend has no API key configured.
	ErrMissingCredentials = errors.New("missing API credentials")
	// ErrEmptyModel indicates the call carried no model identifier.
	ErrEmptyModel = errors.New("empty model identifier")
	// ErrNoText indicates a successful response without any text fragments.
	ErrNoText = errors.New("response contained no text")
	// ErrUnknownProvider indicates a model identifier routed to an unregistered backend.
	ErrUnknownProvider = errors.New("unknown model provider")
	// ErrCandidatesExhausted indicates every fallback candidate failed or none were available.
	ErrCandidatesExhausted = errors.New("no fallback candidate succeeded")
)

// APIError is a non-2xx response, or an error payload inside a 2xx response.
type APIError struct {
	Provider string
	Status   int
	Code     string
	Message  string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s API error (status %d, code %s): %s", e.Provider, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Status, e.Message)
}

// IsRetryable reports rate-limit and quota failures, which warrant trying
// another candidate model.
func (e *APIError) IsRetryable() bool {
	return e.Status == 429 || e.Code == "429" || IsRateLimitMessage(e.Message)
}

var rateLimitPattern = regexp.MustCompile(`(?i)rate[\s_-]?limit|quota|too many requests|resource[\s_]exhausted`)

// IsRateLimitMessage reports whether msg uses rate-limit or quota phrasing.
func IsRateLimitMessage(msg string) bool {
	return rateLimitPattern.MatchString(msg)
}

// IsRetryable reports whether err is a retryable model failure.
func IsRetryable(err error) bool {
	return errors.IsRetryable(err)
}
