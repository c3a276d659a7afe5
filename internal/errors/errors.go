// Package errors provides centralized error definitions and error handling utilities
// for conclave. It defines sentinel errors per subsystem, domain error types that
// carry run context, and classification helpers used across the pipeline.
//
// # Error Types
//
// Domain-specific errors represent failures in a particular layer:
//   - RunError: a run-level failure tied to a target and, optionally, a stage
//
// Semantic errors represent common error conditions:
//   - NotFoundError: a resource (blob, template, model) does not exist
//   - AlreadyExistsError: a resource (blob, in-flight run) already exists
//   - ValidationError: invalid input or configuration
//
// # Usage
//
//	err := errors.NewRunError("ideation produced no ideas", errors.ErrStageEmpty).
//	    WithTarget("doc-1").WithStage("ideation")
//
//	if errors.Is(err, errors.ErrStageEmpty) { ... }
//
//	var runErr *errors.RunError
//	if errors.As(err, &runErr) { fmt.Println(runErr.Stage) }
//
// # Error Classification
//
// IsRetryable reports transient failures. Any error exposing an
// IsRetryable() bool method participates, which lets the model package's
// APIError drive candidate fallback without importing this package's types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Run lifecycle sentinel errors
var (
	// ErrAlreadyRunning indicates a run is already in flight for the target.
	ErrAlreadyRunning = New("run already in progress")
	// ErrStageEmpty indicates every task in a stage failed to produce output.
	ErrStageEmpty = New("stage produced no usable output")
	// ErrRunPanicked indicates the pipeline panicked and the run was aborted.
	ErrRunPanicked = New("run aborted by panic")
)

// Content store sentinel errors
var (
	// ErrBlobExists indicates a blob already exists at the requested path.
	ErrBlobExists = New("blob already exists")
	// ErrBlobNotFound indicates a blob could not be found.
	ErrBlobNotFound = New("blob not found")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// RunError represents a run-level failure reported by the lifecycle controller.
//
// Example:
//
//	err := errors.NewRunError("no ideas", errors.ErrStageEmpty).WithTarget("doc-1").WithStage("ideation")
//	fmt.Println(err) // "run error [target=doc-1, stage=ideation]: no ideas: stage produced no usable output"
type RunError struct {
	baseError
	TargetID string
	RunID    string
	Stage    string
}

// NewRunError creates a new RunError wrapping cause.
func NewRunError(message string, cause error) *RunError {
	return &RunError{baseError: baseError{message: message, cause: cause}}
}

// WithTarget sets the target identifier.
func (e *RunError) WithTarget(id string) *RunError {
	e.TargetID = id
	return e
}

// WithRun sets the run identifier.
func (e *RunError) WithRun(id string) *RunError {
	e.RunID = id
	return e
}

// WithStage sets the stage the failure is attributed to.
func (e *RunError) WithStage(stage string) *RunError {
	e.Stage = stage
	return e
}

func (e *RunError) Error() string {
	var parts []string
	if e.TargetID != "" {
		parts = append(parts, "target="+e.TargetID)
	}
	if e.RunID != "" {
		parts = append(parts, "run="+e.RunID)
	}
	if e.Stage != "" {
		parts = append(parts, "stage="+e.Stage)
	}

	prefix := "run error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("run error [%s]", strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s: %s", prefix, e.baseError.Error())
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError indicates that a requested resource does not exist.
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a NotFoundError for the given resource.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError:    baseError{message: fmt.Sprintf("%s not found: %s", resourceType, resourceID)},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause attaches an underlying cause.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// AlreadyExistsError indicates that a resource already exists.
type AlreadyExistsError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewAlreadyExistsError creates an AlreadyExistsError for the given resource.
func NewAlreadyExistsError(resourceType, resourceID string) *AlreadyExistsError {
	return &AlreadyExistsError{
		baseError:    baseError{message: fmt.Sprintf("%s already exists: %s", resourceType, resourceID)},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause attaches an underlying cause.
func (e *AlreadyExistsError) WithCause(cause error) *AlreadyExistsError {
	e.cause = cause
	return e
}

// ValidationError indicates invalid input or state.
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a ValidationError. It wraps ErrInvalidInput so
// callers can match on the sentinel.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{baseError: baseError{message: message, cause: ErrInvalidInput}}
}

// WithField sets the offending field name.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue sets the offending value.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error [%s]: %s", e.Field, e.message)
	}
	return "validation error: " + e.message
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

// retryable is satisfied by any error that can classify itself as transient.
type retryable interface {
	IsRetryable() bool
}

// IsRetryable reports whether the first error in the chain that classifies
// itself is transient. Unclassified errors are permanent.
func IsRetryable(err error) bool {
	var r retryable
	return As(err, &r) && r.IsRetryable()
}

// StageOf returns the stage recorded on a RunError in the chain, or "".
func StageOf(err error) string {
	var runErr *RunError
	if As(err, &runErr) {
		return runErr.Stage
	}
	return ""
}
