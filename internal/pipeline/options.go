package pipeline

import (
	"time"

	"github.com/Iron-Ham/conclave/internal/logging"
	"github.com/Iron-Ham/conclave/internal/store"
)

// ProgressFunc is called once per settled task, in completion order, with a
// completed count that rises from 1 to total.
type ProgressFunc func(stage Stage, taskID string, completed, total int, usable bool)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore persists run documents and resolves prompt template paths.
func WithStore(s store.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}
