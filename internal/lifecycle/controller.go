package lifecycle

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Iron-Ham/conclave/internal/errors"
	"github.com/Iron-Ham/conclave/internal/event"
	"github.com/Iron-Ham/conclave/internal/logging"
	"github.com/Iron-Ham/conclave/internal/model"
	"github.com/Iron-Ham/conclave/internal/notify"
	"github.com/Iron-Ham/conclave/internal/pipeline"
	"github.com/Iron-Ham/conclave/internal/store"
)

// Settings is what a run needs from configuration.
type Settings struct {
	Pipeline pipeline.Settings
	Caller   model.Caller
}

// Result is the terminal outcome of a run.
type Result struct {
	Run       *pipeline.Run
	Artifacts pipeline.Artifacts
	// FailedStage is the stage that produced nothing, or "" when every
	// required stage produced output.
	FailedStage pipeline.Stage
	// Produced lists the store paths written for the run.
	Produced []string
}

// Controller runs pipelines with at most one in-flight run per target.
type Controller struct {
	registry *Registry
	bus      *event.Bus
	store    store.Store
	logger   *logging.Logger
	sinks    []notify.Sink

	mu       sync.RWMutex
	settings Settings
}

// Option configures a Controller.
type Option func(*Controller)

// WithBus publishes run events on bus.
func WithBus(bus *event.Bus) Option {
	return func(c *Controller) { c.bus = bus }
}

// WithStore persists run documents.
func WithStore(s store.Store) Option {
	return func(c *Controller) { c.store = s }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithSink forwards run events to sink as notifications.
func WithSink(sink notify.Sink) Option {
	return func(c *Controller) {
		if sink != nil {
			c.sinks = append(c.sinks, sink)
		}
	}
}

// New creates a Controller. A nil registry gets a fresh one.
func New(registry *Registry, settings Settings, opts ...Option) *Controller {
	c := &Controller{registry: registry, settings: settings}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	if c.logger == nil {
		c.logger = logging.NopLogger()
	}
	if c.bus == nil {
		c.bus = event.NewBus(c.logger)
	}
	for _, sink := range c.sinks {
		notify.Bridge(c.bus, sink)
	}
	c.sinks = nil
	return c
}

// Bus returns the bus run events are published on.
func (c *Controller) Bus() *event.Bus { return c.bus }

// Registry returns the controller's in-flight registry.
func (c *Controller) Registry() *Registry { return c.registry }

// Settings returns the settings the next run will use.
func (c *Controller) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// UpdateSettings replaces the settings for subsequent runs. Runs already in
// flight keep the snapshot they started with.
func (c *Controller) UpdateSettings(source string, s Settings) {
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()

	c.logger.Info("settings updated", "source", source)
	c.bus.Publish(event.NewSettingsUpdatedEvent(source))
}

// Run executes one pipeline for targetID. It fails immediately with
// ErrAlreadyRunning when the target is busy. When a stage produces nothing
// the returned error is a *errors.RunError naming the stage, and the Result
// still carries whatever was produced. A panic anywhere in the run is
// recovered and returned as ErrRunPanicked; the target is released on every
// path.
func (c *Controller) Run(ctx context.Context, targetID, input string) (res *Result, err error) {
	if err := c.registry.Acquire(targetID); err != nil {
		if errors.Is(err, errors.ErrAlreadyRunning) {
			c.logger.WithTarget(targetID).Info("run rejected, target busy")
			c.bus.Publish(event.NewRunRejectedEvent(targetID))
		}
		return nil, err
	}
	defer c.registry.Release(targetID)

	log := c.logger.WithTarget(targetID)
	var runID string
	defer func() {
		if r := recover(); r != nil {
			log.Error("run panicked", "run_id", runID, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			err = errors.NewRunError(fmt.Sprintf("panic: %v", r), errors.ErrRunPanicked).WithTarget(targetID).WithRun(runID)
			c.bus.Publish(event.NewRunFailedEvent(runID, targetID, "", err))
			res = nil
		}
	}()

	settings := c.Settings()
	if settings.Caller == nil {
		return nil, errors.NewRunError("no model caller configured", errors.ErrInvalidInput).WithTarget(targetID)
	}

	orch := pipeline.New(settings.Caller, settings.Pipeline,
		pipeline.WithStore(c.store),
		pipeline.WithLogger(c.logger.WithTarget(targetID)),
		pipeline.WithProgress(func(stage pipeline.Stage, taskID string, completed, total int, usable bool) {
			c.bus.Publish(event.NewStageProgressEvent(runID, stage.String(), taskID, completed, total, usable))
			if !usable {
				c.bus.Publish(event.NewTaskFailedEvent(runID, stage.String(), taskID, "no usable output"))
			}
		}),
	)

	started := time.Now()
	run := orch.NewRun(targetID, input)
	runID = run.ID
	log = log.WithRun(runID)
	log.Info("run started")
	c.bus.Publish(event.NewRunStartedEvent(runID, targetID))

	res = &Result{Run: run}

	c.stageStarted(run, pipeline.StageIdeation, len(settings.Pipeline.Personas))
	ideas := orch.Ideate(ctx, run)
	c.stageCompleted(run)
	if len(ideas) == 0 {
		return c.fail(orch, res, pipeline.StageIdeation, "ideation produced no usable ideas", log)
	}

	c.stageStarted(run, pipeline.StageExecution, len(settings.Pipeline.Executors))
	executions := orch.Execute(ctx, run)
	c.stageCompleted(run)
	if len(executions) == 0 {
		return c.fail(orch, res, pipeline.StageExecution, "execution produced no usable deliverables", log)
	}

	c.stageStarted(run, pipeline.StageJudgment, 1)
	judgment := orch.Judge(ctx, run)
	c.stageCompleted(run)
	if judgment == nil {
		log.Warn("judgment unavailable")
		c.bus.Publish(event.NewJudgmentUnavailableEvent(runID))
	}

	res.Artifacts = orch.Complete(run)
	res.Produced = append([]string(nil), run.Documents...)

	winner := ""
	if judgment != nil {
		winner = judgment.Winner
	}
	log.Info("run completed", "winner", winner, "documents", len(res.Produced))
	c.bus.Publish(event.NewRunCompletedEvent(runID, targetID, winner, res.Produced, time.Since(started)))
	return res, nil
}

// fail completes the run with what it has and reports stage as empty.
func (c *Controller) fail(orch *pipeline.Orchestrator, res *Result, stage pipeline.Stage, msg string, log *logging.Logger) (*Result, error) {
	run := res.Run
	res.Artifacts = orch.Complete(run)
	res.Produced = append([]string(nil), run.Documents...)
	res.FailedStage = stage

	err := errors.NewRunError(msg, errors.ErrStageEmpty).
		WithTarget(run.TargetID).
		WithRun(run.ID).
		WithStage(stage.String())
	log.Warn("run stopped", "stage", stage.String(), "error", err.Error())
	c.bus.Publish(event.NewRunFailedEvent(run.ID, run.TargetID, stage.String(), err))
	return res, err
}

func (c *Controller) stageStarted(run *pipeline.Run, stage pipeline.Stage, total int) {
	c.bus.Publish(event.NewStageStartedEvent(run.ID, stage.String(), total))
}

// stageCompleted publishes the outcome recorded by the most recent stage.
func (c *Controller) stageCompleted(run *pipeline.Run) {
	if len(run.Stages) == 0 {
		return
	}
	out := run.Stages[len(run.Stages)-1]
	c.bus.Publish(event.NewStageCompletedEvent(run.ID, out.Stage.String(), len(out.Succeeded), out.Total))
}
