package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	cerrors "github.com/Iron-Ham/conclave/internal/errors"
	"github.com/Iron-Ham/conclave/internal/frontmatter"
	"github.com/Iron-Ham/conclave/internal/logging"
	"github.com/Iron-Ham/conclave/internal/model"
	"github.com/Iron-Ham/conclave/internal/store"
	"github.com/Iron-Ham/conclave/internal/util"
)

// Store layout inside a run's container.
const (
	InputFile     = "input.md"
	IdeasDir      = "ideas"
	ExecutionsDir = "executions"
	JudgmentFile  = "judgment.md"
	SummaryFile   = "summary.md"
)

// maxTitleLen bounds execution titles and persona file names.
const maxTitleLen = 50

var (
	errEmptyResponse = errors.New("model returned no text")
	errUnparseable   = errors.New("output could not be parsed")
	errEmptyContent  = errors.New("execution content is empty")
)

var (
	ideaParser     = frontmatter.New(frontmatter.RequireIdea)
	judgmentParser = frontmatter.New(frontmatter.RequireJudgment)
)

// Orchestrator drives the three stages of a run. An Orchestrator holds one
// Settings snapshot for its lifetime; build a new one to pick up changes.
type Orchestrator struct {
	caller   model.Caller
	settings Settings
	store    store.Store
	logger   *logging.Logger
	progress ProgressFunc
	now      func() time.Time
}

// New creates an Orchestrator calling models through caller.
func New(caller model.Caller, settings Settings, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		caller:   caller,
		settings: settings,
		logger:   logging.NopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Settings returns the snapshot the orchestrator runs with.
func (o *Orchestrator) Settings() Settings { return o.settings }

// NewRun creates a run in the created state and persists its input.
func (o *Orchestrator) NewRun(targetID, input string) *Run {
	run := &Run{
		ID:        newRunID(),
		TargetID:  targetID,
		Input:     input,
		Status:    StatusCreated,
		CreatedAt: o.now(),
	}
	if o.store != nil {
		if err := o.store.EnsureContainer(run.Dir(o.settings.RunsDir)); err != nil {
			o.logger.WithRun(run.ID).Warn("failed to create run container", "error", err.Error())
		}
	}
	if p, ok := o.persist(run, InputFile, input, o.logger.WithRun(run.ID)); ok {
		run.Documents = append(run.Documents, p)
	}
	return run
}

// newRunID returns a time-ordered identifier.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Ideate runs one task per persona and returns the usable ideas in persona
// order. An empty result means every persona failed.
func (o *Orchestrator) Ideate(ctx context.Context, run *Run) []Idea {
	run.Status = StatusIdeating
	names := ideaFileNames(o.settings.Personas)
	results := runStage(ctx, o, run, StageIdeation, o.settings.Personas,
		func(ctx context.Context, task Task, log *logging.Logger) (Idea, string, error) {
			return o.ideate(ctx, run, task, names[task.ID], log)
		})

	ideas := make([]Idea, 0, len(results))
	for _, res := range results {
		if res.err == nil {
			ideas = append(ideas, res.value)
		}
	}
	run.Ideas = ideas
	return ideas
}

func (o *Orchestrator) ideate(ctx context.Context, run *Run, task Task, name string, log *logging.Logger) (Idea, string, error) {
	text, err := o.invoke(ctx, StageIdeation, task, promptData{RunID: run.ID, Input: run.Input, Task: task}, log)
	if err != nil {
		return Idea{}, "", err
	}
	parsed, ok := ideaParser.Parse(text)
	if !ok {
		return Idea{}, "", errUnparseable
	}

	idea := toIdea(task, parsed)
	doc, err := frontmatter.Render(*parsed)
	if err != nil {
		doc = text
	}
	stored, _ := o.persist(run, path.Join(IdeasDir, name+".md"), doc, log)
	return idea, stored, nil
}

// ideaFileNames maps persona IDs to document names. IDs that slugify to the
// same name get their 1-based persona position appended.
func ideaFileNames(personas []Task) map[string]string {
	slugs := make([]string, len(personas))
	counts := make(map[string]int, len(personas))
	for i, p := range personas {
		slug := util.Slugify(p.ID, maxTitleLen)
		if slug == "" {
			slug = "persona"
		}
		slugs[i] = slug
		counts[slug]++
	}
	names := make(map[string]string, len(personas))
	for i, p := range personas {
		name := slugs[i]
		if counts[name] > 1 {
			name = fmt.Sprintf("%s-%d", name, i+1)
		}
		if _, ok := names[p.ID]; !ok {
			names[p.ID] = name
		}
	}
	return names
}

// Execute runs one task per executor, each seeing every idea, and returns
// the usable executions in executor order.
func (o *Orchestrator) Execute(ctx context.Context, run *Run) []Execution {
	run.Status = StatusExecuting
	results := runStage(ctx, o, run, StageExecution, o.settings.Executors,
		func(ctx context.Context, task Task, log *logging.Logger) (Execution, string, error) {
			data := promptData{RunID: run.ID, Input: run.Input, Task: task, Ideas: run.Ideas}
			text, err := o.invoke(ctx, StageExecution, task, data, log)
			if err != nil {
				return Execution{}, "", err
			}
			exec, err := toExecution(task, text)
			return exec, "", err
		})

	executions := make([]Execution, 0, len(results))
	for _, res := range results {
		if res.err == nil {
			executions = append(executions, res.value)
		}
	}
	o.persistExecutions(run, executions)
	run.Executions = executions
	return executions
}

// persistExecutions writes one document per execution. A title shared by
// several executions, or one already taken in the store, gets the executor
// ID appended.
func (o *Orchestrator) persistExecutions(run *Run, executions []Execution) {
	counts := make(map[string]int, len(executions))
	for _, e := range executions {
		counts[e.Title]++
	}
	log := o.logger.WithRun(run.ID).WithStage(StageExecution.String())
	for _, e := range executions {
		primary := e.Title
		suffixed := e.Title + "-" + executorSlug(e.ExecutorID)
		if counts[e.Title] > 1 {
			primary = suffixed
		}
		stored, ok := o.persist(run, path.Join(ExecutionsDir, primary+".md"), e.Content, log.WithTask(e.ExecutorID))
		if !ok && primary != suffixed {
			stored, ok = o.persist(run, path.Join(ExecutionsDir, suffixed+".md"), e.Content, log.WithTask(e.ExecutorID))
		}
		if ok {
			run.Documents = append(run.Documents, stored)
		}
	}
}

func executorSlug(id string) string {
	if s := util.Slugify(id, maxTitleLen); s != "" {
		return s
	}
	return "executor"
}

// Judge scores the run's executions. It returns nil when the judge call or
// its parse fails; the run continues without a verdict.
func (o *Orchestrator) Judge(ctx context.Context, run *Run) *Judgment {
	run.Status = StatusJudging
	results := runStage(ctx, o, run, StageJudgment, []Task{o.settings.Judge},
		func(ctx context.Context, task Task, log *logging.Logger) (*Judgment, string, error) {
			data := promptData{RunID: run.ID, Input: run.Input, Task: task, Ideas: run.Ideas, Executions: run.Executions}
			text, err := o.invoke(ctx, StageJudgment, task, data, log)
			if err != nil {
				return nil, "", err
			}
			parsed, ok := judgmentParser.Parse(text)
			if !ok {
				return nil, "", errUnparseable
			}
			j := toJudgment(parsed)
			stored, _ := o.persist(run, JudgmentFile, text, log)
			return j, stored, nil
		})

	if len(results) == 0 || results[0].err != nil {
		run.Judgment = nil
		return nil
	}
	run.Judgment = results[0].value
	return run.Judgment
}

// Complete marks the run completed, assembles its artifacts and persists the
// summary. It is called for every run, including ones that stopped early.
func (o *Orchestrator) Complete(run *Run) Artifacts {
	run.Status = StatusCompleted
	run.CompletedAt = o.now()
	arts := Assemble(run)
	if p, ok := o.persist(run, SummaryFile, arts.Summary, o.logger.WithRun(run.ID)); ok {
		run.Documents = append(run.Documents, p)
	}
	return arts
}

// invoke renders the prompts for task and calls its model. Custom template
// failures fall back to the built-in template.
func (o *Orchestrator) invoke(ctx context.Context, stage Stage, task Task, data promptData, log *logging.Logger) (string, error) {
	system, user, warning, err := o.prompts(stage, data)
	if warning != nil {
		log.Warn("using built-in prompt template", "error", warning.Error())
	}
	if err != nil {
		return "", err
	}
	text, err := o.caller.Call(ctx, system, user, task.Model, task.options())
	if err != nil {
		return "", fmt.Errorf("call %s: %w", task.Model, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

// persist writes rel under the run's container. Failures are logged and
// reported as false; persistence never fails a task.
func (o *Orchestrator) persist(run *Run, rel, text string, log *logging.Logger) (string, bool) {
	if o.store == nil {
		return "", false
	}
	h, err := o.store.CreateBlob(path.Join(run.Dir(o.settings.RunsDir), rel), text)
	if err != nil {
		level := log.Warn
		if cerrors.Is(err, cerrors.ErrBlobExists) {
			level = log.Debug
		}
		level("failed to persist document", "path", rel, "error", err.Error())
		return "", false
	}
	return h.Path, true
}

// runStage launches one goroutine per task and drains exactly len(tasks)
// settled results, reporting progress in completion order. The returned
// slice is in task order. A panicking task is recorded as failed.
func runStage[T any](
	ctx context.Context,
	o *Orchestrator,
	run *Run,
	stage Stage,
	tasks []Task,
	fn func(context.Context, Task, *logging.Logger) (T, string, error),
) []taskResult[T] {
	total := len(tasks)
	log := o.logger.WithRun(run.ID).WithStage(stage.String())
	log.Info("stage started", "tasks", total)

	settled := make(chan taskResult[T], total)
	var wg conc.WaitGroup
	for i, task := range tasks {
		taskLog := log.WithTask(task.ID)
		wg.Go(func() {
			res := taskResult[T]{index: i, taskID: task.ID}
			var pc panics.Catcher
			pc.Try(func() {
				res.value, res.document, res.err = fn(ctx, task, taskLog)
			})
			if r := pc.Recovered(); r != nil {
				res.err = r.AsError()
			}
			settled <- res
		})
	}

	results := make([]taskResult[T], total)
	for completed := 1; completed <= total; completed++ {
		res := <-settled
		results[res.index] = res

		taskLog := log.WithTask(res.taskID)
		if res.err != nil {
			taskLog.Warn("task produced no usable output", "error", res.err.Error())
		} else {
			taskLog.Debug("task completed")
		}
		if o.progress != nil {
			o.progress(stage, res.taskID, completed, total, res.err == nil)
		}
	}
	wg.Wait()

	out := StageOutput{Stage: stage, Total: total}
	var docs []string
	for _, res := range results {
		if res.err != nil {
			out.Failed = append(out.Failed, res.taskID)
			continue
		}
		out.Succeeded = append(out.Succeeded, res.taskID)
		if res.document != "" {
			docs = append(docs, res.document)
		}
	}
	run.Documents = append(run.Documents, docs...)
	run.Stages = append(run.Stages, out)

	log.Info("stage completed", "succeeded", len(out.Succeeded), "failed", len(out.Failed))
	return results
}
