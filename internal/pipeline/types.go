package pipeline

import (
	"time"

	"github.com/Iron-Ham/conclave/internal/model"
)

// Stage names a pipeline phase.
type Stage string

const (
	// StageIdeation fans out one task per persona.
	StageIdeation Stage = "ideation"
	// StageExecution fans out one task per executor; each sees every idea.
	StageExecution Stage = "execution"
	// StageJudgment is a single task scoring every execution.
	StageJudgment Stage = "judgment"
)

// String returns the stage name.
func (s Stage) String() string { return string(s) }

// Status is a run's position in the state machine. There is no failed
// state: partial and total stage failures surface as empty outputs.
type Status string

const (
	StatusCreated   Status = "created"
	StatusIdeating  Status = "ideating"
	StatusExecuting Status = "executing"
	StatusJudging   Status = "judging"
	StatusCompleted Status = "completed"
)

// Task configures one persona, executor or judge.
type Task struct {
	ID   string
	Name string
	// Prompt is the store path of a system prompt template. Empty selects
	// the built-in template for the stage.
	Prompt      string
	Model       string
	Temperature *float64
	Effort      model.Effort
	WebSearch   bool
}

func (t Task) options() model.Options {
	return model.Options{WebSearch: t.WebSearch, Temperature: t.Temperature, Effort: t.Effort}
}

// displayName falls back to the ID when no name is configured.
func (t Task) displayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// Settings is the read-only snapshot an Orchestrator runs with.
type Settings struct {
	Personas  []Task
	Executors []Task
	Judge     Task
	// RunsDir is the store container holding one sub-container per run.
	RunsDir string
}

// Run is one end-to-end pipeline invocation.
type Run struct {
	ID          string
	TargetID    string
	Input       string
	Status      Status
	CreatedAt   time.Time
	CompletedAt time.Time
	Stages      []StageOutput
	Ideas       []Idea
	Executions  []Execution
	Judgment    *Judgment
	// Documents lists store paths written for this run, in write order.
	Documents []string
}

// Dir returns the run's store container.
func (r *Run) Dir(runsDir string) string {
	if runsDir == "" {
		return r.ID
	}
	return runsDir + "/" + r.ID
}

// StageOutput records one stage's fan-in.
type StageOutput struct {
	Stage     Stage
	Total     int
	Succeeded []string
	Failed    []string
}

// Idea is one persona's proposal.
type Idea struct {
	PersonaID   string
	PersonaName string
	Thesis      string
	PlanSteps   []PlanStep
	Risks       []string
	AntiPlan    []string
	Falsifiers  []string
	Sources     []Source
	// Body is the markdown after the frontmatter, verbatim.
	Body string
}

// PlanStep is one ordered step of an idea's plan.
type PlanStep struct {
	Step      string
	Rationale string
	Artifact  string
}

// Source is a cited reference.
type Source struct {
	Title string
	URL   string
}

// Execution is one executor's deliverable.
type Execution struct {
	ExecutorID string
	Model      string
	Content    string
	// Title is a [a-z0-9-] token of at most 50 characters; never empty.
	Title string
}

// Judgment is the judge's verdict.
type Judgment struct {
	// Rubric maps criteria to weights. Weights are not required to sum to 1.
	Rubric      map[string]float64
	Scores      map[string]Score
	Winner      string
	Synthesis   string
	NextActions []string
	Sources     []Source
}

// Score is one execution's evaluation.
type Score struct {
	Raw   map[string]float64
	Total float64
	Notes string
}

// WinnerScored reports whether the winner names a scored execution. It is
// vacuously true when nothing was scored. Orchestration never enforces it.
func (j *Judgment) WinnerScored() bool {
	if j == nil || len(j.Scores) == 0 {
		return true
	}
	_, ok := j.Scores[j.Winner]
	return ok
}

// Artifacts are the documents assembled from a finished run.
type Artifacts struct {
	Summary string
	Callout string
}

// taskResult is the settled outcome of one stage task.
type taskResult[T any] struct {
	index    int
	taskID   string
	value    T
	document string
	err      error
}
