package event

import "time"

// Event is implemented by every event. Types follow "category.action".
type Event interface {
	EventType() string
	Timestamp() time.Time
}

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{eventType: eventType, timestamp: time.Now()}
}

// Event type identifiers.
const (
	TypeRunStarted          = "run.started"
	TypeRunCompleted        = "run.completed"
	TypeRunFailed           = "run.failed"
	TypeRunRejected         = "run.rejected"
	TypeStageStarted        = "stage.started"
	TypeStageProgress       = "stage.progress"
	TypeStageCompleted      = "stage.completed"
	TypeTaskFailed          = "task.failed"
	TypeJudgmentUnavailable = "judgment.unavailable"
	TypeSettingsUpdated     = "settings.updated"
)

// -----------------------------------------------------------------------------
// Run Events
// -----------------------------------------------------------------------------

// RunStartedEvent is emitted once a target has been acquired and a run created.
type RunStartedEvent struct {
	baseEvent
	RunID    string
	TargetID string
}

// NewRunStartedEvent creates a RunStartedEvent.
func NewRunStartedEvent(runID, targetID string) RunStartedEvent {
	return RunStartedEvent{baseEvent: newBaseEvent(TypeRunStarted), RunID: runID, TargetID: targetID}
}

// RunCompletedEvent is emitted when every stage has run. Winner is empty when
// judgment was unavailable.
type RunCompletedEvent struct {
	baseEvent
	RunID     string
	TargetID  string
	Winner    string
	Artifacts []string
	Duration  time.Duration
}

// NewRunCompletedEvent creates a RunCompletedEvent.
func NewRunCompletedEvent(runID, targetID, winner string, artifacts []string, duration time.Duration) RunCompletedEvent {
	return RunCompletedEvent{
		baseEvent: newBaseEvent(TypeRunCompleted),
		RunID:     runID,
		TargetID:  targetID,
		Winner:    winner,
		Artifacts: artifacts,
		Duration:  duration,
	}
}

// RunFailedEvent is emitted when a run stops early. Stage is empty for
// failures outside a stage, such as a recovered panic.
type RunFailedEvent struct {
	baseEvent
	RunID    string
	TargetID string
	Stage    string
	Err      error
}

// NewRunFailedEvent creates a RunFailedEvent.
func NewRunFailedEvent(runID, targetID, stage string, err error) RunFailedEvent {
	return RunFailedEvent{baseEvent: newBaseEvent(TypeRunFailed), RunID: runID, TargetID: targetID, Stage: stage, Err: err}
}

// RunRejectedEvent is emitted when a run is requested for a target that is
// already in flight.
type RunRejectedEvent struct {
	baseEvent
	TargetID string
}

// NewRunRejectedEvent creates a RunRejectedEvent.
func NewRunRejectedEvent(targetID string) RunRejectedEvent {
	return RunRejectedEvent{baseEvent: newBaseEvent(TypeRunRejected), TargetID: targetID}
}

// -----------------------------------------------------------------------------
// Stage Events
// -----------------------------------------------------------------------------

// StageStartedEvent is emitted before a stage fans out.
type StageStartedEvent struct {
	baseEvent
	RunID string
	Stage string
	Total int
}

// NewStageStartedEvent creates a StageStartedEvent.
func NewStageStartedEvent(runID, stage string, total int) StageStartedEvent {
	return StageStartedEvent{baseEvent: newBaseEvent(TypeStageStarted), RunID: runID, Stage: stage, Total: total}
}

// StageProgressEvent is emitted each time a task settles, in completion order.
type StageProgressEvent struct {
	baseEvent
	RunID     string
	Stage     string
	TaskID    string
	Completed int
	Total     int
	Usable    bool
}

// NewStageProgressEvent creates a StageProgressEvent.
func NewStageProgressEvent(runID, stage, taskID string, completed, total int, usable bool) StageProgressEvent {
	return StageProgressEvent{
		baseEvent: newBaseEvent(TypeStageProgress),
		RunID:     runID,
		Stage:     stage,
		TaskID:    taskID,
		Completed: completed,
		Total:     total,
		Usable:    usable,
	}
}

// StageCompletedEvent is emitted after a stage's fan-in.
type StageCompletedEvent struct {
	baseEvent
	RunID     string
	Stage     string
	Succeeded int
	Total     int
}

// NewStageCompletedEvent creates a StageCompletedEvent.
func NewStageCompletedEvent(runID, stage string, succeeded, total int) StageCompletedEvent {
	return StageCompletedEvent{baseEvent: newBaseEvent(TypeStageCompleted), RunID: runID, Stage: stage, Succeeded: succeeded, Total: total}
}

// TaskFailedEvent is emitted when a task produced no usable output.
type TaskFailedEvent struct {
	baseEvent
	RunID  string
	Stage  string
	TaskID string
	Reason string
}

// NewTaskFailedEvent creates a TaskFailedEvent.
func NewTaskFailedEvent(runID, stage, taskID, reason string) TaskFailedEvent {
	return TaskFailedEvent{baseEvent: newBaseEvent(TypeTaskFailed), RunID: runID, Stage: stage, TaskID: taskID, Reason: reason}
}

// JudgmentUnavailableEvent is emitted when the judge produced no usable verdict.
type JudgmentUnavailableEvent struct {
	baseEvent
	RunID string
}

// NewJudgmentUnavailableEvent creates a JudgmentUnavailableEvent.
func NewJudgmentUnavailableEvent(runID string) JudgmentUnavailableEvent {
	return JudgmentUnavailableEvent{baseEvent: newBaseEvent(TypeJudgmentUnavailable), RunID: runID}
}

// -----------------------------------------------------------------------------
// Settings Events
// -----------------------------------------------------------------------------

// SettingsUpdatedEvent is emitted when new settings take effect for later runs.
type SettingsUpdatedEvent struct {
	baseEvent
	Source string
}

// NewSettingsUpdatedEvent creates a SettingsUpdatedEvent.
func NewSettingsUpdatedEvent(source string) SettingsUpdatedEvent {
	return SettingsUpdatedEvent{baseEvent: newBaseEvent(TypeSettingsUpdated), Source: source}
}
