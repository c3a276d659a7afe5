// Package event provides a synchronous pub-sub bus for run lifecycle events.
//
// The lifecycle controller publishes run, stage and task events; the CLI
// and notification sinks subscribe to them without the pipeline knowing who
// listens.
//
// # Event Categories
//
// Run:
//   - [RunStartedEvent], [RunCompletedEvent], [RunFailedEvent], [RunRejectedEvent]
//
// Stage and task:
//   - [StageStartedEvent], [StageProgressEvent], [StageCompletedEvent]
//   - [TaskFailedEvent], [JudgmentUnavailableEvent]
//
// Settings:
//   - [SettingsUpdatedEvent]
//
// # Thread Safety
//
// [Bus] is safe for concurrent use. Handlers are called synchronously on the
// publishing goroutine; a panicking handler is recovered and logged.
//
// # Usage
//
//	bus := event.NewBus(logger)
//	bus.Subscribe(event.TypeStageProgress, func(e event.Event) {
//	    p := e.(event.StageProgressEvent)
//	    fmt.Printf("%s %d/%d\n", p.Stage, p.Completed, p.Total)
//	})
package event
