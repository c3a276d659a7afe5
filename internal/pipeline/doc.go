// Package pipeline runs the ideation, execution and judgment stages of a
// conclave run.
//
// # Stages
//
// [Orchestrator.Ideate] fans out one task per configured persona.
// [Orchestrator.Execute] fans out one task per executor, and every executor
// sees every usable idea. [Orchestrator.Judge] is a single task that scores
// the executions. Each task renders its prompts, calls its model, parses the
// reply and persists its document. A task that fails at any step is logged
// and dropped; its siblings are never cancelled.
//
// A stage drains exactly one settled result per task from a buffered
// channel, so the [ProgressFunc] fires once per task in completion order
// while results are returned in configured order.
//
// # Run State
//
// A run moves created → ideating → executing → judging → completed. There
// is no failed state. An empty idea or execution list and a nil judgment are
// how failure shows; the lifecycle controller decides what is user-visible.
//
// # Artifacts
//
// [Assemble] is a pure function of a run. Documents are written under
// <runs_dir>/<run-id>/:
//
//	input.md
//	ideas/<persona-id>.md
//	executions/<title>.md
//	judgment.md
//	summary.md
package pipeline
