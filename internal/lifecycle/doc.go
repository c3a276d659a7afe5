// Package lifecycle is the outer driver of conclave runs.
//
// A [Controller] holds a [Registry] of targets with a run in flight and
// rejects a second run for a busy target with errors.ErrAlreadyRunning. The
// target is inserted before any work is dispatched and removed in a deferred
// release, so it is freed on success, on stage failure and on panic.
//
// Stages run in order. An ideation stage with no usable ideas stops the run
// before execution; an execution stage with no usable deliverables stops it
// before judgment. Both cases return an *errors.RunError whose Stage names
// the empty stage, alongside a [Result] listing the documents written so far.
// A missing judgment is not a failure.
//
// Settings are swapped with [Controller.UpdateSettings]. Each run takes a
// snapshot when it starts.
package lifecycle
