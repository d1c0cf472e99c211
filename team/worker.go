// ============================================================================
// teampool Worker Capability - Collaborator Contracts
// ============================================================================
//
// Package: team
// File: worker.go
// Function: Defines the capability interfaces a Team depends on but does not
//           implement itself.
//
// Design Pattern:
//   The Team never spawns threads, never owns a job queue, and never reports
//   errors on its own. Those concerns live behind three tiny collaborator
//   seams so the coordination logic in team.go stays free of them:
//     - Worker:           runs submitted 0-arg callables one at a time.
//     - CreateWorkerFunc: produces a Worker on demand, or declines.
//     - ErrorReporter:    told about a panic recovered from a task.
//
// ============================================================================

package team

// Worker is an execution context that runs submitted 0-arg callables one at a
// time in its own context. Do must not run task synchronously in the
// caller's goroutine, except where a specific implementation documents a
// weaker guarantee (see team/lockworker.LockWorker, which trades a private
// goroutine for strict mutual exclusion).
type Worker interface {
	// Do schedules task for execution in this worker's context and returns
	// without waiting for it to run. It returns an error only if the worker
	// has already been told to Quit and can no longer accept work.
	Do(task func()) error

	// Quit requests termination after any already-submitted items finish.
	// Idempotent.
	Quit() error
}

// Coordinator is a Worker used to serialize a Team's internal state
// transitions. Its contract is stronger than a generic Worker's: successive
// items submitted to it execute strictly one at a time, in submission order,
// with happens-before between consecutive items. Any Worker implementation
// that provides this stronger guarantee may serve as a Coordinator; the type
// itself carries no additional methods.
type Coordinator = Worker

// CreateWorkerFunc is the worker-factory collaborator: a 0-argument callable
// that produces a fresh Worker, or returns nil to signal a policy-based
// refusal (for example, a resource limit has been reached). A Team treats a
// nil return as a transient condition that grows the backlog, never as a
// fatal error.
type CreateWorkerFunc func() Worker

// ErrorReporter is invoked after a panic raised by a task submitted to Do has
// already been recovered. It takes no arguments and must not itself panic or
// block; it exists purely to let the caller log or count the failure.
type ErrorReporter func()
