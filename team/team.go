// ============================================================================
// teampool Team - Composite Worker-Pool Coordinator
// ============================================================================
//
// Package: team
// File: team.go
// Function: Multiplexes submitted tasks across a dynamically sized pool of
//           single-task Workers. Growth, shrinkage, backlog, and shutdown
//           are all serialized through one coordinator Worker, so the
//           fields below are touched from exactly one logical execution
//           context even though Team's own methods are safe to call from
//           any goroutine.
//
// Architecture:
//
//	caller --Do(task)--> coordinator.Do(dispatch) --> picks/creates worker
//	                                                         |
//	                                                   worker runs task
//	                                                         |
//	                                            coordinator.Do(onWorkerIdle)
//	                                                         |
//	                                              recycle: dispatch pending,
//	                                              quit idler, or park idle
//
// Every method below that is prefixed with a lowercase verb and documented
// "runs on the coordinator" must only ever be called from inside a closure
// submitted to t.coordinator.Do. They are not safe to call directly from a
// caller's goroutine.
//
// ============================================================================

package team

import "sync/atomic"

// Team is a composite Worker: it accepts tasks through the same Do/Quit
// contract it uses to dispatch them to its own workers, which is what lets
// Teams be nested inside larger Teams.
type Team struct {
	coordinator  Coordinator
	createWorker CreateWorkerFunc
	logException ErrorReporter

	quit quitFlag

	// The remaining fields are touched only from inside t.coordinator.Do.
	idle               map[Worker]struct{}
	busyCount          int
	pending            []func()
	coordinatorRetired bool
	toShrink           int

	// idleCount, busyCountAtomic, and pendingCount mirror len(idle),
	// busyCount, and len(pending) respectively. They exist so Statistics
	// can be read from any goroutine without funneling through the
	// coordinator (and without risking the reentrant deadlock that would
	// cause: a CreateWorkerFunc is invoked from inside the coordinator, so
	// a Statistics call it makes cannot itself wait on the coordinator).
	// Only the coordinator goroutine ever stores to them, alongside the
	// map/slice mutation it mirrors; any other goroutine only loads.
	idleCount       atomic.Int64
	busyCountAtomic atomic.Int64
	pendingCount    atomic.Int64
}

// NewTeam constructs a Team around its three required collaborators.
//
//   - coordinator serializes every state transition below; its Do method
//     must run submitted items strictly one at a time, in submission order.
//   - createWorker produces a fresh Worker on demand, or returns nil to
//     decline (see CreateWorkerFunc).
//   - logException is called, with the panic already recovered, whenever a
//     task submitted to Do panics.
func NewTeam(coordinator Coordinator, createWorker CreateWorkerFunc, logException ErrorReporter) *Team {
	return &Team{
		coordinator:  coordinator,
		createWorker: createWorker,
		logException: logException,
		idle:         make(map[Worker]struct{}),
	}
}

// Do schedules task to run on one of the Team's workers. It returns
// immediately; no result is returned, and a panic raised by task is routed
// to the error reporter, never to the caller. Do fails with ErrTeamQuitting,
// leaving state unchanged, once Quit has been called.
func (t *Team) Do(task func()) error {
	if err := t.quit.check(); err != nil {
		return err
	}
	return t.coordinator.Do(func() {
		t.dispatch(task)
	})
}

// Grow attempts to create up to n new idle workers via createWorker, routing
// each through the recycle path so any existing backlog is preferentially
// drained. If the factory declines at attempt k < n, growth stops silently
// at k. Grow fails with ErrTeamQuitting once Quit has been called.
func (t *Team) Grow(n int) error {
	if n < 0 {
		return ErrInvalidGrowCount
	}
	if err := t.quit.check(); err != nil {
		return err
	}
	return t.coordinator.Do(func() {
		for i := 0; i < n; i++ {
			w := t.createWorker()
			if w == nil {
				return
			}
			t.recycle(w)
		}
	})
}

// Shrink retires up to n idle workers, or increments the shrink debt for any
// unit it cannot satisfy immediately because every worker is currently busy.
// A nil n targets every live worker (idle + busy). Shrink fails with
// ErrTeamQuitting once Quit has been called.
func (t *Team) Shrink(n *int) error {
	if err := t.quit.check(); err != nil {
		return err
	}
	return t.coordinator.Do(func() {
		t.quitIdlers(n)
	})
}

// Quit stops the Team from accepting further Do/Grow/Shrink calls and shuts
// down every idle worker. Tasks already backlogged in pending are still
// executed; they are owed an execution. Quit also implements the Worker
// contract, so a Team may itself be used as a worker inside a larger Team.
// Idempotent.
func (t *Team) Quit() error {
	if t.quit.isSet() {
		return nil
	}
	t.quit.markSet()
	return t.coordinator.Do(func() {
		t.quitIdlers(nil)
	})
}

// Statistics reports a point-in-time snapshot of idle/busy/backlogged
// counts. It may be called from any goroutine, including from inside a
// CreateWorkerFunc while the coordinator is already running (see
// threadworker.NewLimitedTeam). This is an unsynchronized read: each field
// is accurate as of the moment it was loaded, but the three fields carry no
// cross-field atomicity guarantee against an in-flight coordinator item.
func (t *Team) Statistics() Statistics {
	return Statistics{
		IdleWorkers:    int(t.idleCount.Load()),
		BusyWorkers:    int(t.busyCountAtomic.Load()),
		BackloggedWork: int(t.pendingCount.Load()),
	}
}

// ----------------------------------------------------------------------------
// Coordinator-context methods. Everything below this line must only run
// inside a closure submitted to t.coordinator.Do.
// ----------------------------------------------------------------------------

// dispatch selects a worker for task: an idle one if available (tie-break
// unspecified), or a freshly created one. If none can be had, task joins the
// pending backlog and dispatch returns without side effect beyond that.
func (t *Team) dispatch(task func()) {
	w := t.takeIdle()
	if w == nil {
		w = t.createWorker()
	}
	if w == nil {
		t.pending = append(t.pending, task)
		t.pendingCount.Add(1)
		return
	}
	t.busyCount++
	t.busyCountAtomic.Add(1)
	worker := w
	_ = worker.Do(func() {
		t.runAndReturn(task, worker)
	})
}

// takeIdle removes and returns an arbitrary worker from the idle set, or nil
// if the set is empty. Map iteration order is unspecified in Go, which is
// exactly the "tie-break unspecified" policy this needs.
func (t *Team) takeIdle() Worker {
	for w := range t.idle {
		delete(t.idle, w)
		t.idleCount.Add(-1)
		return w
	}
	return nil
}

// parkIdle inserts w into the idle set.
func (t *Team) parkIdle(w Worker) {
	t.idle[w] = struct{}{}
	t.idleCount.Add(1)
}

// popPending removes and returns the head of the pending backlog.
func (t *Team) popPending() func() {
	next := t.pending[0]
	t.pending = t.pending[1:]
	t.pendingCount.Add(-1)
	return next
}

// runAndReturn runs on the worker w was dispatched to, not on the
// coordinator. It invokes task, recovering and reporting any panic, then
// unconditionally hands w back to the coordinator.
func (t *Team) runAndReturn(task func(), w Worker) {
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.logException()
			}
		}()
		task()
	}()

	_ = t.coordinator.Do(func() {
		t.onWorkerIdle(w)
	})
}

// onWorkerIdle runs on the coordinator when w has finished its task.
func (t *Team) onWorkerIdle(w Worker) {
	t.busyCount--
	t.busyCountAtomic.Add(-1)
	t.recycle(w)
}

// recycle parks w in the idle set and then, in priority order: drains one
// pending task onto it (which may or may not end up selecting w itself),
// else quits idlers if quit has been requested, else pays down one unit of
// shrink debt by retiring w. A task already in the backlog is dispatched
// regardless of quitRequested -- it is owed an execution. Shrink debt is
// only paid on a fully clean idle return, so pending work always wins over
// debt.
func (t *Team) recycle(w Worker) {
	t.parkIdle(w)

	if len(t.pending) > 0 {
		next := t.popPending()
		t.dispatch(next)
		return
	}

	if t.quit.isSet() {
		t.quitIdlers(nil)
		return
	}

	if t.toShrink > 0 {
		t.toShrink--
		delete(t.idle, w)
		t.idleCount.Add(-1)
		_ = w.Quit()
	}
}

// quitIdlers is the shared implementation behind Shrink and Quit. If n is
// nil, every live worker (idle + busy) is targeted. For each unit of
// target: an idle worker is retired immediately if one exists, otherwise
// the shrink debt is incremented so the next idle return retires instead of
// parking. Finally, the coordinator-retirement check runs: once quit has
// been requested and the Team is fully quiescent (no busy workers, no
// backlog), the coordinator itself is retired exactly once.
func (t *Team) quitIdlers(n *int) {
	target := len(t.idle) + t.busyCount
	if n != nil {
		target = *n
	}

	for i := 0; i < target; i++ {
		if w := t.takeIdle(); w != nil {
			_ = w.Quit()
		} else {
			t.toShrink++
		}
	}

	if !t.coordinatorRetired && t.busyCount == 0 && len(t.pending) == 0 && t.quit.isSet() {
		t.coordinatorRetired = true
		_ = t.coordinator.Quit()
	}
}
