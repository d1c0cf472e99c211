package team

// Statistics is a point-in-time snapshot of a Team's activity.
type Statistics struct {
	// IdleWorkers is the number of workers currently parked and eligible
	// for reuse.
	IdleWorkers int

	// BusyWorkers is the number of workers that have been handed a task
	// and have not yet handed themselves back.
	BusyWorkers int

	// BackloggedWork is the number of tasks passed to Do which have not
	// yet been sent to a worker because none was available and the
	// factory declined to create one.
	BackloggedWork int
}
