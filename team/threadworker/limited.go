// ============================================================================
// teampool Limited Team - Thread-Limited Convenience Constructor
// ============================================================================
//
// Package: threadworker
// File: limited.go
// Function: A convenience constructor for a Team whose factory consults an
//           externally supplied currentLimit() before spawning a new
//           ThreadWorker, declining once the pool is saturated.
//
// ============================================================================

package threadworker

import (
	"log/slog"

	"github.com/beaverpool/teampool/team"
	"github.com/beaverpool/teampool/team/lockworker"
)

// Option configures NewLimitedTeam.
type Option func(*limitedConfig)

type limitedConfig struct {
	coordinator     team.Coordinator
	logException    team.ErrorReporter
	workerQueueSize int
}

// WithLoopCoordinator selects a goroutine-pinned coordinator
// (lockworker.LoopWorker) instead of the default lock-backed one.
func WithLoopCoordinator(queueSize int) Option {
	return func(c *limitedConfig) {
		c.coordinator = lockworker.NewLoopWorker(queueSize)
	}
}

// WithErrorReporter overrides the default error reporter, which logs via
// slog.Default().
func WithErrorReporter(r team.ErrorReporter) Option {
	return func(c *limitedConfig) {
		c.logException = r
	}
}

// WithWorkerQueueSize sets the buffer size of each ThreadWorker's private
// channel. Defaults to 16.
func WithWorkerQueueSize(n int) Option {
	return func(c *limitedConfig) {
		c.workerQueueSize = n
	}
}

// NewLimitedTeam constructs a *team.Team whose worker factory samples
// idle+busy on every creation attempt and declines once it reaches
// currentLimit(). The default coordinator is a lockworker.LockWorker;
// WithLoopCoordinator selects a lockworker.LoopWorker instead.
func NewLimitedTeam(currentLimit func() int, opts ...Option) *team.Team {
	cfg := limitedConfig{workerQueueSize: 16}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.coordinator == nil {
		cfg.coordinator = lockworker.New()
	}
	if cfg.logException == nil {
		cfg.logException = defaultLogException
	}

	var t *team.Team
	createWorker := func() team.Worker {
		stats := t.Statistics()
		if stats.IdleWorkers+stats.BusyWorkers >= currentLimit() {
			return nil
		}
		return New(cfg.workerQueueSize)
	}

	t = team.NewTeam(cfg.coordinator, createWorker, cfg.logException)
	return t
}

func defaultLogException() {
	slog.Default().Error("teampool: task panicked; recovered by worker")
}
