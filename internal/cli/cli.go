// ============================================================================
// teampool CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Cobra-based command line interface for running a teampool
//          worker pool and exercising it with a synthetic load generator.
//
// Command Structure:
//   teampool                  # Root command
//   ├── run                   # Run a long-lived pool against synthetic load
//   │   └── --config, -c     # Config file path
//   ├── bench                 # One-shot timed benchmark, prints final stats
//   │   └── --config, -c     # Config file path
//   └── --version             # Display version information
//
// run Command:
//   1. Load YAML config
//   2. Build a team.Team via threadworker.NewLimitedTeam, sized and
//      coordinated per config
//   3. Start the Prometheus /metrics endpoint, if enabled
//   4. Submit synthetic tasks at load.rate_per_second
//   5. On SIGINT/SIGTERM, Quit() the pool and wait for it to drain
//
// bench Command:
//   Same pool construction, but runs for load.duration_seconds and then
//   prints a final Statistics() snapshot instead of serving metrics.
//
// ============================================================================

package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/beaverpool/teampool/internal/metrics"
	"github.com/beaverpool/teampool/team"
	"github.com/beaverpool/teampool/team/threadworker"
)

var configFile string

// BuildCLI assembles the teampool root command and its subcommands.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "teampool",
		Short: "teampool: a composite worker-pool coordinator",
		Long: `teampool runs a bounded pool of workers behind a single
serialized coordinator, the same contract Twisted's Team implements:
grow, shrink, and quit are all safe to call concurrently, and backlogged
work is drained before any new worker is created.`,
		Version: "0.1.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildBenchCommand())

	return rootCmd
}

func buildTeam(cfg *Config) *team.Team {
	opts := []threadworker.Option{
		threadworker.WithWorkerQueueSize(cfg.Team.QueueSize),
	}
	if cfg.Team.Coordinator == "loop" {
		opts = append(opts, threadworker.WithLoopCoordinator(cfg.Team.QueueSize))
	}
	return threadworker.NewLimitedTeam(func() int { return cfg.Team.MaxWorkers }, opts...)
}

func buildRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a teampool worker pool against synthetic load",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPool(configFile)
		},
	}
	return cmd
}

func runPool(path string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting teampool", "max_workers", cfg.Team.MaxWorkers, "coordinator", cfg.Team.Coordinator)

	t := buildTeam(cfg)

	if cfg.Metrics.Enabled {
		collector := metrics.NewPoolCollector("teampool", t.Statistics)
		if err := prometheus.Register(collector); err != nil {
			return fmt.Errorf("failed to register metrics collector: %w", err)
		}
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Port); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
		slog.Info("metrics server listening", "port", cfg.Metrics.Port)
	}

	stopLoad := make(chan struct{})
	go generateLoad(t, cfg.Load.RatePerSecond, stopLoad)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			s := t.Statistics()
			slog.Info("pool status", "idle", s.IdleWorkers, "busy", s.BusyWorkers, "backlog", s.BackloggedWork)
		case <-sigChan:
			slog.Info("shutdown signal received, draining pool")
			close(stopLoad)
			if err := t.Quit(); err != nil {
				return fmt.Errorf("failed to quit pool: %w", err)
			}
			waitForQuiescence(t)
			slog.Info("pool drained, exiting")
			return nil
		}
	}
}

func buildBenchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a one-shot timed benchmark and print final statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(configFile)
		},
	}
	return cmd
}

func runBench(path string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	t := buildTeam(cfg)

	stopLoad := make(chan struct{})
	go generateLoad(t, cfg.Load.RatePerSecond, stopLoad)

	duration := time.Duration(cfg.Load.DurationSeconds) * time.Second
	start := time.Now()
	time.Sleep(duration)
	close(stopLoad)

	if err := t.Quit(); err != nil {
		return fmt.Errorf("failed to quit pool: %w", err)
	}
	waitForQuiescence(t)

	elapsed := time.Since(start)
	final := t.Statistics()
	fmt.Printf("ran for %s, max_workers=%d, coordinator=%s\n", elapsed, cfg.Team.MaxWorkers, cfg.Team.Coordinator)
	fmt.Printf("final statistics: idle=%d busy=%d backlog=%d\n", final.IdleWorkers, final.BusyWorkers, final.BackloggedWork)
	return nil
}

// generateLoad submits one no-op-ish task (a short sleep, to simulate real
// work) at ratePerSecond until stop is closed.
func generateLoad(t *team.Team, ratePerSecond int, stop <-chan struct{}) {
	if ratePerSecond <= 0 {
		return
	}
	interval := time.Second / time.Duration(ratePerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			err := t.Do(func() {
				time.Sleep(10 * time.Millisecond)
			})
			if err != nil {
				return
			}
		}
	}
}

// waitForQuiescence polls Statistics() until no workers remain busy and the
// backlog is empty, or a generous timeout elapses. Quit() only guarantees
// backlogged work is eventually run, not that it has finished by the time it
// returns.
func waitForQuiescence(t *team.Team) {
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		s := t.Statistics()
		if s.BusyWorkers == 0 && s.BackloggedWork == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}
