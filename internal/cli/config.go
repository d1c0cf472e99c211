// ============================================================================
// teampool CLI - Configuration
// ============================================================================
//
// Package: internal/cli
// File: config.go
// Purpose: YAML-driven configuration for the teampool command: per-concern
//          nested structs (yaml tags) for the three things that actually
//          vary between deployments -- team sizing, metrics, and the
//          synthetic load generator used by `run`/`bench`.
//
// ============================================================================

package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete teampool configuration, loaded from YAML.
type Config struct {
	Team struct {
		MaxWorkers  int    `yaml:"max_workers"`
		QueueSize   int    `yaml:"queue_size"`
		Coordinator string `yaml:"coordinator"` // "lock" or "loop"
	} `yaml:"team"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`

	Load struct {
		RatePerSecond   int `yaml:"rate_per_second"`
		DurationSeconds int `yaml:"duration_seconds"`
	} `yaml:"load"`
}

// defaultConfig matches the sample shipped in configs/default.yaml.
func defaultConfig() Config {
	var cfg Config
	cfg.Team.MaxWorkers = 8
	cfg.Team.QueueSize = 32
	cfg.Team.Coordinator = "lock"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 9090
	cfg.Load.RatePerSecond = 20
	cfg.Load.DurationSeconds = 10
	return cfg
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if cfg.Team.Coordinator != "lock" && cfg.Team.Coordinator != "loop" {
		return nil, fmt.Errorf("team.coordinator must be %q or %q, got %q", "lock", "loop", cfg.Team.Coordinator)
	}

	return &cfg, nil
}
