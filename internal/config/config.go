// Package config defines service configuration and its defaults.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Blocking functions accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory ingestion queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of workers draining the queue.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many row IDs are remembered for idempotent ingest.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxTableLimit caps the limit query parameter on stats endpoints.
	MaxTableLimit int `koanf:"max_table_limit"`

	// SnapshotIntervalMS sets how often the store republishes its snapshot.
	SnapshotIntervalMS int `koanf:"snapshot_interval_ms"`

	// RowsFile, WinnersFile and BansFile are loaded at startup when set.
	RowsFile    string `koanf:"rows_file"`
	WinnersFile string `koanf:"winners_file"`
	BansFile    string `koanf:"bans_file"`

	// DisplayNames maps raw entrant or trainer names to display names.
	DisplayNames map[string]string `koanf:"display_names"`
}

// New creates a Config with defaults. Context is accepted first to follow the
// project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		QueueSize:          100_000,
		WorkerCount:        runtime.NumCPU(),
		DedupeSize:         500_000,
		MaxTableLimit:      1000,
		SnapshotIntervalMS: 1000,
	}
}

// SnapshotInterval returns SnapshotIntervalMS as a duration.
func (c *Config) SnapshotInterval() time.Duration {
	return time.Duration(c.SnapshotIntervalMS) * time.Millisecond
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.MaxTableLimit <= 0:
		return fmt.Errorf("%w: max_table_limit must be positive, got %d", ErrInvalidConfig, c.MaxTableLimit)
	case c.SnapshotIntervalMS <= 0:
		return fmt.Errorf("%w: snapshot_interval_ms must be positive, got %d", ErrInvalidConfig, c.SnapshotIntervalMS)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
