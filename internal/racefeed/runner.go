package racefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/umastats/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run executes the complete feed: health check, generation, table upload,
// submission with deliberate duplicates, settling and verification.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting race feed",
		logger.String("baseURL", config.BaseURL),
		logger.Int("rows", config.NumRows),
		logger.Int("workers", config.Workers),
		logger.Int("batchSize", config.BatchSize),
		logger.Float64("duplicateRatio", config.DuplicateRatio),
		logger.Duration("timeout", config.Timeout),
	)

	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	plan, err := generatePlan(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("row generation failed: %w", err)
	}

	if err := putTables(ctx, config, plan); err != nil {
		return stats, fmt.Errorf("table upload failed: %w", err)
	}

	if err := submitRows(ctx, config, plan.Rows, stats); err != nil {
		return stats, fmt.Errorf("row submission failed: %w", err)
	}
	if dups := duplicates(plan.Rows, config.DuplicateRatio); len(dups) > 0 {
		if err := submitRows(ctx, config, dups, stats); err != nil {
			return stats, fmt.Errorf("duplicate submission failed: %w", err)
		}
	}

	got, err := awaitStats(ctx, config, stats.RowsAccepted)
	if err != nil {
		return stats, fmt.Errorf("stats retrieval failed: %w", err)
	}
	if err := verifyResults(ctx, plan, got, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	if config.OutputFile != "" {
		if err := saveRowsToFile(ctx, config.OutputFile, plan.Rows); err != nil {
			logger.Get().Warn(ctx, "failed to save rows to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	logger.Get().Info(ctx, "race feed completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	status, _, err := newHTTPClient(config.Timeout).Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	// Any 200 is healthy; the body is the Prometheus exposition.
	if status != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveRowsToFile writes rows as a JSON array the service can load back
// through its rows_file setting.
func saveRowsToFile(ctx context.Context, filename string, rows []Row) error {
	if len(rows) == 0 {
		return fmt.Errorf("no rows to save")
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}

	logger.Get().Info(ctx, "rows saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final feed statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, rowsPerSecond float64
	if stats.RowsSubmitted > 0 {
		acceptRate = float64(stats.RowsAccepted) / float64(stats.RowsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		rowsPerSecond = float64(stats.RowsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("rowsGenerated", stats.RowsGenerated),
		logger.Int("rowsSubmitted", stats.RowsSubmitted),
		logger.Int("rowsAccepted", stats.RowsAccepted),
		logger.Int("rowsDuplicate", stats.RowsDuplicate),
		logger.Int("rowsFailed", stats.RowsFailed),
		logger.Int("requestsFailed", stats.RequestsFailed),
		logger.Int("entrants", stats.EntrantsSeen),
		logger.Int("operators", stats.OperatorsSeen),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("rowsPerSecond", rowsPerSecond),
	)
}
