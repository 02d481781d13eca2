// Package racefeed drives a running umastats service with synthetic race
// rows and checks that the aggregated tables account for every row.
package racefeed

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/umastats/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to the console and, when logFile is set,
// to that file as well.
func SetupLogging(logFile string, verbose bool) error {
	var w io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.InitWith(w, logger.FormatText); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := "info"
	if verbose {
		level = "debug"
	}
	return logger.SetLevelString(level)
}

// ShowHelp prints usage information for the race feed tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`umastats race feed
==================

Generates synthetic race rows, uploads winners and bans, posts the rows
(plus a share of deliberate duplicates) and verifies that the aggregated
entrant picks equal the number of accepted rows.

Usage:
  go run ./cmd/race-feed [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -rows int
        Number of distinct rows to generate (default 5000)
  -entrants int
        Entrant roster size (default 18)
  -trainers int
        Trainer roster size (default 12)
  -tournaments int
        Number of tournaments (default 6)
  -dup float
        Share of rows resubmitted as duplicates (default 0.1)
  -batch int
        Rows per request (default 50)
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -settle duration
        How long to wait for rows to be aggregated (default 30s)
  -output string
        Write the generated rows to this JSON file
  -log string
        Also write logs to this file
  -verbose
        Enable verbose logging
  -help
        Show this help message

Roster sizes should stay below the service's max_table_limit so /stats
returns complete tables.
`)
}
