package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/umastats/internal/racefeed"
)

// Default configuration constants.
const (
	defaultRows        = 5000
	defaultEntrants    = 18
	defaultTrainers    = 12
	defaultTournaments = 6
	defaultDupRatio    = 0.1
	defaultBatchSize   = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultSettle      = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		rows        = flag.Int("rows", defaultRows, "Number of distinct rows to generate")
		entrants    = flag.Int("entrants", defaultEntrants, "Entrant roster size")
		trainers    = flag.Int("trainers", defaultTrainers, "Trainer roster size")
		tournaments = flag.Int("tournaments", defaultTournaments, "Number of tournaments")
		dup         = flag.Float64("dup", defaultDupRatio, "Share of rows resubmitted as duplicates")
		batch       = flag.Int("batch", defaultBatchSize, "Rows per request")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle      = flag.Duration("settle", defaultSettle, "How long to wait for rows to be aggregated")
		outputFile  = flag.String("output", "", "Write the generated rows to this JSON file")
		logFile     = flag.String("log", "", "Also write logs to this file")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		racefeed.ShowHelp()
		return
	}

	if err := racefeed.SetupLogging(*logFile, *verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &racefeed.Config{
		BaseURL:        *baseURL,
		NumRows:        *rows,
		NumEntrants:    *entrants,
		NumTrainers:    *trainers,
		NumTournaments: *tournaments,
		DuplicateRatio: *dup,
		BatchSize:      *batch,
		Workers:        *workers,
		Timeout:        *timeout,
		SettleTimeout:  *settle,
		OutputFile:     *outputFile,
		LogFile:        *logFile,
		Verbose:        *verbose,
	}

	if _, err := racefeed.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Race feed failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
