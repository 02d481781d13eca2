package racefeed

import (
	"errors"
	"fmt"
	"time"
)

// Config holds configuration for a feed run.
type Config struct {
	BaseURL        string        // Base URL of the service
	NumRows        int           // Number of distinct rows to generate
	NumEntrants    int           // Size of the entrant roster
	NumTrainers    int           // Size of the trainer roster
	NumTournaments int           // Number of tournaments rows are spread over
	DuplicateRatio float64       // Share of rows submitted a second time
	BatchSize      int           // Rows per POST /races request
	Workers        int           // Number of concurrent submitters
	Timeout        time.Duration // HTTP request timeout
	SettleTimeout  time.Duration // How long to poll /stats for the rows to land
	OutputFile     string        // Output file for generated rows
	LogFile        string        // Log file for feed output
	Verbose        bool          // Enable verbose logging
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid race feed config")

// Validate checks that the configuration can produce a run.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: url is empty", ErrInvalidConfig)
	case c.NumRows < 1:
		return fmt.Errorf("%w: rows must be positive", ErrInvalidConfig)
	case c.NumEntrants < 1, c.NumTrainers < 1, c.NumTournaments < 1:
		return fmt.Errorf("%w: rosters must be non-empty", ErrInvalidConfig)
	case c.DuplicateRatio < 0 || c.DuplicateRatio > 1:
		return fmt.Errorf("%w: duplicate ratio must be within [0,1]", ErrInvalidConfig)
	case c.BatchSize < 1, c.Workers < 1:
		return fmt.Errorf("%w: batch size and workers must be positive", ErrInvalidConfig)
	}
	return nil
}

// Row is one race row as submitted to POST /races.
type Row struct {
	ID           string  `json:"id"`
	UniqueName   string  `json:"uniqueName"`
	Trainer      string  `json:"trainer"`
	TournamentID string  `json:"tournamentId"`
	Wins         int     `json:"wins"`
	WinShare     float64 `json:"winShare"`
}

// Plan is the generated workload: rows plus the reference tables.
type Plan struct {
	Rows    []Row
	Winners map[string][]string
	Bans    map[string][]string
	// Tournaments lists tournament IDs in generation order.
	Tournaments []string
}

// AckResponse represents the response from row submission.
type AckResponse struct {
	Status     string   `json:"status"`
	Duplicate  bool     `json:"duplicate"`
	Accepted   int      `json:"accepted"`
	Duplicates int      `json:"duplicates"`
	IDs        []string `json:"ids"`
}

// Stats holds feed statistics.
type Stats struct {
	RowsGenerated   int
	RowsSubmitted   int
	RowsAccepted    int
	RowsDuplicate   int
	RowsFailed      int
	RequestsFailed  int
	EntrantsSeen    int
	OperatorsSeen   int
	PicksAggregated int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
