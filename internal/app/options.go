package service

import (
	"time"

	"github.com/okian/umastats/internal/domain/stats"
	"github.com/okian/umastats/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the row queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many row IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSnapshotInterval sets how often the store republishes its snapshot.
func WithSnapshotInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.snapshotInterval = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDisplayNames maps raw entrant and trainer names to display names.
func WithDisplayNames(aliases map[string]string) Option {
	return func(s *Service) {
		s.formatName = stats.AliasFormatter(aliases)
	}
}

// WithRowsFile loads race rows from a CSV or JSON file on Start.
func WithRowsFile(path string) Option {
	return func(s *Service) { s.rowsFile = path }
}

// WithWinnersFile loads the winners table from a JSON file on Start.
func WithWinnersFile(path string) Option {
	return func(s *Service) { s.winnersFile = path }
}

// WithBansFile loads the bans table from a JSON file on Start.
func WithBansFile(path string) Option {
	return func(s *Service) { s.bansFile = path }
}
