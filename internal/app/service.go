// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/umastats/internal/adapters/loader"
	rowqueue "github.com/okian/umastats/internal/adapters/mq/queue"
	workerpool "github.com/okian/umastats/internal/adapters/mq/worker"
	"github.com/okian/umastats/internal/adapters/repository"
	"github.com/okian/umastats/internal/domain/dedupe"
	"github.com/okian/umastats/internal/domain/model"
	"github.com/okian/umastats/internal/domain/stats"
	"github.com/okian/umastats/internal/domain/types"
	"github.com/okian/umastats/pkg/logger"
	"github.com/okian/umastats/pkg/metrics"
)

// Service implements the API dependencies for the stats aggregator.
type Service struct {
	mu sync.RWMutex
	// ingestMu serializes dedupe checks with their enqueue so an ID is only
	// reported as a duplicate once the row holding it is queued.
	ingestMu sync.Mutex

	// Core components
	store    repository.Store
	deduper  dedupe.Deduper
	rowQueue *rowqueue.InMemoryQueue
	pool     *workerpool.Pool

	// Configuration
	workerCount      int
	queueSize        int
	dedupeSize       int
	snapshotInterval time.Duration
	formatName       stats.NameFormatter
	rowsFile         string
	winnersFile      string
	bansFile         string

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU(),
		queueSize:        100_000,
		dedupeSize:       500_000,
		snapshotInterval: time.Second,
		formatName:       stats.PlainName,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the store, queue and workers, then loads any configured
// data files. Calling Start on a running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting stats service...")

	// Components outlive the Start call; they stop on Stop.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	var store repository.Store = repository.NewMemoryStore(runCtx, repository.WithSnapshotInterval(s.snapshotInterval))
	deduper := dedupe.NewRowDeduper(dedupe.WithCapacity(s.dedupeSize))
	q := rowqueue.NewInMemoryQueue(rowqueue.WithCapacity(s.queueSize))

	if err := s.loadFiles(ctx, store, deduper); err != nil {
		cancel()
		_ = q.Close()
		_ = store.Close()
		return err
	}

	pool := workerpool.NewPool(s.workerCount, q, store,
		workerpool.WithFailureHandler(func(ctx context.Context, rows []model.RaceRow, err error) {
			// Failed rows may be resubmitted.
			for _, r := range rows {
				deduper.Forget(ctx, r.ID)
			}
			metrics.RecordErrorByComponent("store", "append_failed")
		}),
	)
	pool.Start(runCtx)

	s.store, s.deduper, s.rowQueue, s.pool = store, deduper, q, pool
	s.cancel = cancel
	s.started = true
	s.startedAt = time.Now()

	s.logger.Info(ctx, "stats service started",
		logger.Int("workers", pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("rows", store.Count(ctx)),
	)
	return nil
}

// loadFiles seeds the store from the configured rows, winners and bans files.
func (s *Service) loadFiles(ctx context.Context, store repository.Store, deduper dedupe.Deduper) error {
	if s.rowsFile != "" {
		rows, err := loader.LoadRowsFile(s.rowsFile)
		if err != nil {
			return fmt.Errorf("%w: rows file %s: %w", ErrLoadData, s.rowsFile, err)
		}
		kept := rows[:0]
		for _, r := range rows {
			if r.ID == "" {
				r.ID = uuid.NewString()
			}
			if deduper.SeenAndRecord(ctx, r.ID) {
				continue
			}
			kept = append(kept, r)
		}
		if err := store.Append(ctx, kept...); err != nil {
			return fmt.Errorf("%w: %w", ErrLoadData, err)
		}
		s.logger.Info(ctx, "loaded race rows",
			logger.String("file", s.rowsFile),
			logger.Int("rows", len(kept)),
		)
	}

	var winners, bans *types.Table
	if s.winnersFile != "" {
		t, err := loader.LoadTableFile(s.winnersFile)
		if err != nil {
			return fmt.Errorf("%w: winners file %s: %w", ErrLoadData, s.winnersFile, err)
		}
		winners = t
	}
	if s.bansFile != "" {
		t, err := loader.LoadTableFile(s.bansFile)
		if err != nil {
			return fmt.Errorf("%w: bans file %s: %w", ErrLoadData, s.bansFile, err)
		}
		bans = t
	}
	if winners == nil && bans == nil {
		return nil
	}
	if err := store.ReplaceTables(ctx, winners, bans); err != nil {
		return fmt.Errorf("%w: %w", ErrLoadData, err)
	}
	return nil
}

// Stop drains the queue into the store and shuts every component down.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping stats service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("worker pool: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "stats service stopped", logger.Int("rows", s.store.Count(ctx)))
	return errors.Join(errs...)
}

// running returns the components of a started service.
func (s *Service) running() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// Ingest validates rows, assigns IDs to rows without one, drops rows whose ID
// was already seen and enqueues the rest as one batch. Either every new row is
// queued or none is. Concurrent calls are serialized between the dedupe check
// and the enqueue, so a row reported as a duplicate is always queued.
func (s *Service) Ingest(ctx context.Context, rows []model.RaceRow) (types.IngestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return types.IngestResult{}, ErrNotStarted
	}
	if err := stats.ValidateRows(rows); err != nil {
		for range rows {
			metrics.RecordRowRejected()
		}
		return types.IngestResult{}, err
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	res := types.IngestResult{IDs: make([]string, 0, len(rows))}
	fresh := make([]model.RaceRow, 0, len(rows))
	for _, r := range rows {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		res.IDs = append(res.IDs, r.ID)
		if s.deduper.SeenAndRecord(ctx, r.ID) {
			res.Duplicates++
			metrics.RecordRowDuplicate()
			s.logger.Debug(ctx, "duplicate row skipped", logger.String("id", r.ID))
			continue
		}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return res, nil
	}

	if err := s.rowQueue.EnqueueBatch(ctx, fresh); err != nil {
		for _, r := range fresh {
			s.deduper.Forget(ctx, r.ID)
		}
		return types.IngestResult{}, fmt.Errorf("enqueue %d rows: %w", len(fresh), err)
	}
	res.Accepted = len(fresh)
	return res, nil
}

// Stats aggregates the rows matching q.Filter against one consistent
// snapshot, sorts both tables by q.Sort and truncates them to q.Limit.
func (s *Service) Stats(ctx context.Context, q stats.Query) (stats.Result, error) {
	store, err := s.running()
	if err != nil {
		return stats.Result{}, err
	}

	start := time.Now()
	snap, rows, err := store.Query(ctx, q.Filter)
	if err != nil {
		return stats.Result{}, err
	}
	res := stats.Compute(rows, snap.Winners, snap.Bans, stats.WithNameFormatter(s.formatName))

	if err := q.Apply(&res); err != nil {
		return stats.Result{}, err
	}

	metrics.RecordAggregation(float64(time.Since(start).Microseconds())/1000,
		len(res.Entrants), len(res.Operators), res.BanTournaments)
	return res, nil
}

// SetWinners replaces the winning trainers of a tournament.
func (s *Service) SetWinners(ctx context.Context, tournamentID string, trainers []string) error {
	store, err := s.running()
	if err != nil {
		return err
	}
	if err := store.SetWinners(ctx, tournamentID, trainers); err != nil {
		return err
	}
	s.logger.Debug(ctx, "winners updated",
		logger.String("tournament", tournamentID),
		logger.Strings("trainers", trainers),
	)
	return nil
}

// SetBans replaces the banned entrants of a tournament.
func (s *Service) SetBans(ctx context.Context, tournamentID string, entrants []string) error {
	store, err := s.running()
	if err != nil {
		return err
	}
	if err := store.SetBans(ctx, tournamentID, entrants); err != nil {
		return err
	}
	s.logger.Debug(ctx, "bans updated",
		logger.String("tournament", tournamentID),
		logger.Strings("entrants", entrants),
	)
	return nil
}

// DeleteWinners removes the winners entry of a tournament.
func (s *Service) DeleteWinners(ctx context.Context, tournamentID string) error {
	store, err := s.running()
	if err != nil {
		return err
	}
	return store.DeleteWinners(ctx, tournamentID)
}

// DeleteBans removes the bans entry of a tournament.
func (s *Service) DeleteBans(ctx context.Context, tournamentID string) error {
	store, err := s.running()
	if err != nil {
		return err
	}
	return store.DeleteBans(ctx, tournamentID)
}

// Tournaments lists active tournaments in first-seen order followed by
// tournaments that only appear in the reference tables.
func (s *Service) Tournaments(ctx context.Context) ([]types.Tournament, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	snap := store.Snapshot(ctx)

	out := make([]types.Tournament, 0, len(snap.Tournaments))
	seen := make(map[string]struct{}, len(snap.Tournaments))
	add := func(id string, active bool) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		info := types.Tournament{ID: id, Active: active, Winners: []string{}, Bans: []string{}}
		if w, ok := snap.Winners.Get(id); ok && w != nil {
			info.Winners = w
		}
		if b, ok := snap.Bans.Get(id); ok && b != nil {
			info.Bans = b
		}
		out = append(out, info)
	}
	for _, id := range snap.Tournaments {
		add(id, true)
	}
	for _, id := range snap.Winners.Keys() {
		add(id, false)
	}
	for _, id := range snap.Bans.Keys() {
		add(id, false)
	}
	return out, nil
}

// Count returns the number of stored rows, or zero before Start.
func (s *Service) Count(ctx context.Context) int {
	store, err := s.running()
	if err != nil {
		return 0
	}
	return store.Count(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	out := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		snap := s.store.Snapshot(ctx)
		queueLen := s.rowQueue.Len(ctx)

		out["queueLength"] = queueLen
		out["rows"] = len(snap.Rows)
		out["tournaments"] = len(snap.Tournaments)
		out["snapshotVersion"] = snap.Version
		out["dedupeEntries"] = s.deduper.Len()
		out["uptime"] = time.Since(s.startedAt).Round(time.Second).String()

		metrics.UpdateQueue(queueLen, s.rowQueue.Cap())
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	return out
}
