package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/umastats/internal/domain/model"
	"github.com/okian/umastats/internal/domain/types"
	"github.com/okian/umastats/pkg/metrics"
)

const (
	defaultSnapshotInterval = time.Second
	defaultCapacityHint     = 1024
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an append-only, in-memory Store. Writers take a mutex;
// readers use the most recently published Snapshot, which is rebuilt on
// demand when stale and refreshed in the background on an interval.
type MemoryStore struct {
	mu          sync.RWMutex
	rows        []model.RaceRow
	winners     *types.Table // nil until a winners list is provided
	bans        *types.Table // nil until a bans list is provided
	tournaments []string
	seenTourney map[string]struct{}
	closed      bool

	version          atomic.Uint64
	snapshot         atomic.Pointer[Snapshot]
	snapshotInterval time.Duration
	capacityHint     int

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs a store and starts its snapshot publisher, which
// stops when ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		snapshotInterval: defaultSnapshotInterval,
		capacityHint:     defaultCapacityHint,
		seenTourney:      make(map[string]struct{}),
		stopChan:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rows = make([]model.RaceRow, 0, s.capacityHint)

	s.publishSnapshot()
	s.startPeriodicSnapshots(ctx)
	return s
}

func (s *MemoryStore) startPeriodicSnapshots(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				if snap := s.snapshot.Load(); snap == nil || snap.Version != s.version.Load() {
					s.publishSnapshot()
				}
			}
		}
	}()
}

// Close stops the snapshot publisher. Later writes fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.stopChan)
	})
	s.wg.Wait()
	return nil
}

// Append implements Store.Append.
func (s *MemoryStore) Append(ctx context.Context, rows ...model.RaceRow) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("append rows: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.rows = append(s.rows, rows...)
	for _, r := range rows {
		if _, ok := s.seenTourney[r.TournamentID]; !ok {
			s.seenTourney[r.TournamentID] = struct{}{}
			s.tournaments = append(s.tournaments, r.TournamentID)
		}
	}
	n, t := len(s.rows), len(s.tournaments)
	s.version.Add(1)
	s.mu.Unlock()

	metrics.UpdateStoreRows(n)
	metrics.UpdateStoreTournaments(t)
	metrics.RecordStoreAppendLatency(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

// Rows implements Store.Rows. The returned slice is owned by the caller.
func (s *MemoryStore) Rows(ctx context.Context, filter model.Filter) ([]model.RaceRow, error) {
	_, rows, err := s.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	if filter.IsZero() {
		return slices.Clone(rows), nil
	}
	return rows, nil
}

// Query implements Store.Query. With the zero filter the rows are the
// snapshot's own slice and must not be modified.
func (s *MemoryStore) Query(ctx context.Context, filter model.Filter) (*Snapshot, []model.RaceRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("query rows: %w", err)
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	snap := s.Snapshot(ctx)
	return snap, snap.Filter(filter), nil
}

// SetWinners implements Store.SetWinners.
func (s *MemoryStore) SetWinners(ctx context.Context, tournamentID string, trainers []string) error {
	return s.setEntry(ctx, &s.winners, tournamentID, trainers)
}

// SetBans implements Store.SetBans.
func (s *MemoryStore) SetBans(ctx context.Context, tournamentID string, entrants []string) error {
	return s.setEntry(ctx, &s.bans, tournamentID, entrants)
}

func (s *MemoryStore) setEntry(ctx context.Context, tbl **types.Table, tournamentID string, names []string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("set table entry: %w", err)
	}
	if tournamentID == "" {
		return ErrEmptyTournament
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	// Tables are copied on write so published snapshots stay immutable.
	next := (*tbl).Clone()
	if next == nil {
		next = types.NewTable()
	}
	next.Set(tournamentID, names)
	*tbl = next
	s.version.Add(1)
	return nil
}

// DeleteWinners implements Store.DeleteWinners.
func (s *MemoryStore) DeleteWinners(ctx context.Context, tournamentID string) error {
	return s.deleteEntry(ctx, &s.winners, tournamentID)
}

// DeleteBans implements Store.DeleteBans.
func (s *MemoryStore) DeleteBans(ctx context.Context, tournamentID string) error {
	return s.deleteEntry(ctx, &s.bans, tournamentID)
}

func (s *MemoryStore) deleteEntry(ctx context.Context, tbl **types.Table, tournamentID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete table entry: %w", err)
	}
	if tournamentID == "" {
		return ErrEmptyTournament
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := (*tbl).Get(tournamentID); !ok {
		return nil
	}
	// A table that loses its last entry stays provided, just empty.
	next := (*tbl).Clone()
	next.Delete(tournamentID)
	*tbl = next
	s.version.Add(1)
	return nil
}

// ReplaceTables implements Store.ReplaceTables.
func (s *MemoryStore) ReplaceTables(ctx context.Context, winners, bans *types.Table) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("replace tables: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if winners != nil {
		s.winners = winners.Clone()
	}
	if bans != nil {
		s.bans = bans.Clone()
	}
	s.version.Add(1)
	return nil
}

// Snapshot implements Store.Snapshot. It never returns nil.
func (s *MemoryStore) Snapshot(_ context.Context) *Snapshot {
	if snap := s.snapshot.Load(); snap != nil && snap.Version == s.version.Load() {
		return snap
	}
	return s.publishSnapshot()
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// publishSnapshot builds a snapshot from the live state and publishes it
// unless a newer one got there first. It returns whichever is newer.
func (s *MemoryStore) publishSnapshot() *Snapshot {
	start := time.Now()

	s.mu.RLock()
	n := len(s.rows)
	snap := &Snapshot{
		// Rows are append-only, so a capped view of the backing array never
		// changes under readers.
		Rows:        s.rows[:n:n],
		Winners:     s.winners,
		Bans:        s.bans,
		Tournaments: slices.Clone(s.tournaments),
		Version:     s.version.Load(),
		TakenAt:     start,
	}
	s.mu.RUnlock()

	for {
		old := s.snapshot.Load()
		if old != nil && old.Version >= snap.Version {
			return old
		}
		if s.snapshot.CompareAndSwap(old, snap) {
			break
		}
	}

	metrics.RecordSnapshot(float64(time.Since(start).Microseconds())/1000, time.Now().Unix())
	return snap
}
