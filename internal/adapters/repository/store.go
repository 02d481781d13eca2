// Package repository holds ingested race rows and the winners and bans
// reference tables.
package repository

import (
	"context"
	"time"

	"github.com/okian/umastats/internal/domain/model"
	"github.com/okian/umastats/internal/domain/types"
)

// Snapshot is an immutable view of the store at one point in time.
type Snapshot struct {
	Rows        []model.RaceRow
	Winners     *types.Table
	Bans        *types.Table
	Tournaments []string // first-seen order
	Version     uint64
	TakenAt     time.Time
}

// Filter returns the snapshot rows matching f. The zero filter returns the
// snapshot's rows without copying.
func (s *Snapshot) Filter(f model.Filter) []model.RaceRow {
	if f.IsZero() {
		return s.Rows
	}
	out := make([]model.RaceRow, 0, len(s.Rows))
	for _, r := range s.Rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Store provides read/write access to race rows and reference tables.
type Store interface {
	// Append adds rows in order.
	Append(ctx context.Context, rows ...model.RaceRow) error

	// Rows returns the rows matching filter in insertion order.
	Rows(ctx context.Context, filter model.Filter) ([]model.RaceRow, error)

	// Query returns one snapshot together with its rows matching filter, so
	// rows and tables are read consistently.
	Query(ctx context.Context, filter model.Filter) (*Snapshot, []model.RaceRow, error)

	// SetWinners replaces the winning trainers of a tournament.
	SetWinners(ctx context.Context, tournamentID string, trainers []string) error

	// SetBans replaces the banned entrants of a tournament.
	SetBans(ctx context.Context, tournamentID string, entrants []string) error

	// DeleteWinners removes the winners entry of a tournament, if any.
	DeleteWinners(ctx context.Context, tournamentID string) error

	// DeleteBans removes the bans entry of a tournament, if any.
	DeleteBans(ctx context.Context, tournamentID string) error

	// ReplaceTables swaps in whole reference tables. A nil table leaves the
	// current one untouched.
	ReplaceTables(ctx context.Context, winners, bans *types.Table) error

	// Snapshot returns a consistent view of rows and tables.
	Snapshot(ctx context.Context) *Snapshot

	// Count returns the number of stored rows.
	Count(ctx context.Context) int

	Close() error
}
