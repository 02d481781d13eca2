// Package model contains domain models passed between layers.
package model

// RaceRow is one race participation record: an entrant run by a trainer in a
// tournament, with its wins and fractional win share.
type RaceRow struct {
	ID           string  `json:"id,omitempty"` // ingestion idempotency key, ignored by aggregation
	UniqueName   string  `json:"unique_name"`
	Trainer      string  `json:"trainer"`
	TournamentID string  `json:"tournament_id"`
	Wins         int     `json:"wins"`
	WinShare     float64 `json:"win_share"`
}

// Filter selects race rows. Empty lists match everything; non-empty lists are
// allow-lists combined with AND.
type Filter struct {
	Tournaments []string
	Trainers    []string
	Entrants    []string
}

// IsZero reports whether the filter matches every row.
func (f Filter) IsZero() bool {
	return len(f.Tournaments) == 0 && len(f.Trainers) == 0 && len(f.Entrants) == 0
}

// Match reports whether r passes the filter.
func (f Filter) Match(r RaceRow) bool {
	return allowed(f.Tournaments, r.TournamentID) &&
		allowed(f.Trainers, r.Trainer) &&
		allowed(f.Entrants, r.UniqueName)
}

func allowed(list []string, v string) bool {
	if len(list) == 0 {
		return true
	}
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
