package stats

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Sort keys accepted by SortEntrants and SortOperators.
const (
	SortName           = "name"
	SortPicks          = "picks"
	SortWins           = "wins"
	SortShare          = "share"
	SortDominance      = "dominance"
	SortTourneyWins    = "tourneyWins"
	SortBans           = "bans"
	SortEntries        = "entries"
	SortTournamentWins = "tournamentWins"
)

// Order is the direction of a sort.
type Order int

// Sort directions. Descending is the zero value.
const (
	Descending Order = iota
	Ascending
)

// ParseOrder maps "asc"/"desc" (any case) to an Order. Empty means Descending.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc":
		return Descending, nil
	case "asc":
		return Ascending, nil
	default:
		return Descending, fmt.Errorf("%w: %q", ErrUnknownSortOrder, s)
	}
}

var entrantKeys = map[string]func(a, b EntrantStats) int{
	SortName:        func(a, b EntrantStats) int { return strings.Compare(a.DisplayName, b.DisplayName) },
	SortPicks:       func(a, b EntrantStats) int { return cmp.Compare(a.Picks, b.Picks) },
	SortWins:        func(a, b EntrantStats) int { return cmp.Compare(a.Wins, b.Wins) },
	SortShare:       func(a, b EntrantStats) int { return cmp.Compare(a.TotalShare, b.TotalShare) },
	SortDominance:   func(a, b EntrantStats) int { return cmp.Compare(a.Dominance.Float(), b.Dominance.Float()) },
	SortTourneyWins: func(a, b EntrantStats) int { return cmp.Compare(a.TourneyWins, b.TourneyWins) },
	SortBans:        func(a, b EntrantStats) int { return cmp.Compare(a.Bans, b.Bans) },
}

var operatorKeys = map[string]func(a, b OperatorStats) int{
	SortName:           func(a, b OperatorStats) int { return strings.Compare(a.DisplayName, b.DisplayName) },
	SortEntries:        func(a, b OperatorStats) int { return cmp.Compare(a.Entries, b.Entries) },
	SortWins:           func(a, b OperatorStats) int { return cmp.Compare(a.Wins, b.Wins) },
	SortShare:          func(a, b OperatorStats) int { return cmp.Compare(a.TotalShare, b.TotalShare) },
	SortDominance:      func(a, b OperatorStats) int { return cmp.Compare(a.Dominance.Float(), b.Dominance.Float()) },
	SortTournamentWins: func(a, b OperatorStats) int { return cmp.Compare(a.TournamentWins, b.TournamentWins) },
}

// SortEntrants sorts entrants in place by key. Equal elements keep their
// relative order. An empty key leaves the slice untouched.
func SortEntrants(entrants []EntrantStats, key string, order Order) error {
	return sortBy(entrants, entrantKeys, key, order)
}

// SortOperators sorts trainers in place by key. "picks" is accepted as an
// alias for "entries".
func SortOperators(operators []OperatorStats, key string, order Order) error {
	if key == SortPicks {
		key = SortEntries
	}
	return sortBy(operators, operatorKeys, key, order)
}

func sortBy[T any](items []T, keys map[string]func(a, b T) int, key string, order Order) error {
	if key == "" {
		return nil
	}
	compare, ok := keys[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSortKey, key)
	}
	if order == Descending {
		slices.SortStableFunc(items, func(a, b T) int { return compare(b, a) })
		return nil
	}
	slices.SortStableFunc(items, compare)
	return nil
}
