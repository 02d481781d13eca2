// Package stats aggregates race rows into per-entrant and per-trainer tables.
//
// Compute is pure: it reads the rows and the optional winners and bans tables,
// builds fresh accumulators and returns plain values. It performs no I/O and
// keeps no state between calls.
package stats

import (
	"github.com/okian/umastats/internal/domain/model"
	"github.com/okian/umastats/internal/domain/types"
)

// EntrantStats summarises one entrant (Uma) across the input rows.
type EntrantStats struct {
	Name           string    `json:"name"`
	DisplayName    string    `json:"display_name"`
	Picks          int       `json:"picks"`
	Wins           int       `json:"wins"`
	TotalShare     float64   `json:"total_share"`
	TourneyWins    int       `json:"tourney_wins"`
	Bans           int       `json:"bans"`
	Dominance      Dominance `json:"dominance"`
	TourneyWinRate Rate      `json:"tourney_win_rate"`
	BanRate        Rate      `json:"ban_rate"`
}

// HistoryEntry counts how often a trainer picked an entrant and how many wins
// that entrant brought.
type HistoryEntry struct {
	Name  string `json:"name"`
	Picks int    `json:"picks"`
	Wins  int    `json:"wins"`
}

// Pick is a history entry singled out for display (favorite or ace).
type Pick struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Picks       int    `json:"picks"`
	Wins        int    `json:"wins"`
}

// OperatorStats summarises one trainer across the input rows.
type OperatorStats struct {
	Name              string         `json:"name"`
	DisplayName       string         `json:"display_name"`
	Entries           int            `json:"entries"`
	Wins              int            `json:"wins"`
	TotalShare        float64        `json:"total_share"`
	CharacterHistory  []HistoryEntry `json:"character_history"`
	PlayedTournaments []string       `json:"played_tournaments"`
	TournamentWins    int            `json:"tournament_wins"`
	Dominance         Dominance      `json:"dominance"`
	TourneyWinRate    Rate           `json:"tourney_win_rate"`
	Favorite          *Pick          `json:"favorite"`
	Ace               *Pick          `json:"ace"`
}

// Result holds both output tables in first-seen order.
type Result struct {
	Entrants  []EntrantStats  `json:"entrant_stats"`
	Operators []OperatorStats `json:"operator_stats"`
	// BanTournaments is the ban-rate denominator: tournaments present in the
	// rows that also have a ban list.
	BanTournaments int `json:"ban_tournaments"`
}

// ordered is a string-keyed accumulator that remembers first-insertion order.
type ordered[V any] struct {
	index map[string]int
	items []*V
}

func newOrdered[V any]() *ordered[V] {
	return &ordered[V]{index: make(map[string]int)}
}

func (o *ordered[V]) getOrInsert(key string, init func() *V) *V {
	if i, ok := o.index[key]; ok {
		return o.items[i]
	}
	v := init()
	o.index[key] = len(o.items)
	o.items = append(o.items, v)
	return v
}

type entrantAcc struct {
	name        string
	picks       int
	wins        int
	totalShare  float64
	tourneyWins int
	bans        int
}

type operatorAcc struct {
	name           string
	entries        int
	wins           int
	totalShare     float64
	history        *ordered[HistoryEntry]
	played         *ordered[string]
	tournamentWins int
}

// Compute aggregates rows into entrant and trainer statistics. winners and
// bans may be nil, in which case every winner- or ban-derived counter is zero.
//
// Rows must carry non-empty names and tournament IDs, non-negative wins and a
// finite win share; see ValidateRows. Compute does not check this.
func Compute(rows []model.RaceRow, winners, bans *types.Table, opts ...Option) Result {
	cfg := settings{formatName: PlainName}
	for _, opt := range opts {
		opt(&cfg)
	}

	active := make(map[string]struct{})
	entrants := newOrdered[entrantAcc]()
	operators := newOrdered[operatorAcc]()

	for _, r := range rows {
		active[r.TournamentID] = struct{}{}

		e := entrants.getOrInsert(r.UniqueName, func() *entrantAcc {
			return &entrantAcc{name: r.UniqueName}
		})
		e.picks++
		e.wins += r.Wins
		e.totalShare += r.WinShare
		// Counted per row: the same trainer and entrant winning several races of
		// one tournament adds one per race.
		if winners.Contains(r.TournamentID, r.Trainer) {
			e.tourneyWins++
		}

		op := operators.getOrInsert(r.Trainer, func() *operatorAcc {
			return &operatorAcc{name: r.Trainer, history: newOrdered[HistoryEntry](), played: newOrdered[string]()}
		})
		op.entries++
		op.wins += r.Wins
		op.totalShare += r.WinShare
		op.played.getOrInsert(r.TournamentID, func() *string {
			id := r.TournamentID
			return &id
		})
		h := op.history.getOrInsert(r.UniqueName, func() *HistoryEntry {
			return &HistoryEntry{Name: r.UniqueName}
		})
		h.Picks++
		h.Wins += r.Wins
	}

	// Counted once per distinct tournament.
	for _, op := range operators.items {
		for _, id := range op.played.items {
			if winners.Contains(*id, op.name) {
				op.tournamentWins++
			}
		}
	}

	banTournaments := 0
	for _, id := range bans.Keys() {
		if _, ok := active[id]; !ok {
			continue
		}
		banTournaments++
		names, _ := bans.Get(id)
		for _, name := range names {
			e := entrants.getOrInsert(name, func() *entrantAcc {
				return &entrantAcc{name: name}
			})
			e.bans++
		}
	}

	res := Result{
		Entrants:       make([]EntrantStats, 0, len(entrants.items)),
		Operators:      make([]OperatorStats, 0, len(operators.items)),
		BanTournaments: banTournaments,
	}
	for _, e := range entrants.items {
		res.Entrants = append(res.Entrants, e.build(cfg.formatName, banTournaments))
	}
	for _, op := range operators.items {
		res.Operators = append(res.Operators, op.build(cfg.formatName))
	}
	return res
}

func (e *entrantAcc) build(formatName NameFormatter, banTournaments int) EntrantStats {
	return EntrantStats{
		Name:           e.name,
		DisplayName:    formatName(e.name),
		Picks:          e.picks,
		Wins:           e.wins,
		TotalShare:     e.totalShare,
		TourneyWins:    e.tourneyWins,
		Bans:           e.bans,
		Dominance:      newDominance(e.totalShare, e.picks),
		TourneyWinRate: newRate(e.tourneyWins, e.picks),
		BanRate:        newRate(e.bans, banTournaments),
	}
}

func (op *operatorAcc) build(formatName NameFormatter) OperatorStats {
	out := OperatorStats{
		Name:              op.name,
		DisplayName:       formatName(op.name),
		Entries:           op.entries,
		Wins:              op.wins,
		TotalShare:        op.totalShare,
		CharacterHistory:  make([]HistoryEntry, 0, len(op.history.items)),
		PlayedTournaments: make([]string, 0, len(op.played.items)),
		TournamentWins:    op.tournamentWins,
		Dominance:         newDominance(op.totalShare, op.entries),
		TourneyWinRate:    newRate(op.tournamentWins, len(op.played.items)),
	}
	for _, h := range op.history.items {
		out.CharacterHistory = append(out.CharacterHistory, *h)
	}
	for _, id := range op.played.items {
		out.PlayedTournaments = append(out.PlayedTournaments, *id)
	}
	if fav, ok := favorite(out.CharacterHistory); ok {
		out.Favorite = toPick(fav, formatName)
	}
	if best, ok := ace(out.CharacterHistory); ok {
		out.Ace = toPick(best, formatName)
	}
	return out
}

// favorite returns the most picked entrant; the earliest wins ties.
func favorite(history []HistoryEntry) (HistoryEntry, bool) {
	if len(history) == 0 {
		return HistoryEntry{}, false
	}
	best := history[0]
	for _, h := range history[1:] {
		if h.Picks > best.Picks {
			best = h
		}
	}
	return best, true
}

// ace returns the entrant with the most wins, preferring fewer picks and then
// the earliest on ties. There is no ace when the best candidate never won.
func ace(history []HistoryEntry) (HistoryEntry, bool) {
	if len(history) == 0 {
		return HistoryEntry{}, false
	}
	best := history[0]
	for _, h := range history[1:] {
		if h.Wins > best.Wins || (h.Wins == best.Wins && h.Picks < best.Picks) {
			best = h
		}
	}
	if best.Wins == 0 {
		return HistoryEntry{}, false
	}
	return best, true
}

func toPick(h HistoryEntry, formatName NameFormatter) *Pick {
	return &Pick{Name: h.Name, DisplayName: formatName(h.Name), Picks: h.Picks, Wins: h.Wins}
}
