package racefeed

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okian/umastats/pkg/logger"
)

// Generation constants.
const (
	maxWinsPerRow      = 3
	shareFloor         = 0.5
	randomFloatDivisor = 1000000
	shareDecimals      = 2
	maxBansPerEntry    = 2
	ctxCheckEvery      = 4096
	// unraced is a ban-table key with no rows; it never counts toward ban rates.
	unraced = "Exhibition"
)

// randomInt returns a uniform integer in [0, n) using crypto/rand.
func randomInt(n int) int {
	if n <= 1 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// randomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func randomFloat() float64 {
	return float64(randomInt(randomFloatDivisor)) / float64(randomFloatDivisor)
}

// Roster names.
func entrantName(i int) string    { return fmt.Sprintf("Uma %02d", i) }
func trainerName(i int) string    { return fmt.Sprintf("Trainer %02d", i) }
func tournamentName(i int) string { return fmt.Sprintf("Open %d", i+1) }

// generatePlan builds NumRows rows spread round-robin over the tournaments,
// one winner per tournament drawn from its own trainers, and ban lists for
// every other tournament plus one tournament that has no rows.
func generatePlan(ctx context.Context, config *Config, stats *Stats) (*Plan, error) {
	logger.Get().Info(ctx, "generating race rows", logger.Int("rows", config.NumRows))

	plan := &Plan{
		Rows:        make([]Row, 0, config.NumRows),
		Winners:     make(map[string][]string),
		Bans:        make(map[string][]string),
		Tournaments: make([]string, 0, config.NumTournaments),
	}
	for t := 0; t < config.NumTournaments; t++ {
		plan.Tournaments = append(plan.Tournaments, tournamentName(t))
	}

	trainersByTournament := make(map[string][]string)
	for i := 0; i < config.NumRows; i++ {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("row generation cancelled: %w", err)
			}
		}
		tournament := plan.Tournaments[i%config.NumTournaments]
		trainer := trainerName(randomInt(config.NumTrainers))
		wins := randomInt(maxWinsPerRow + 1)

		share := 0.0
		if wins > 0 {
			share = float64(wins) * (shareFloor + (1-shareFloor)*randomFloat())
		}

		plan.Rows = append(plan.Rows, Row{
			ID:           uuid.NewString(),
			UniqueName:   entrantName(randomInt(config.NumEntrants)),
			Trainer:      trainer,
			TournamentID: tournament,
			Wins:         wins,
			WinShare:     decimal.NewFromFloat(share).Round(shareDecimals).InexactFloat64(),
		})
		trainersByTournament[tournament] = append(trainersByTournament[tournament], trainer)
	}

	for t, tournament := range plan.Tournaments {
		if raced := trainersByTournament[tournament]; len(raced) > 0 {
			plan.Winners[tournament] = []string{raced[randomInt(len(raced))]}
		}
		if t%2 == 0 {
			plan.Bans[tournament] = randomEntrants(config.NumEntrants)
		}
	}
	plan.Bans[unraced] = randomEntrants(config.NumEntrants)

	stats.RowsGenerated = len(plan.Rows)
	logger.Get().Info(ctx, "generated race rows",
		logger.Int("rows", len(plan.Rows)),
		logger.Int("tournaments", len(plan.Tournaments)),
		logger.Int("banLists", len(plan.Bans)),
	)
	return plan, nil
}

// randomEntrants returns up to maxBansPerEntry distinct roster entrants.
func randomEntrants(roster int) []string {
	n := 1 + randomInt(maxBansPerEntry)
	if n > roster {
		n = roster
	}
	seen := make(map[int]struct{}, n)
	out := make([]string, 0, n)
	for len(out) < n {
		i := randomInt(roster)
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, entrantName(i))
	}
	return out
}

// duplicates picks the rows to resubmit according to DuplicateRatio.
func duplicates(rows []Row, ratio float64) []Row {
	n := int(float64(len(rows)) * ratio)
	out := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, rows[randomInt(len(rows))])
	}
	return out
}

// expectedBanTournaments counts tournaments that have rows and a ban list.
func expectedBanTournaments(plan *Plan) int {
	raced := make(map[string]struct{})
	for _, r := range plan.Rows {
		raced[r.TournamentID] = struct{}{}
	}
	n := 0
	for t := range plan.Bans {
		if _, ok := raced[t]; ok {
			n++
		}
	}
	return n
}
