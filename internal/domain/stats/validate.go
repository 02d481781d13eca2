package stats

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/umastats/internal/domain/model"
)

// ValidateRow checks the fields Compute relies on.
func ValidateRow(r model.RaceRow) error {
	switch {
	case strings.TrimSpace(r.UniqueName) == "":
		return fmt.Errorf("%w: unique_name is empty", ErrInvalidRow)
	case strings.TrimSpace(r.Trainer) == "":
		return fmt.Errorf("%w: trainer is empty", ErrInvalidRow)
	case strings.TrimSpace(r.TournamentID) == "":
		return fmt.Errorf("%w: tournament_id is empty", ErrInvalidRow)
	case r.Wins < 0:
		return fmt.Errorf("%w: wins %d is negative", ErrInvalidRow, r.Wins)
	case math.IsNaN(r.WinShare) || math.IsInf(r.WinShare, 0):
		return fmt.Errorf("%w: win_share %v is not finite", ErrInvalidRow, r.WinShare)
	}
	return nil
}

// ValidateRows checks every row and reports the first offending index.
func ValidateRows(rows []model.RaceRow) error {
	for i, r := range rows {
		if err := ValidateRow(r); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}
