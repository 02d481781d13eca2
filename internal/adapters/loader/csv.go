package loader

import (
	"fmt"
	"io"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/okian/umastats/internal/domain/model"
	"github.com/okian/umastats/internal/domain/stats"
)

// ReadRowsCSV reads race rows from CSV with a header line. Columns are matched
// by name in any order; an ID column is optional. Rows are validated.
func ReadRowsCSV(r io.Reader) ([]model.RaceRow, error) {
	// Every column is read as text so names like "001" survive untouched.
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: read csv: %w", ErrMalformed, df.Err)
	}

	headers := df.Names()
	cols := make(map[string]string, 5)
	for field, keys := range map[string][]string{
		"unique_name":   uniqueNameKeys,
		"trainer":       trainerKeys,
		"tournament_id": tournamentKeys,
		"wins":          winsKeys,
		"win_share":     winShareKeys,
	} {
		name, ok := findColumn(headers, keys)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, field)
		}
		cols[field] = name
	}

	wins, err := df.Col(cols["wins"]).Int()
	if err != nil {
		return nil, fmt.Errorf("%w: wins: %w", ErrMalformed, err)
	}
	shares := df.Col(cols["win_share"]).Float()
	names := df.Col(cols["unique_name"]).Records()
	trainers := df.Col(cols["trainer"]).Records()
	tournaments := df.Col(cols["tournament_id"]).Records()

	var ids []string
	if idCol, ok := findColumn(headers, idKeys); ok {
		ids = df.Col(idCol).Records()
	}

	n, _ := df.Dims()
	rows := make([]model.RaceRow, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(shares[i]) {
			return nil, fmt.Errorf("%w: row %d: win_share is not a number", ErrMalformed, i)
		}
		rows[i] = model.RaceRow{
			UniqueName:   names[i],
			Trainer:      trainers[i],
			TournamentID: tournaments[i],
			Wins:         wins[i],
			WinShare:     shares[i],
		}
		if ids != nil {
			rows[i].ID = ids[i]
		}
	}
	if err := stats.ValidateRows(rows); err != nil {
		return nil, err
	}
	return rows, nil
}
