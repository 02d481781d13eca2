package loader

import (
	"fmt"
	"math"

	"github.com/tidwall/gjson"

	"github.com/okian/umastats/internal/domain/model"
	"github.com/okian/umastats/internal/domain/stats"
	"github.com/okian/umastats/internal/domain/types"
)

// ParseRowsJSON parses race rows from a JSON array of row objects, an object
// holding such an array under "rows", or a single row object. Rows are
// validated.
func ParseRowsJSON(data []byte) ([]model.RaceRow, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	doc := gjson.ParseBytes(data)

	var list gjson.Result
	switch {
	case doc.IsArray():
		list = doc
	case doc.IsObject() && doc.Get("rows").Exists():
		list = doc.Get("rows")
		if !list.IsArray() {
			return nil, fmt.Errorf("%w: rows is not an array", ErrMalformed)
		}
	case doc.IsObject():
		r, err := parseRow(doc)
		if err != nil {
			return nil, fmt.Errorf("row 0: %w", err)
		}
		if err := stats.ValidateRow(r); err != nil {
			return nil, fmt.Errorf("row 0: %w", err)
		}
		return []model.RaceRow{r}, nil
	default:
		return nil, fmt.Errorf("%w: expected an array or object", ErrMalformed)
	}

	rows := make([]model.RaceRow, 0, len(list.Array()))
	var parseErr error
	list.ForEach(func(_, v gjson.Result) bool {
		r, err := parseRow(v)
		if err != nil {
			parseErr = fmt.Errorf("row %d: %w", len(rows), err)
			return false
		}
		rows = append(rows, r)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if err := stats.ValidateRows(rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func parseRow(v gjson.Result) (model.RaceRow, error) {
	if !v.IsObject() {
		return model.RaceRow{}, fmt.Errorf("%w: row is not an object", ErrMalformed)
	}
	r := model.RaceRow{
		ID:           field(v, idKeys).String(),
		UniqueName:   field(v, uniqueNameKeys).String(),
		Trainer:      field(v, trainerKeys).String(),
		TournamentID: field(v, tournamentKeys).String(),
	}

	wins := field(v, winsKeys)
	switch {
	case !wins.Exists():
		return model.RaceRow{}, fmt.Errorf("%w: wins is missing", ErrMalformed)
	case wins.Type != gjson.Number || wins.Num != math.Trunc(wins.Num):
		return model.RaceRow{}, fmt.Errorf("%w: wins %s is not an integer", ErrMalformed, wins.Raw)
	default:
		r.Wins = int(wins.Int())
	}

	share := field(v, winShareKeys)
	switch {
	case !share.Exists():
		return model.RaceRow{}, fmt.Errorf("%w: win_share is missing", ErrMalformed)
	case share.Type != gjson.Number:
		return model.RaceRow{}, fmt.Errorf("%w: win_share %s is not a number", ErrMalformed, share.Raw)
	default:
		r.WinShare = share.Float()
	}
	return r, nil
}

// field returns the first present key of v.
func field(v gjson.Result, keys []string) gjson.Result {
	for _, k := range keys {
		if f := v.Get(k); f.Exists() {
			return f
		}
	}
	return gjson.Result{}
}

// ParseTableJSON parses a winners or bans table: an object mapping tournament
// IDs to arrays of names. Key order is preserved.
func ParseTableJSON(data []byte) (*types.Table, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: table must be an object", ErrMalformed)
	}

	tbl := types.NewTable()
	var parseErr error
	doc.ForEach(func(key, value gjson.Result) bool {
		id := key.String()
		if !value.IsArray() {
			parseErr = fmt.Errorf("%w: entry %q is not an array", ErrMalformed, id)
			return false
		}
		names := make([]string, 0, len(value.Array()))
		value.ForEach(func(_, name gjson.Result) bool {
			if name.Type != gjson.String {
				parseErr = fmt.Errorf("%w: entry %q holds a non-string name %s", ErrMalformed, id, name.Raw)
				return false
			}
			names = append(names, name.String())
			return true
		})
		if parseErr != nil {
			return false
		}
		tbl.Set(id, names)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return tbl, nil
}
