package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/umastats/internal/domain/model"
	"github.com/okian/umastats/internal/domain/types"
)

// LoadRowsFile reads race rows from a .csv or .json file.
func LoadRowsFile(path string) ([]model.RaceRow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path) //nolint:gosec // path comes from operator config
		if err != nil {
			return nil, fmt.Errorf("open rows file: %w", err)
		}
		defer f.Close()
		rows, err := ReadRowsCSV(f)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return rows, nil
	case ".json":
		data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
		if err != nil {
			return nil, fmt.Errorf("read rows file: %w", err)
		}
		rows, err := ParseRowsJSON(data)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// LoadTableFile reads a winners or bans table from a JSON file.
func LoadTableFile(path string) (*types.Table, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read table file: %w", err)
	}
	tbl, err := ParseTableJSON(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return tbl, nil
}
