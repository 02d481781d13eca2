package stats

import "errors"

var (
	// ErrInvalidRow is returned when a race row misses a required field or
	// carries an out-of-range value.
	ErrInvalidRow = errors.New("invalid race row")

	// ErrUnknownSortKey is returned when a table is sorted by a key it does not have.
	ErrUnknownSortKey = errors.New("unknown sort key")

	// ErrUnknownSortOrder is returned for a sort direction other than asc or desc.
	ErrUnknownSortOrder = errors.New("unknown sort order")
)
