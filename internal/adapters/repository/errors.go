package repository

import "errors"

// Sentinel errors returned by the store.
var (
	ErrEmptyTournament = errors.New("tournament id is empty")
	ErrClosed          = errors.New("store is closed")
)
