package service

import "errors"

var (
	// ErrNotStarted is returned by operations invoked before Start or after Stop.
	ErrNotStarted = errors.New("service not started")

	// ErrLoadData is returned when a configured rows, winners or bans file cannot be loaded.
	ErrLoadData = errors.New("load data files")
)
