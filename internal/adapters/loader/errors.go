package loader

import "errors"

// Sentinel errors for loading race data.
var (
	ErrMalformed         = errors.New("malformed input")
	ErrMissingColumn     = errors.New("missing column")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)
