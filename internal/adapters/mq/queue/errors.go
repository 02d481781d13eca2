package queue

import "errors"

// Sentinel errors for enqueue failures.
var (
	ErrFull   = errors.New("queue is full")
	ErrClosed = errors.New("queue is closed")
)
