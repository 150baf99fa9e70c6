package scheduler

import "errors"

// Sentinel kinds for scheduler errors.
var (
	ErrNotFound     = errors.New("task not found")
	ErrTaskPanicked = errors.New("task panicked")
)
