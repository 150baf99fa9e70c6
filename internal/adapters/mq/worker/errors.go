package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	ErrSummary = errors.New("summary failed")
)
