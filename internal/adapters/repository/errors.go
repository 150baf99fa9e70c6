package repository

import "errors"

// Sentinel kinds for annotation store errors.
var (
	ErrNotFound     = errors.New("annotation not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrMissingURL   = errors.New("annotation url is required")
	ErrInvalidTier  = errors.New("annotation tier is invalid")
)
