package summary

import "errors"

// Sentinel kinds for summary errors.
var (
	ErrMissingAPIKey = errors.New("gemini api key is required")
	ErrEmptyText     = errors.New("article text is empty")
	ErrEmptySummary  = errors.New("model returned an empty summary")
	ErrGenerate      = errors.New("summary generation failed")
)
