package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrQueueFull      = errors.New("report queue is full")
	ErrInvalidReport  = errors.New("invalid report")
	ErrInvalidRender  = errors.New("invalid render request")
	ErrRenderNotFound = errors.New("render not found")
)
