package render

import "errors"

// Sentinel kinds for render errors.
var (
	ErrParse          = errors.New("html parse failed")
	ErrRender         = errors.New("html render failed")
	ErrAnchorNotFound = errors.New("anchor element not found")
)
