package fetch

import "errors"

// Sentinel kinds for fetch errors.
var (
	ErrInvalidURL   = errors.New("invalid article url")
	ErrStatus       = errors.New("unexpected response status")
	ErrTooLarge     = errors.New("article exceeds size limit")
	ErrParse        = errors.New("article parse failed")
	ErrEmptyArticle = errors.New("article has no text")
)
