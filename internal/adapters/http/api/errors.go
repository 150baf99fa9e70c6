package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/tiermark/internal/adapters/fetch"
	"github.com/okian/tiermark/internal/adapters/repository"
	service "github.com/okian/tiermark/internal/app"
	"github.com/okian/tiermark/internal/domain/render"
	"github.com/okian/tiermark/internal/domain/tier"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrBackpressure     = errors.New("backpressure")
	ErrNotFound         = errors.New("not found")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// Error carries the operation that failed and an error kind next to the
// underlying cause. errors.Is matches both the kind and the cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Kind != nil {
		parts = append(parts, e.Kind.Error())
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap exposes the kind and the cause.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap annotates err with op. It returns nil for a nil err.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind annotates err with op and kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// statusFor maps an error to an HTTP status and an error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, tier.ErrInvalidRating):
		return http.StatusBadRequest, "invalid_rating"
	case errors.Is(err, tier.ErrUnknownTier):
		return http.StatusBadRequest, "invalid_tier"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidReport),
		errors.Is(err, service.ErrInvalidRender),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, fetch.ErrInvalidURL),
		errors.Is(err, render.ErrParse):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrRenderNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, "method_not_allowed"
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrQueueFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, render.ErrAnchorNotFound):
		return http.StatusUnprocessableEntity, "anchor_not_found"
	case errors.Is(err, fetch.ErrStatus),
		errors.Is(err, fetch.ErrTooLarge),
		errors.Is(err, fetch.ErrParse),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway, "fetch_failed"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
