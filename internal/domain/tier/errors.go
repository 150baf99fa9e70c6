package tier

import (
	"errors"
	"strconv"
)

// Sentinel kinds for classification errors.
var (
	ErrInvalidRating = errors.New("invalid rating")
	ErrUnknownTier   = errors.New("unknown tier")
)

// InvalidRatingError reports a rating outside [-1, 1] (or NaN).
type InvalidRatingError struct {
	Rating float64
}

func (e *InvalidRatingError) Error() string {
	return "invalid rating " + strconv.FormatFloat(e.Rating, 'g', -1, 64) + ": must be within [-1, 1]"
}

// Is lets callers match with errors.Is(err, ErrInvalidRating).
func (e *InvalidRatingError) Is(target error) bool {
	return target == ErrInvalidRating
}
