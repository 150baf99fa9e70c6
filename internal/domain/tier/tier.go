// Package tier maps a rigor rating in [-1, 1] to one of four display tiers.
//
// A rating is first rescaled to [0, 1] and then bucketed with half-open
// ranges; a value sitting exactly on a boundary belongs to the upper tier.
package tier

import (
	"fmt"
	"math"
	"strings"
)

// Tier is a discrete verdict used to pick a display icon.
type Tier string

// Tiers in ascending order of rigor.
const (
	Cap    Tier = "cap"
	Sus    Tier = "sus"
	Mid    Tier = "mid"
	Goated Tier = "goated"
)

// Rating bounds.
const (
	MinRating = -1.0
	MaxRating = 1.0
)

// Normalized lower bounds for each tier above Cap.
const (
	susFloor    = 0.1
	midFloor    = 0.3
	goatedFloor = 0.5
)

const iconExt = ".svg"

// normalizePrecision absorbs binary representation error so ratings such as
// -0.8 land exactly on the 0.1 boundary instead of just under it. Normalized
// values are rounded to nine decimals, so a rating less than 1e-9 below a
// boundary rating belongs to the upper tier: -0.8000000001 is Sus while
// -0.800000002 is Cap.
const normalizePrecision = 1e9

// All returns every tier ordered from least to most rigorous.
func All() []Tier {
	return []Tier{Cap, Sus, Mid, Goated}
}

// Rank returns the position of t in All(), or -1 for an unknown tier.
func (t Tier) Rank() int {
	for i, c := range All() {
		if c == t {
			return i
		}
	}
	return -1
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool { return t.Rank() >= 0 }

// Icon returns the icon file name, "{tier}.svg".
func (t Tier) Icon() string { return string(t) + iconExt }

func (t Tier) String() string { return string(t) }

// Parse resolves a tier name (case-insensitive). A trailing ".svg" is accepted
// so icon file names round-trip.
func Parse(s string) (Tier, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), iconExt)
	t := Tier(name)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
	return t, nil
}

// Normalize rescales r from [-1, 1] to [0, 1], rounded to nine decimals.
func Normalize(r float64) (float64, error) {
	if math.IsNaN(r) || r < MinRating || r > MaxRating {
		return 0, &InvalidRatingError{Rating: r}
	}
	return normalize(r), nil
}

func normalize(r float64) float64 {
	return math.Round((r+1)/2*normalizePrecision) / normalizePrecision
}

// Classify returns the tier for r. Ratings outside [-1, 1] yield an
// *InvalidRatingError.
func Classify(r float64) (Tier, error) {
	n, err := Normalize(r)
	if err != nil {
		return "", err
	}
	return fromNormalized(n), nil
}

// ClassifyClamped pins r into [-1, 1] before classifying. NaN carries no
// information and lands in Cap.
func ClassifyClamped(r float64) Tier {
	return fromNormalized(normalize(Clamp(r)))
}

// Clamp pins r into [-1, 1]; NaN becomes MinRating.
func Clamp(r float64) float64 {
	if math.IsNaN(r) {
		return MinRating
	}
	return math.Max(MinRating, math.Min(MaxRating, r))
}

func fromNormalized(n float64) Tier {
	switch {
	case n < susFloor:
		return Cap
	case n < midFloor:
		return Sus
	case n < goatedFloor:
		return Mid
	default:
		return Goated
	}
}
