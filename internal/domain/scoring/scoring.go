// Package scoring folds an article's analysis scores into a single rating
// in [-1, 1].
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/tiermark/internal/domain/tier"
)

// Default scoring configuration constants.
const (
	defaultWeight   = 1.0
	roundingDecimal = 100 // two decimal places
)

// Option applies a configuration option to the WeightedScorer.
type Option func(*WeightedScorer)

// WithWeights sets the relative weight of each component. Non-positive
// weights are ignored and keep their default.
func WithWeights(subjectivity, polarity, evidence float64) Option {
	return func(s *WeightedScorer) {
		if subjectivity > 0 {
			s.subjectivityWeight = subjectivity
		}
		if polarity > 0 {
			s.polarityWeight = polarity
		}
		if evidence > 0 {
			s.evidenceWeight = evidence
		}
	}
}

// Input abstracts the analysis fields needed for scoring.
type Input struct {
	Subjectivity float64 // mean subjectivity in [0, 1]
	Polarity     float64 // [-1, 1], clamped
	Evidence     float64 // [-1, 1], clamped
}

// Result contains the scaled components and the combined rating.
type Result struct {
	Subjectivity float64
	Polarity     float64
	Evidence     float64
	Rating       float64
}

// Scorer computes a rating from analysis scores.
type Scorer interface {
	// Score computes a rating, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

// WeightedScorer averages the scaled components with configurable weights.
type WeightedScorer struct {
	subjectivityWeight float64
	polarityWeight     float64
	evidenceWeight     float64
}

// NewWeightedScorer creates a scorer; by default all components weigh the same.
func NewWeightedScorer(opts ...Option) *WeightedScorer {
	s := &WeightedScorer{
		subjectivityWeight: defaultWeight,
		polarityWeight:     defaultWeight,
		evidenceWeight:     defaultWeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the rating for in.
func (s *WeightedScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}
	if err := validate(in); err != nil {
		return Result{}, err
	}

	subjectivity := tier.Clamp(in.Subjectivity*2 - 1)
	polarity := tier.Clamp(in.Polarity)
	evidence := tier.Clamp(in.Evidence)

	total := s.subjectivityWeight + s.polarityWeight + s.evidenceWeight
	rating := (subjectivity*s.subjectivityWeight + polarity*s.polarityWeight + evidence*s.evidenceWeight) / total

	return Result{
		Subjectivity: round(subjectivity),
		Polarity:     round(polarity),
		Evidence:     round(evidence),
		Rating:       round(tier.Clamp(rating)),
	}, nil
}

func validate(in Input) error {
	switch {
	case math.IsNaN(in.Subjectivity) || math.IsNaN(in.Polarity) || math.IsNaN(in.Evidence):
		return fmt.Errorf("%w: NaN component", ErrInvalidInput)
	case in.Subjectivity < 0 || in.Subjectivity > 1:
		return fmt.Errorf("%w: subjectivity %g outside [0, 1]", ErrInvalidInput, in.Subjectivity)
	}
	return nil
}

func round(x float64) float64 {
	return math.Round(x*roundingDecimal) / roundingDecimal
}
