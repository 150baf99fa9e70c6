package scoring_test

import (
	"context"
	"errors"
	"math"
	"testing"

	scoring "github.com/okian/tiermark/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWeightedScorer_Score(t *testing.T) {
	Convey("Given a scorer with equal weights", t, func() {
		scorer := scoring.NewWeightedScorer()
		ctx := context.Background()

		Convey("When the article is neutral", func() {
			res, err := scorer.Score(ctx, scoring.Input{Subjectivity: 0.5, Polarity: 0, Evidence: 0})

			Convey("Then the rating should be zero", func() {
				So(err, ShouldBeNil)
				So(res.Subjectivity, ShouldEqual, 0)
				So(res.Rating, ShouldEqual, 0)
			})
		})

		Convey("When subjectivity is maxed and evidence is hearsay", func() {
			res, err := scorer.Score(ctx, scoring.Input{Subjectivity: 1, Polarity: -0.4, Evidence: -1})

			Convey("Then components should be averaged and rounded to 2dp", func() {
				So(err, ShouldBeNil)
				So(res.Subjectivity, ShouldEqual, 1)
				So(res.Polarity, ShouldEqual, -0.4)
				So(res.Evidence, ShouldEqual, -1)
				So(res.Rating, ShouldEqual, -0.13) // (1 - 0.4 - 1) / 3
			})
		})

		Convey("When polarity and evidence exceed their range", func() {
			res, err := scorer.Score(ctx, scoring.Input{Subjectivity: 1, Polarity: 4, Evidence: 9})

			Convey("Then they should be clamped before averaging", func() {
				So(err, ShouldBeNil)
				So(res.Polarity, ShouldEqual, 1)
				So(res.Evidence, ShouldEqual, 1)
				So(res.Rating, ShouldEqual, 1)
			})
		})

		Convey("When subjectivity is out of range", func() {
			_, err := scorer.Score(ctx, scoring.Input{Subjectivity: 1.2})

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, scoring.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When a component is NaN", func() {
			_, err := scorer.Score(ctx, scoring.Input{Subjectivity: 0.3, Evidence: math.NaN()})

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, scoring.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := scorer.Score(cctx, scoring.Input{Subjectivity: 0.5})

			Convey("Then it should return the context error", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})

	Convey("Given a scorer that trusts evidence twice as much", t, func() {
		scorer := scoring.NewWeightedScorer(scoring.WithWeights(1, 1, 2))

		res, err := scorer.Score(context.Background(), scoring.Input{Subjectivity: 0.5, Polarity: 0, Evidence: 1})

		So(err, ShouldBeNil)
		So(res.Rating, ShouldEqual, 0.5) // (0 + 0 + 2) / 4
	})

	Convey("Given non-positive weights", t, func() {
		scorer := scoring.NewWeightedScorer(scoring.WithWeights(0, -1, 0))

		res, err := scorer.Score(context.Background(), scoring.Input{Subjectivity: 0, Polarity: 1, Evidence: 1})

		Convey("Then defaults should be kept", func() {
			So(err, ShouldBeNil)
			So(res.Rating, ShouldEqual, 0.33) // (-1 + 1 + 1) / 3
		})
	})
}
