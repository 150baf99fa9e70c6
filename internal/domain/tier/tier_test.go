package tier_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/tiermark/internal/domain/tier"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClassify(t *testing.T) {
	Convey("Given ratings across the [-1, 1] scale", t, func() {
		cases := []struct {
			rating float64
			want   tier.Tier
		}{
			{-1, tier.Cap},
			{-0.95, tier.Cap},
			{-0.8, tier.Sus}, // normalized 0.1 sits on the sus boundary
			{-0.5, tier.Sus},
			{-0.4, tier.Mid}, // normalized 0.3
			{-0.1, tier.Mid},
			{0, tier.Goated}, // normalized 0.5
			{0.42, tier.Goated},
			{1, tier.Goated},
		}

		for _, c := range cases {
			got, err := tier.Classify(c.rating)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, c.want)
		}
	})

	Convey("Given ratings a hair below a boundary", t, func() {
		cases := []struct {
			rating float64
			want   tier.Tier
		}{
			{-0.8000000001, tier.Sus}, // within the nine-decimal rounding
			{-0.800000002, tier.Cap},
			{-0.4000000001, tier.Mid},
			{-0.400000002, tier.Sus},
			{-0.0000000001, tier.Goated},
			{-0.000000002, tier.Mid},
		}

		for _, c := range cases {
			got, err := tier.Classify(c.rating)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, c.want)
		}
	})

	Convey("Given ratings outside [-1, 1]", t, func() {
		for _, r := range []float64{-1.0001, 1.5, math.Inf(1), math.Inf(-1), math.NaN()} {
			got, err := tier.Classify(r)

			So(got, ShouldEqual, tier.Tier(""))
			So(errors.Is(err, tier.ErrInvalidRating), ShouldBeTrue)

			var ire *tier.InvalidRatingError
			So(errors.As(err, &ire), ShouldBeTrue)
		}
	})
}

func TestClassifyProperties(t *testing.T) {
	Convey("Given a dense sweep of valid ratings", t, func() {
		const steps = 4000
		prev := -1

		for i := 0; i <= steps; i++ {
			r := tier.MinRating + (tier.MaxRating-tier.MinRating)*float64(i)/steps
			got, err := tier.Classify(r)
			So(err, ShouldBeNil)
			So(got.Valid(), ShouldBeTrue)

			// Monotonic: a higher rating never yields a lower tier.
			So(got.Rank(), ShouldBeGreaterThanOrEqualTo, prev)
			prev = got.Rank()
		}
	})
}

func TestClassifyClamped(t *testing.T) {
	Convey("Given out-of-range ratings", t, func() {
		So(tier.ClassifyClamped(-7), ShouldEqual, tier.Cap)
		So(tier.ClassifyClamped(3), ShouldEqual, tier.Goated)
		So(tier.ClassifyClamped(math.NaN()), ShouldEqual, tier.Cap)
		So(tier.ClassifyClamped(-0.5), ShouldEqual, tier.Sus)
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given valid ratings", t, func() {
		n, err := tier.Normalize(-1)
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 0)

		n, err = tier.Normalize(1)
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 1)

		n, err = tier.Normalize(-0.5)
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 0.25)
	})

	Convey("Given an invalid rating", t, func() {
		_, err := tier.Normalize(2)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "invalid rating 2")
	})
}

func TestTierHelpers(t *testing.T) {
	Convey("Given the tier set", t, func() {
		So(tier.All(), ShouldResemble, []tier.Tier{tier.Cap, tier.Sus, tier.Mid, tier.Goated})

		Convey("Then icons should follow the {tier}.svg convention", func() {
			So(tier.Cap.Icon(), ShouldEqual, "cap.svg")
			So(tier.Goated.Icon(), ShouldEqual, "goated.svg")
		})

		Convey("Then ranks should follow rigor order", func() {
			So(tier.Cap.Rank(), ShouldEqual, 0)
			So(tier.Goated.Rank(), ShouldEqual, 3)
			So(tier.Tier("based").Rank(), ShouldEqual, -1)
		})

		Convey("Then Parse should accept names and icon file names", func() {
			got, err := tier.Parse(" MID ")
			So(err, ShouldBeNil)
			So(got, ShouldEqual, tier.Mid)

			got, err = tier.Parse("sus.svg")
			So(err, ShouldBeNil)
			So(got, ShouldEqual, tier.Sus)

			_, err = tier.Parse("ratio")
			So(errors.Is(err, tier.ErrUnknownTier), ShouldBeTrue)
		})
	})
}
