package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tiermark/internal/adapters/repository"
	"github.com/okian/tiermark/internal/domain/model"
	"github.com/okian/tiermark/internal/domain/tier"
)

func annotation(url string, rating float64) model.Annotation {
	return model.Annotation{URL: url, Rating: rating, Tier: tier.ClassifyClamped(rating)}
}

func urls(in []model.RankedAnnotation) []string {
	out := make([]string, len(in))
	for i, a := range in {
		out[i] = fmt.Sprintf("%d:%s", a.Rank, a.URL)
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	Convey("Given an empty store", t, func() {
		s := repository.NewMemoryStore()
		ctx := context.Background()

		So(s.Count(ctx), ShouldEqual, 0)

		Convey("When getting an unknown url", func() {
			_, err := s.Get(ctx, "https://nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When putting invalid annotations", func() {
			So(errors.Is(s.Put(ctx, model.Annotation{Tier: tier.Mid}), repository.ErrMissingURL), ShouldBeTrue)
			So(errors.Is(s.Put(ctx, model.Annotation{URL: "u", Tier: "x"}), repository.ErrInvalidTier), ShouldBeTrue)
		})

		Convey("When several annotations are stored", func() {
			for _, a := range []model.Annotation{
				annotation("c", 0.2),
				annotation("a", 0.2),
				annotation("b", 0.9),
				annotation("d", -0.9),
				annotation("e", -0.3),
			} {
				So(s.Put(ctx, a), ShouldBeNil)
			}

			Convey("Then TopN should rank by rating with shared ranks on ties", func() {
				top, err := s.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(urls(top), ShouldResemble, []string{"1:b", "2:a", "2:c", "3:e", "4:d"})
			})

			Convey("Then TopN should honour the limit", func() {
				top, err := s.TopN(ctx, 2)
				So(err, ShouldBeNil)
				So(urls(top), ShouldResemble, []string{"1:b", "2:a"})

				_, err = s.TopN(ctx, 0)
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			})

			Convey("Then a newer report should replace the old position", func() {
				So(s.Put(ctx, annotation("b", -1)), ShouldBeNil)
				top, _ := s.TopN(ctx, 10)

				So(s.Count(ctx), ShouldEqual, 5)
				So(urls(top), ShouldResemble, []string{"1:a", "1:c", "2:e", "3:d", "4:b"})

				got, err := s.Get(ctx, "b")
				So(err, ShouldBeNil)
				So(cmp.Diff(annotation("b", -1), got), ShouldBeEmpty)
			})

			Convey("Then a report submitted earlier should not replace a later one", func() {
				t0 := time.Date(2025, 10, 18, 12, 0, 0, 0, time.UTC)
				newer := annotation("f", 0.5)
				newer.ReportID, newer.SubmittedAt = "new", t0.Add(time.Second)
				older := annotation("f", -1)
				older.ReportID, older.SubmittedAt = "old", t0

				So(s.Put(ctx, newer), ShouldBeNil)
				So(s.Put(ctx, older), ShouldBeNil)

				got, err := s.Get(ctx, "f")
				So(err, ShouldBeNil)
				So(got.ReportID, ShouldEqual, "new")
				So(got.Rating, ShouldEqual, 0.5)

				top, _ := s.TopN(ctx, 10)
				So(urls(top), ShouldResemble, []string{"1:b", "2:f", "3:a", "3:c", "4:e", "5:d"})

				same := annotation("f", 0.1)
				same.ReportID, same.SubmittedAt = "same", newer.SubmittedAt
				So(s.Put(ctx, same), ShouldBeNil)
				got, _ = s.Get(ctx, "f")
				So(got.ReportID, ShouldEqual, "same")
			})

			Convey("Then ByTier should filter in rank order", func() {
				goated, err := s.ByTier(ctx, tier.Goated)
				So(err, ShouldBeNil)
				So(len(goated), ShouldEqual, 3)
				So(goated[0].URL, ShouldEqual, "b")

				caps, err := s.ByTier(ctx, tier.Cap)
				So(err, ShouldBeNil)
				So(len(caps), ShouldEqual, 1)

				_, err = s.ByTier(ctx, "nah")
				So(errors.Is(err, repository.ErrInvalidTier), ShouldBeTrue)
			})
		})
	})
}

func TestMemoryStore_Concurrent(t *testing.T) {
	Convey("Given concurrent writers on overlapping urls", t, func() {
		s := repository.NewMemoryStore()
		ctx := context.Background()

		var wg sync.WaitGroup
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 200; i++ {
					_ = s.Put(ctx, annotation(fmt.Sprintf("u%d", i%50), float64((w+i)%20)/10-1))
				}
			}(w)
		}
		wg.Wait()

		Convey("Then the ranking should hold exactly one entry per url", func() {
			So(s.Count(ctx), ShouldEqual, 50)
			top, err := s.TopN(ctx, 100)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 50)
			for i := 1; i < len(top); i++ {
				So(top[i-1].Rating, ShouldBeGreaterThanOrEqualTo, top[i].Rating)
			}
		})
	})
}
