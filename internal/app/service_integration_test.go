package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tiermark/internal/adapters/repository"
	service "github.com/okian/tiermark/internal/app"
	"github.com/okian/tiermark/internal/domain/model"
	"github.com/okian/tiermark/internal/domain/tier"
)

// eventually polls cond until it holds or timeout passes.
func eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a running service", t, func() {
		svc := newService(service.WithFetcher(&fakeFetcher{}), service.WithRenderDelay(time.Hour))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("When reports are processed end-to-end", func() {
			reports := []model.Report{
				{URL: "https://news.example/solid", Title: "Solid", Summary: "Cites the filing.", Subjectivity: 0.2, Polarity: 0.1, Evidence: 0.9},
				{URL: "https://news.example/shaky", Title: "Shaky", Text: "Someone said so. Nobody checked.", Subjectivity: 0, Polarity: -0.9, Evidence: -0.9},
				{URL: "https://news.example/plain", Subjectivity: 0.5, Polarity: -0.5, Evidence: -0.4},
			}
			for _, r := range reports {
				_, err := svc.SubmitReport(ctx, r)
				So(err, ShouldBeNil)
			}
			So(eventually(2*time.Second, func() bool {
				top, err := svc.TopN(ctx, 10)
				return err == nil && len(top) == len(reports)
			}), ShouldBeTrue)

			Convey("Then annotations should be ranked and classified", func() {
				top, err := svc.TopN(ctx, 10)
				So(err, ShouldBeNil)

				got := make([]string, len(top))
				for i, a := range top {
					got[i] = fmt.Sprintf("%d:%s:%s", a.Rank, a.URL, a.Tier)
				}
				So(got, ShouldResemble, []string{
					"1:https://news.example/solid:goated",
					"2:https://news.example/plain:mid",
					"3:https://news.example/shaky:cap",
				})
			})

			Convey("Then the generated summary should be stored", func() {
				a, err := svc.Annotation(ctx, "https://news.example/shaky")
				So(err, ShouldBeNil)

				want := model.Annotation{
					URL:     "https://news.example/shaky",
					Title:   "Shaky",
					Tier:    tier.Cap,
					Icon:    "cap.svg",
					Summary: "Someone said so. Nobody checked.",
				}
				So(cmp.Diff(want, a, cmpopts.IgnoreFields(model.Annotation{}, "ReportID", "Rating", "Normalized", "SubmittedAt", "UpdatedAt")), ShouldBeEmpty)
				So(a.ReportID, ShouldNotBeEmpty)
			})

			Convey("Then a newer report for the same url should replace the old one", func() {
				_, err := svc.SubmitReport(ctx, model.Report{URL: "https://news.example/solid", Subjectivity: 1, Polarity: -1, Evidence: -1})
				So(err, ShouldBeNil)
				So(eventually(2*time.Second, func() bool {
					a, err := svc.Annotation(ctx, "https://news.example/solid")
					return err == nil && a.Tier != tier.Goated
				}), ShouldBeTrue)

				stats := svc.GetStats()
				So(stats["annotations"], ShouldEqual, 3)
			})

			Convey("Then a url render should use the stored annotation", func() {
				out, err := svc.Render(ctx, model.RenderRequest{URL: "https://news.example/solid"})
				So(err, ShouldBeNil)
				So(string(out), ShouldContainSubstring, `<p id="summary">Cites the filing.</p>`)
				So(string(out), ShouldContainSubstring, `alt="goated"`)
			})

			Convey("Then tier filtering should return matching articles", func() {
				caps, err := svc.ByTier(ctx, tier.Cap)
				So(err, ShouldBeNil)
				So(len(caps), ShouldEqual, 1)
			})
		})

		Convey("When rendering a url that was never annotated", func() {
			_, err := svc.Render(ctx, model.RenderRequest{URL: "https://news.example/unknown"})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When a render is scheduled with a short delay", func() {
			st, err := svc.ScheduleRender(ctx, model.RenderRequest{HTML: page, Rating: ptr(-0.2), Summary: ptr("Mixed.")}, 10*time.Millisecond)
			So(err, ShouldBeNil)
			So(st.State, ShouldEqual, "pending")

			Convey("Then its result should become available", func() {
				So(eventually(2*time.Second, func() bool {
					s, err := svc.RenderStatus(ctx, st.ID)
					return err == nil && s.State == "done"
				}), ShouldBeTrue)

				done, _ := svc.RenderStatus(ctx, st.ID)
				So(done.Tier, ShouldEqual, tier.Mid)
				So(done.HTML, ShouldContainSubstring, `src="/icons/mid.svg"`)

				cancelled, err := svc.CancelRender(ctx, st.ID)
				So(err, ShouldBeNil)
				So(cancelled, ShouldBeFalse)
			})
		})

		Convey("When a render is scheduled with the default delay and cancelled", func() {
			st, err := svc.ScheduleRender(ctx, model.RenderRequest{HTML: page, Rating: ptr(0.0)}, -1)
			So(err, ShouldBeNil)
			So(st.RunAt, ShouldHappenAfter, time.Now().Add(59*time.Minute))

			cancelled, err := svc.CancelRender(ctx, st.ID)
			So(err, ShouldBeNil)
			So(cancelled, ShouldBeTrue)

			Convey("Then it should end cancelled without output", func() {
				So(eventually(time.Second, func() bool {
					s, _ := svc.RenderStatus(ctx, st.ID)
					return s.State == "cancelled"
				}), ShouldBeTrue)
				s, _ := svc.RenderStatus(ctx, st.ID)
				So(s.HTML, ShouldBeEmpty)
			})
		})

		Convey("When a scheduled render fails", func() {
			st, err := svc.ScheduleRender(ctx, model.RenderRequest{HTML: "<p>no anchor</p>", Rating: ptr(0.0)}, 0)
			So(err, ShouldBeNil)

			So(eventually(2*time.Second, func() bool {
				s, _ := svc.RenderStatus(ctx, st.ID)
				return s.State == "failed"
			}), ShouldBeTrue)
			s, _ := svc.RenderStatus(ctx, st.ID)
			So(s.Error, ShouldContainSubstring, "anchor element not found")
		})

		Convey("When looking up unknown renders", func() {
			_, err := svc.RenderStatus(ctx, "missing")
			So(errors.Is(err, service.ErrRenderNotFound), ShouldBeTrue)
			_, err = svc.CancelRender(ctx, "missing")
			So(errors.Is(err, service.ErrRenderNotFound), ShouldBeTrue)
			_, err = svc.ScheduleRender(ctx, model.RenderRequest{}, 0)
			So(errors.Is(err, service.ErrInvalidRender), ShouldBeTrue)
		})
	})
}
