package service_test

import (
	"context"
	"errors"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tiermark/internal/adapters/fetch"
	service "github.com/okian/tiermark/internal/app"
	"github.com/okian/tiermark/internal/domain/model"
	"github.com/okian/tiermark/internal/domain/render"
	"github.com/okian/tiermark/internal/domain/tier"
	"github.com/okian/tiermark/pkg/logger"
)

const page = `<html><body><main><h1 id="main-heading">Headline</h1><p>Body.</p></main></body></html>`

type fakeFetcher struct {
	calls int
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (fetch.Page, error) {
	f.calls++
	if f.err != nil {
		return fetch.Page{}, f.err
	}
	return fetch.Page{URL: url, Title: "Headline", Text: "Body.", HTML: []byte(page)}, nil
}

func ptr[T any](v T) *T { return &v }

func newService(opts ...service.Option) *service.Service {
	return service.New(append([]service.Option{
		service.WithLogger(logger.Nop()),
		service.WithWorkerCount(2),
		service.WithQueueSize(100),
	}, opts...)...)
}

func TestService_Classify(t *testing.T) {
	Convey("Given a service that rejects out-of-range ratings", t, func() {
		svc := newService()
		ctx := context.Background()

		Convey("When classifying valid ratings", func() {
			c, err := svc.Classify(ctx, 0.5)
			So(err, ShouldBeNil)
			So(c, ShouldResemble, model.Classification{Rating: 0.5, Normalized: 0.75, Tier: tier.Goated, Icon: "goated.svg"})

			c, err = svc.Classify(ctx, -0.8)
			So(err, ShouldBeNil)
			So(c.Tier, ShouldEqual, tier.Sus)
		})

		Convey("When classifying an invalid rating", func() {
			_, err := svc.Classify(ctx, 1.5)
			So(errors.Is(err, tier.ErrInvalidRating), ShouldBeTrue)
		})
	})

	Convey("Given a service that clamps ratings", t, func() {
		svc := newService(service.WithClampRatings(true))
		ctx := context.Background()

		c, err := svc.Classify(ctx, -7)
		So(err, ShouldBeNil)
		So(c.Rating, ShouldEqual, -1)
		So(c.Tier, ShouldEqual, tier.Cap)

		_, err = svc.Classify(ctx, math.NaN())
		So(errors.Is(err, tier.ErrInvalidRating), ShouldBeTrue)
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := newService()
		ctx := context.Background()

		_, err := svc.SubmitReport(ctx, model.Report{URL: "u"})
		So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		_, err = svc.TopN(ctx, 1)
		So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		So(svc.GetStats()["started"], ShouldEqual, false)
		So(func() { svc.Stop(ctx) }, ShouldNotPanic)
	})

	Convey("Given a started service", t, func() {
		svc := newService()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		stats := svc.GetStats()
		So(stats["started"], ShouldEqual, true)
		So(stats["workerCount"], ShouldEqual, 2)
		So(stats["annotations"], ShouldEqual, 0)

		Convey("When submitting invalid reports", func() {
			for _, r := range []model.Report{
				{URL: " "},
				{URL: "u", Subjectivity: 1.2},
				{URL: "u", Subjectivity: math.NaN()},
				{URL: "u", Polarity: math.NaN()},
			} {
				_, err := svc.SubmitReport(ctx, r)
				So(errors.Is(err, service.ErrInvalidReport), ShouldBeTrue)
			}
		})

		Convey("When submitting a valid report", func() {
			id, err := svc.SubmitReport(ctx, model.Report{URL: "https://news.example/a", Subjectivity: 0.5})
			So(err, ShouldBeNil)
			So(id, ShouldNotBeEmpty)
		})
	})
}

func TestService_Render(t *testing.T) {
	Convey("Given a started service with a fake fetcher", t, func() {
		fetcher := &fakeFetcher{}
		svc := newService(
			service.WithFetcher(fetcher),
			service.WithRenderer(render.New(render.WithIconBase("https://cdn.example/icons/"))),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("When rendering inline html with explicit values", func() {
			out, err := svc.Render(ctx, model.RenderRequest{HTML: page, Rating: ptr(0.9), Summary: ptr("Well sourced.")})

			Convey("Then the overlay should be injected without fetching", func() {
				So(err, ShouldBeNil)
				So(fetcher.calls, ShouldEqual, 0)
				So(string(out), ShouldContainSubstring, `<p id="summary">Well sourced.</p><h1 id="main-heading">Headline</h1><img class="tier-icon" src="https://cdn.example/icons/goated.svg" alt="goated"/>`)
			})
		})

		Convey("When rendering a url with an explicit rating", func() {
			out, err := svc.Render(ctx, model.RenderRequest{URL: "https://news.example/a", Rating: ptr(-1.0)})

			Convey("Then the page should be fetched and no summary added", func() {
				So(err, ShouldBeNil)
				So(fetcher.calls, ShouldEqual, 1)
				So(string(out), ShouldContainSubstring, `alt="cap"`)
				So(string(out), ShouldNotContainSubstring, `id="summary"`)
			})
		})

		Convey("When the request is incomplete", func() {
			_, err := svc.Render(ctx, model.RenderRequest{Rating: ptr(0.1)})
			So(errors.Is(err, service.ErrInvalidRender), ShouldBeTrue)

			_, err = svc.Render(ctx, model.RenderRequest{HTML: page})
			So(errors.Is(err, service.ErrInvalidRender), ShouldBeTrue)
		})

		Convey("When the rating is invalid", func() {
			_, err := svc.Render(ctx, model.RenderRequest{HTML: page, Rating: ptr(2.0)})
			So(errors.Is(err, tier.ErrInvalidRating), ShouldBeTrue)
		})

		Convey("When the anchor is missing", func() {
			_, err := svc.Render(ctx, model.RenderRequest{HTML: "<p>nothing</p>", Rating: ptr(0.0)})
			So(errors.Is(err, render.ErrAnchorNotFound), ShouldBeTrue)
		})

		Convey("When the fetch fails", func() {
			fetcher.err = fetch.ErrStatus
			_, err := svc.Render(ctx, model.RenderRequest{URL: "https://news.example/gone", Rating: ptr(0.0)})
			So(errors.Is(err, fetch.ErrStatus), ShouldBeTrue)
		})
	})
}
