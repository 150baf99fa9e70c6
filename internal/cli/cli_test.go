package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/pflag"

	"github.com/okian/tiermark/internal/adapters/http/api"
	service "github.com/okian/tiermark/internal/app"
	"github.com/okian/tiermark/internal/domain/model"
	"github.com/okian/tiermark/internal/domain/tier"
	"github.com/okian/tiermark/pkg/logger"
)

const page = `<html><body><main><h1 id="main-heading">Headline</h1><p>Body.</p></main></body></html>`

const bylinePage = `<html><body><main><h1 id="main-heading">Headline</h1>
<span class="ssrcss-1-TextContributorName e1">Ada Lovelace</span><p>Body.</p></main>
<a class="ssrcss-2-PromoLink e2" href="/news/b">Next story</a></body></html>`

func run(ctx context.Context, stdin string, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(&out, &errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestClassifyCommand(t *testing.T) {
	Convey("Given the classify command", t, func() {
		ctx := context.Background()

		Convey("When classifying several ratings", func() {
			out, _, err := run(ctx, "", "classify", "-1", "-0.8", "-0.4", "0.7")

			Convey("Then each line names the tier and icon", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "-1\tcap\tcap.svg\n-0.8\tsus\tsus.svg\n-0.4\tmid\tmid.svg\n0.7\tgoated\tgoated.svg\n")
			})
		})

		Convey("When a rating is out of range", func() {
			_, _, err := run(ctx, "", "classify", "2")

			Convey("Then it fails unless clamped", func() {
				So(errors.Is(err, tier.ErrInvalidRating), ShouldBeTrue)

				out, _, err := run(ctx, "", "classify", "--clamp", "2")
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "2\tgoated\tgoated.svg\n")
			})
		})

		Convey("When a rating is not a number", func() {
			_, _, err := run(ctx, "", "classify", "high")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "parse rating")
		})

		Convey("When no rating is given", func() {
			_, _, err := run(ctx, "", "classify")
			So(errors.Is(err, errNoRatings), ShouldBeTrue)
		})

		Convey("When negative ratings are mixed with flags", func() {
			out, _, err := run(ctx, "", "classify", "--log-level", "error", "-0.5", "--clamp", "-3", "-0.95")

			Convey("Then flags are applied and every number is classified", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "-0.5\tsus\tsus.svg\n-3\tcap\tcap.svg\n-0.95\tcap\tcap.svg\n")
			})
		})

		Convey("When ratings follow a double dash", func() {
			out, _, err := run(ctx, "", "classify", "--", "-0.1")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, "-0.1\tmid\tmid.svg\n")
		})

		Convey("When help is requested", func() {
			out, _, err := run(ctx, "", "classify", "-h")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "tierctl classify -1 -0.8 0.5")
		})

		Convey("When an unknown flag is given", func() {
			_, _, err := run(ctx, "", "classify", "--bogus", "-1")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "bogus")
		})
	})
}

func TestSplitRatingArgs(t *testing.T) {
	Convey("Given a flag set with value and bool flags", t, func() {
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.Bool("clamp", false, "")
		fs.String("log-level", "", "")
		fs.BoolP("help", "h", false, "")

		Convey("When splitting mixed arguments", func() {
			flags, ratings := splitRatingArgs(fs, []string{"-1", "--log-level", "debug", "-h", "0.5", "--clamp", "-", "--log-level=info", "--", "--clamp"})

			Convey("Then numbers stay ratings and flag values stay with their flags", func() {
				So(flags, ShouldResemble, []string{"--log-level", "debug", "-h", "--clamp", "--log-level=info"})
				So(ratings, ShouldResemble, []string{"-1", "0.5", "-", "--clamp"})
			})
		})
	})
}

func TestBatchCommand(t *testing.T) {
	Convey("Given a ratings file", t, func() {
		ctx := context.Background()
		input := "# ratings\n0.9\n\n-0.95\nbogus\n-0.1\n"

		Convey("When classified in a batch", func() {
			out, errOut, err := run(ctx, input, "batch", "--workers", "3", "-")

			Convey("Then valid lines keep input order and invalid ones are reported", func() {
				So(out, ShouldEqual, "0.9\tgoated\tgoated.svg\n-0.95\tcap\tcap.svg\n-0.1\tmid\tmid.svg\n")
				So(errOut, ShouldContainSubstring, "line 3:")
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldEqual, "1 of 4 ratings invalid")
			})
		})

		Convey("When the batch is read from a file", func() {
			path := filepath.Join(t.TempDir(), "ratings.txt")
			So(os.WriteFile(path, []byte("0\n-1\n"), 0o600), ShouldBeNil)
			out, _, err := run(ctx, "", "batch", path)

			So(err, ShouldBeNil)
			So(out, ShouldEqual, "0\tgoated\tgoated.svg\n-1\tcap\tcap.svg\n")
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := classifyBatch(cctx, []string{"0", "1"}, 1, false)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestAnnotateCommand(t *testing.T) {
	Convey("Given an article page", t, func() {
		ctx := context.Background()

		Convey("When annotating immediately", func() {
			out, _, err := run(ctx, page, "annotate", "--rating", "0.6", "--summary", "Well sourced.", "-")

			Convey("Then the icon and summary are injected", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, `src="/icons/goated.svg"`)
				So(out, ShouldContainSubstring, `<p id="summary">Well sourced.</p>`)
			})
		})

		Convey("When annotating after a delay into a file", func() {
			path := filepath.Join(t.TempDir(), "out.html")
			_, _, err := run(ctx, page, "annotate", "--rating", "-0.7", "--delay", "10ms",
				"--icon-base", "https://cdn.example/icons", "-o", path, "-")

			Convey("Then the file holds the annotated page", func() {
				So(err, ShouldBeNil)
				data, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(data), ShouldContainSubstring, `src="https://cdn.example/icons/sus.svg"`)
			})
		})

		Convey("When the delayed annotation is interrupted", func() {
			cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()
			_, err := annotate(cctx, []byte(page), annotateOptions{rating: 0, delay: time.Hour, iconBase: "/icons", anchorID: "main-heading"})

			Convey("Then it reports the cancellation", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the heading is missing", func() {
			_, _, err := run(ctx, "<p>no heading</p>", "annotate", "--rating", "0", "-")
			So(err, ShouldNotBeNil)
		})

		Convey("When the rating flag is missing", func() {
			_, _, err := run(ctx, page, "annotate", "-")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSubmitCommand(t *testing.T) {
	Convey("Given a report endpoint", t, func() {
		ctx := context.Background()
		var got reportBody
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/article" {
				_, _ = w.Write([]byte(bylinePage))
				return
			}
			if r.URL.Path != "/reports" || r.Method != http.MethodPost {
				http.NotFound(w, r)
				return
			}
			_ = json.NewDecoder(r.Body).Decode(&got)
			if got.Polarity > 1 {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"code":"bad_request","message":"polarity out of range"}`))
				return
			}
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"id":"r-1","status":"accepted"}`))
		}))
		defer srv.Close()

		Convey("When a report is submitted", func() {
			out, _, err := run(ctx, "", "submit", "--server", srv.URL, "--url", "https://news.example/a",
				"--title", "A", "--subjectivity", "0.3", "--polarity", "0.1", "--evidence", "0.8")

			Convey("Then the server receives it and the ack is printed", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "r-1\taccepted\n")
				So(got.URL, ShouldEqual, "https://news.example/a")
				So(got.Evidence, ShouldEqual, 0.8)
			})
		})

		Convey("When the article is fetched first", func() {
			out, _, err := run(ctx, "", "submit", "--server", srv.URL, "--url", srv.URL+"/article", "--fetch",
				"--title", "Kept title", "--subjectivity", "0.3", "--polarity", "-0.2", "--evidence", "0.5")

			Convey("Then empty fields are filled from the page", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "r-1\taccepted\n")
				So(got.Title, ShouldEqual, "Kept title")
				So(got.Text, ShouldEqual, "Body.")
				So(got.Journalist, ShouldEqual, "Ada Lovelace")
				So(got.Related, ShouldResemble, []model.Link{{Title: "Next story", URL: srv.URL + "/news/b"}})
			})
		})

		Convey("When the server rejects it", func() {
			_, _, err := run(ctx, "", "submit", "--server", srv.URL, "--url", "https://news.example/a",
				"--subjectivity", "0.3", "--polarity", "3", "--evidence", "0.8")

			Convey("Then the error carries the server code", func() {
				So(errors.Is(err, ErrServer), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "bad_request")
			})
		})

		Convey("When the url is missing", func() {
			_, _, err := run(ctx, "", "submit", "--server", srv.URL,
				"--subjectivity", "0.3", "--polarity", "0.1", "--evidence", "0.8")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestVerifyLeaderboard(t *testing.T) {
	Convey("Given leaderboard entries", t, func() {
		Convey("When ratings descend with shared ranks for ties", func() {
			entries := []leaderboardEntry{
				{Rank: 1, Rating: 0.8, Tier: tier.Goated},
				{Rank: 1, Rating: 0.8, Tier: tier.Goated},
				{Rank: 2, Rating: -0.5, Tier: tier.Sus},
			}
			So(verifyLeaderboard(entries), ShouldBeNil)
		})

		Convey("When ratings are out of order", func() {
			entries := []leaderboardEntry{
				{Rank: 1, Rating: 0.1, Tier: tier.Goated},
				{Rank: 2, Rating: 0.2, Tier: tier.Goated},
			}
			So(errors.Is(verifyLeaderboard(entries), ErrVerification), ShouldBeTrue)
		})

		Convey("When a tier does not match its rating", func() {
			entries := []leaderboardEntry{{Rank: 1, Rating: -0.9, Tier: tier.Mid}}
			So(errors.Is(verifyLeaderboard(entries), ErrVerification), ShouldBeTrue)
		})
	})
}

func TestLoadtestCommand(t *testing.T) {
	Convey("Given a running tiermark server", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithLogger(logger.Nop()),
			service.WithWorkerCount(2),
			service.WithQueueSize(500),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When the load test runs", func() {
			out, _, err := run(ctx, "", "loadtest", "--server", srv.URL, "--reports", "40",
				"--workers", "4", "--top", "20", "--settle", "300ms", "--seed", "7")

			Convey("Then every report is accepted and the leaderboard verifies", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "submitted\t40\n")
				So(out, ShouldContainSubstring, "accepted\t40\n")
				So(out, ShouldContainSubstring, "failed\t0\n")
			})
		})

		Convey("When the server is unreachable", func() {
			_, _, err := run(ctx, "", "loadtest", "--server", "http://127.0.0.1:1", "--reports", "1", "--timeout", "200ms")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "health check")
		})
	})

	Convey("Given a fixed seed", t, func() {
		a := randomReports(5, 42)
		b := randomReports(5, 42)

		Convey("Then scores repeat and stay in range", func() {
			for i := range a {
				So(a[i].Polarity, ShouldEqual, b[i].Polarity)
				So(a[i].Subjectivity, ShouldBeBetweenOrEqual, 0, 1)
				So(a[i].Evidence, ShouldBeBetweenOrEqual, -1, 1)
			}
		})
	})
}
