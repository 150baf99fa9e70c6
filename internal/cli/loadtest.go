package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/tiermark/internal/domain/tier"
	"github.com/okian/tiermark/pkg/logger"
)

// Default load test constants.
const (
	defaultNumReports  = 1000
	defaultTopN        = 50
	defaultSettleDelay = 2 * time.Second
	loadtestHost       = "https://loadtest.tiermark.invalid/articles/"
)

// ErrVerification is returned when the leaderboard breaks its ordering.
var ErrVerification = errors.New("leaderboard verification failed")

type loadtestConfig struct {
	server  string
	reports int
	workers int
	topN    int
	timeout time.Duration
	settle  time.Duration
	seed    uint64
}

// loadtestStats summarizes one run.
type loadtestStats struct {
	Submitted   int64
	Accepted    int64
	Backpressed int64
	Failed      int64
	Entries     int
	Duration    time.Duration
}

type leaderboardEntry struct {
	Rank   int       `json:"rank"`
	URL    string    `json:"url"`
	Rating float64   `json:"rating"`
	Tier   tier.Tier `json:"tier"`
}

type leaderboardBody struct {
	Entries []leaderboardEntry `json:"entries"`
}

func newLoadtestCommand() *cobra.Command {
	cfg := loadtestConfig{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Submit random reports concurrently and verify the leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.seed == 0 {
				cfg.seed = uint64(time.Now().UnixNano())
			}
			stats, err := runLoadtest(cmd.Context(), cfg)
			if stats != nil {
				printLoadtestStats(cmd.OutOrStdout(), stats)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.server, "server", defaultServer, "tiermark server base URL")
	f.IntVar(&cfg.reports, "reports", defaultNumReports, "number of reports to submit")
	f.IntVar(&cfg.workers, "workers", runtime.NumCPU()*2, "concurrent submitters")
	f.IntVar(&cfg.topN, "top", defaultTopN, "leaderboard entries to verify")
	f.DurationVar(&cfg.timeout, "timeout", defaultTimeout, "request timeout")
	f.DurationVar(&cfg.settle, "settle", defaultSettleDelay, "wait for processing before verifying")
	f.Uint64Var(&cfg.seed, "seed", 0, "random seed, 0 picks one")
	return cmd
}

// randomReports builds n reports with scores spread over their full ranges.
func randomReports(n int, seed uint64) []reportBody {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]reportBody, n)
	for i := range out {
		out[i] = reportBody{
			URL:          loadtestHost + uuid.NewString(),
			Title:        "Load test article " + strconv.Itoa(i+1),
			Summary:      "Generated by tierctl loadtest.",
			Subjectivity: rng.Float64(),
			Polarity:     rng.Float64()*2 - 1,
			Evidence:     rng.Float64()*2 - 1,
		}
	}
	return out
}

func runLoadtest(ctx context.Context, cfg loadtestConfig) (*loadtestStats, error) {
	log := logger.Get().Named("loadtest")
	start := time.Now()
	c := newClient(cfg.server, cfg.timeout)

	if err := c.getJSON(ctx, "/healthz", nil); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	reports := randomReports(cfg.reports, cfg.seed)
	log.Info(ctx, "submitting reports",
		logger.Int("reports", len(reports)),
		logger.Int("workers", cfg.workers),
	)

	stats := &loadtestStats{}
	g, gctx := errgroup.WithContext(ctx)
	if cfg.workers > 0 {
		g.SetLimit(cfg.workers)
	}
	for _, r := range reports {
		g.Go(func() error {
			atomic.AddInt64(&stats.Submitted, 1)
			err := c.postJSON(gctx, "/reports", r, nil)
			var apiErr *apiError
			switch {
			case err == nil:
				atomic.AddInt64(&stats.Accepted, 1)
			case errors.As(err, &apiErr) && apiErr.Code == "backpressure":
				atomic.AddInt64(&stats.Backpressed, 1)
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				atomic.AddInt64(&stats.Failed, 1)
				log.Debug(gctx, "report rejected", logger.String("url", r.URL), logger.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	select {
	case <-ctx.Done():
		return stats, ctx.Err()
	case <-time.After(cfg.settle):
	}

	var board leaderboardBody
	if err := c.getJSON(ctx, "/leaderboard?limit="+strconv.Itoa(cfg.topN), &board); err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.Entries = len(board.Entries)
	stats.Duration = time.Since(start)

	if err := verifyLeaderboard(board.Entries); err != nil {
		return stats, err
	}
	log.Info(ctx, "load test passed", logger.Int("entries", stats.Entries))
	return stats, nil
}

// verifyLeaderboard checks that ratings descend, equal ratings share a rank,
// and every tier matches its rating.
func verifyLeaderboard(entries []leaderboardEntry) error {
	for i, e := range entries {
		want, err := tier.Classify(e.Rating)
		if err != nil {
			return fmt.Errorf("%w: entry %d: %w", ErrVerification, i, err)
		}
		if e.Tier != want {
			return fmt.Errorf("%w: entry %d has tier %s, rating %.2f is %s", ErrVerification, i, e.Tier, e.Rating, want)
		}
		if i == 0 {
			if e.Rank != 1 {
				return fmt.Errorf("%w: first rank is %d", ErrVerification, e.Rank)
			}
			continue
		}
		prev := entries[i-1]
		switch {
		case e.Rating > prev.Rating:
			return fmt.Errorf("%w: entry %d rating %.2f above %.2f", ErrVerification, i, e.Rating, prev.Rating)
		case e.Rating == prev.Rating && e.Rank != prev.Rank:
			return fmt.Errorf("%w: tied entries %d and %d have ranks %d and %d", ErrVerification, i-1, i, prev.Rank, e.Rank)
		case e.Rating < prev.Rating && e.Rank != prev.Rank+1:
			return fmt.Errorf("%w: entry %d rank %d after %d", ErrVerification, i, e.Rank, prev.Rank)
		}
	}
	return nil
}

func printLoadtestStats(w io.Writer, s *loadtestStats) {
	rate := 0.0
	if s.Duration > 0 {
		rate = math.Round(float64(s.Submitted) / s.Duration.Seconds())
	}
	fmt.Fprintf(w, "submitted\t%d\naccepted\t%d\nbackpressure\t%d\nfailed\t%d\nentries\t%d\nduration\t%s\nrate\t%.0f/s\n",
		s.Submitted, s.Accepted, s.Backpressed, s.Failed, s.Entries, s.Duration.Round(time.Millisecond), rate)
}
