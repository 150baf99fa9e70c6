package service

import (
	"context"
	"time"

	"github.com/okian/tiermark/internal/adapters/fetch"
	"github.com/okian/tiermark/internal/adapters/summary"
	"github.com/okian/tiermark/internal/domain/render"
	"github.com/okian/tiermark/pkg/logger"
)

// Fetcher downloads article pages for URL renders.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (fetch.Page, error)
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the report queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSummarizer sets the summarizer used for reports without a summary.
func WithSummarizer(sum summary.Summarizer) Option {
	return func(s *Service) {
		if sum != nil {
			s.summarizer = sum
		}
	}
}

// WithFetcher sets the article fetcher used for URL renders.
func WithFetcher(f Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithRenderer sets the overlay renderer.
func WithRenderer(r *render.Renderer) Option {
	return func(s *Service) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithRenderDelay sets the default delay of scheduled renders.
func WithRenderDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.renderDelay = d
		}
	}
}

// WithClampRatings clamps out-of-range ratings instead of rejecting them.
func WithClampRatings(clamp bool) Option {
	return func(s *Service) {
		s.clampRatings = clamp
	}
}

// WithCleanupInterval sets how often finished render results are pruned.
func WithCleanupInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cleanupInterval = d
		}
	}
}
