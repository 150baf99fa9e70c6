package worker

import (
	"time"

	"github.com/okian/tiermark/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// ProcessorOption applies a configuration option to the Processor.
type ProcessorOption func(*Processor)

// WithSummarizer enables summaries for reports submitted without one.
func WithSummarizer(s Summarizer) ProcessorOption {
	return func(p *Processor) {
		p.summarizer = s
	}
}

// WithSummaryTimeout bounds a single summarizer call.
func WithSummaryTimeout(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d > 0 {
			p.summaryTimeout = d
		}
	}
}

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProcessor creates a Processor that scores with scorer and writes to store.
func NewProcessor(scorer Scorer, store Store, opts ...ProcessorOption) *Processor {
	p := &Processor{
		scorer:         scorer,
		store:          store,
		summaryTimeout: defaultSummaryTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
