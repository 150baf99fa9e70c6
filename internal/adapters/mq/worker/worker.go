// Package worker turns queued reports into stored annotations.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/tiermark/internal/domain/model"
	"github.com/okian/tiermark/internal/domain/scoring"
	"github.com/okian/tiermark/internal/domain/tier"
	"github.com/okian/tiermark/pkg/logger"
	"github.com/okian/tiermark/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	defaultSummaryTimeout   = 20 * time.Second
)

// Report abstracts what workers read off the queue.
type Report = model.Report

// Scorer folds analysis scores into a rating.
type Scorer interface {
	Score(ctx context.Context, in scoring.Input) (scoring.Result, error)
}

// Summarizer produces a summary for an article body.
type Summarizer interface {
	Summarize(ctx context.Context, title, text string) (string, error)
}

// Store persists annotations.
type Store interface {
	Put(ctx context.Context, a model.Annotation) error
}

// Queue defines how workers receive reports.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Report
}

// Processor holds the dependencies shared by every worker in a pool.
type Processor struct {
	scorer         Scorer
	summarizer     Summarizer // optional
	store          Store
	summaryTimeout time.Duration
	now            func() time.Time
}

// Process scores, classifies and (if needed) summarizes r, then stores the
// resulting annotation. A failed summary is logged by the caller and does not
// block the annotation.
func (p *Processor) Process(ctx context.Context, r Report) (model.Annotation, error) { //nolint:gocritic // hugeParam: Report is passed by value for channel semantics
	res, err := p.scorer.Score(ctx, scoring.Input{
		Subjectivity: r.Subjectivity,
		Polarity:     r.Polarity,
		Evidence:     r.Evidence,
	})
	if err != nil {
		metrics.RecordErrorByComponent("worker", "scoring_error")
		return model.Annotation{}, fmt.Errorf("score report %s: %w", r.ID, err)
	}

	t, err := tier.Classify(res.Rating)
	if err != nil {
		metrics.RecordInvalidRating()
		return model.Annotation{}, fmt.Errorf("classify report %s: %w", r.ID, err)
	}
	metrics.RecordRatingClassified(string(t))
	normalized, _ := tier.Normalize(res.Rating)

	summary, sumErr := p.summary(ctx, r)

	now := p.now()
	submitted := r.TS
	if submitted.IsZero() {
		submitted = now
	}

	a := model.Annotation{
		URL:         r.URL,
		Title:       r.Title,
		ReportID:    r.ID,
		Rating:      res.Rating,
		Normalized:  normalized,
		Tier:        t,
		Icon:        t.Icon(),
		Summary:     summary,
		Journalist:  r.Journalist,
		Related:     r.Related,
		SubmittedAt: submitted,
		UpdatedAt:   now,
	}
	if err := p.store.Put(ctx, a); err != nil {
		metrics.RecordErrorByComponent("worker", "store_error")
		return model.Annotation{}, fmt.Errorf("store annotation for %s: %w", r.URL, err)
	}
	return a, sumErr
}

func (p *Processor) summary(ctx context.Context, r Report) (string, error) { //nolint:gocritic // hugeParam
	if r.Summary != "" || p.summarizer == nil || r.Text == "" {
		return r.Summary, nil
	}
	sctx, cancel := context.WithTimeout(ctx, p.summaryTimeout)
	defer cancel()

	s, err := p.summarizer.Summarize(sctx, r.Title, r.Text)
	if err != nil {
		metrics.RecordSummaryFailed()
		return "", fmt.Errorf("%w: %w", ErrSummary, err)
	}
	metrics.RecordSummaryGenerated()
	return s, nil
}

// InMemoryWorker consumes reports from a queue.
type InMemoryWorker struct {
	queue     Queue
	processor *Processor
	name      string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, processor *Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		processor: processor,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop until ctx is cancelled, Shutdown is called or
// the queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	reports := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-reports:
			if !ok {
				return
			}
			w.handle(ctx, r)
		}
	}
}

func (w *InMemoryWorker) handle(ctx context.Context, r Report) { //nolint:gocritic // hugeParam
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	a, err := w.processor.Process(ctx, r)
	switch {
	case err == nil:
		metrics.RecordReportProcessed()
		w.logger.Debug(ctx, "report annotated",
			logger.String("reportID", r.ID),
			logger.String("url", r.URL),
			logger.String("tier", string(a.Tier)),
			logger.Float64("rating", a.Rating),
		)
	case a.URL != "":
		// stored without a generated summary
		metrics.RecordReportProcessed()
		w.logger.Warn(ctx, "report annotated without summary",
			logger.String("reportID", r.ID),
			logger.Error(err),
		)
	default:
		metrics.RecordReportFailed()
		w.logger.Error(ctx, "error processing report",
			logger.String("reportID", r.ID),
			logger.Error(err),
		)
	}
}

// Shutdown stops the worker and waits for the current report to finish.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool manages multiple workers sharing one processor.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a worker pool. A count below 1 defaults to 2x NumCPU.
func NewPool(workerCount int, queue Queue, processor *Processor, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, processor, workerOpts...)
	}
	optsHolder := &InMemoryWorker{}
	for _, opt := range opts {
		opt(optsHolder)
	}
	pool.logger = optsHolder.logger
	if pool.logger == nil {
		pool.logger = logger.Get().Named("worker-pool")
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop closes the queue (when it can be closed), lets workers drain it and
// waits for them, bounded per worker.
func (p *Pool) Stop(ctx context.Context) {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			w.shutdownOnce.Do(func() { close(w.shutdown) })
		}
	}
}
