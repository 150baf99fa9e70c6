// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tiermark/internal/adapters/fetch"
	reportqueue "github.com/okian/tiermark/internal/adapters/mq/queue"
	"github.com/okian/tiermark/internal/adapters/mq/scheduler"
	workerpool "github.com/okian/tiermark/internal/adapters/mq/worker"
	"github.com/okian/tiermark/internal/adapters/repository"
	"github.com/okian/tiermark/internal/adapters/summary"
	"github.com/okian/tiermark/internal/domain/model"
	"github.com/okian/tiermark/internal/domain/render"
	"github.com/okian/tiermark/internal/domain/scoring"
	"github.com/okian/tiermark/internal/domain/tier"
	"github.com/okian/tiermark/pkg/logger"
	"github.com/okian/tiermark/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultRenderDelay     = 2 * time.Second
	defaultQueueSize       = 10_000
	defaultCleanupInterval = time.Minute
	workerMultiplier       = 2
)

// renderJob holds the outcome of a scheduled render.
type renderJob struct {
	handle *scheduler.Handle

	mu   sync.Mutex
	tier tier.Tier
	html []byte
}

// Service implements the API dependencies for the annotator.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      *repository.MemoryStore
	queue      *reportqueue.InMemoryQueue
	pool       *workerpool.Pool
	scorer     scoring.Scorer
	summarizer summary.Summarizer
	renderer   *render.Renderer
	fetcher    Fetcher
	scheduler  *scheduler.Scheduler

	// Configuration
	workerCount     int
	queueSize       int
	renderDelay     time.Duration
	clampRatings    bool
	cleanupInterval time.Duration

	// Scheduled renders by handle id
	rendersMu sync.Mutex
	renders   map[string]*renderJob

	// State
	started bool
	runCtx  context.Context //nolint:containedctx // lifetime of scheduled renders
	cancel  context.CancelFunc
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU() * workerMultiplier,
		queueSize:       defaultQueueSize,
		renderDelay:     defaultRenderDelay,
		cleanupInterval: defaultCleanupInterval,
		renders:         make(map[string]*renderJob),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting annotator service...")

	if s.summarizer == nil {
		s.summarizer = summary.NewExtractive()
	}
	if s.renderer == nil {
		s.renderer = render.New()
	}
	if s.fetcher == nil {
		s.fetcher = fetch.New(fetch.WithLogger(s.logger.Named("fetch")))
	}

	s.store = repository.NewMemoryStore()
	s.queue = reportqueue.NewInMemoryQueue(reportqueue.WithCapacity(s.queueSize))
	s.scorer = scoring.NewWeightedScorer()
	s.scheduler = scheduler.New(scheduler.WithLogger(s.logger.Named("scheduler")))

	processor := workerpool.NewProcessor(s.scorer, s.store, workerpool.WithSummarizer(s.summarizer))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, processor, workerpool.WithLogger(s.logger.Named("worker")))

	// Scheduled renders outlive the request that created them.
	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.pool.Start(s.runCtx)

	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.cleanupLoop()

	s.started = true
	s.logger.Info(ctx, "annotator service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("renderDelay", s.renderDelay.String()),
	)
	return nil
}

// Stop drains the report queue, cancels pending renders and stops background
// work. It is safe to call more than once.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping annotator service...")

	s.pool.Stop(ctx)
	s.scheduler.Stop()
	close(s.stopCh)
	s.wg.Wait()
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "annotator service stopped")
}

func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Classify maps a rating to its tier. With clamping enabled, out-of-range
// ratings are clamped instead of rejected.
func (s *Service) Classify(_ context.Context, rating float64) (model.Classification, error) {
	if s.clampRatings && !math.IsNaN(rating) {
		rating = tier.Clamp(rating)
	}
	t, err := tier.Classify(rating)
	if err != nil {
		metrics.RecordInvalidRating()
		return model.Classification{}, err
	}
	metrics.RecordRatingClassified(string(t))
	normalized, _ := tier.Normalize(rating)
	return model.Classification{
		Rating:     rating,
		Normalized: normalized,
		Tier:       t,
		Icon:       t.Icon(),
	}, nil
}

// SubmitReport validates r, assigns it an id and queues it for annotation.
func (s *Service) SubmitReport(ctx context.Context, r model.Report) (string, error) { //nolint:gocritic // hugeParam
	if err := s.running(); err != nil {
		return "", err
	}
	if err := validateReport(r); err != nil {
		return "", err
	}

	r.ID = uuid.NewString()
	r.TS = time.Now().UTC()
	if !s.queue.Enqueue(ctx, r) {
		metrics.RecordErrorByComponent("service", "queue_full")
		return "", ErrQueueFull
	}
	s.logger.Debug(ctx, "report queued",
		logger.String("reportID", r.ID),
		logger.String("url", r.URL),
	)
	return r.ID, nil
}

func validateReport(r model.Report) error { //nolint:gocritic // hugeParam
	switch {
	case strings.TrimSpace(r.URL) == "":
		return fmt.Errorf("%w: missing url", ErrInvalidReport)
	case math.IsNaN(r.Subjectivity) || r.Subjectivity < 0 || r.Subjectivity > 1:
		return fmt.Errorf("%w: subjectivity must be within [0, 1]", ErrInvalidReport)
	case math.IsNaN(r.Polarity) || math.IsNaN(r.Evidence):
		return fmt.Errorf("%w: polarity and evidence must be numbers", ErrInvalidReport)
	}
	return nil
}

// Annotation returns the stored annotation for url.
func (s *Service) Annotation(ctx context.Context, url string) (model.Annotation, error) {
	if err := s.running(); err != nil {
		return model.Annotation{}, err
	}
	return s.store.Get(ctx, url)
}

// TopN returns the n most rigorous annotated articles.
func (s *Service) TopN(ctx context.Context, n int) ([]model.RankedAnnotation, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	return s.store.TopN(ctx, n)
}

// ByTier returns the annotated articles in t.
func (s *Service) ByTier(ctx context.Context, t tier.Tier) ([]model.Annotation, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	return s.store.ByTier(ctx, t)
}

// Render injects the overlay described by req and returns the document.
func (s *Service) Render(ctx context.Context, req model.RenderRequest) ([]byte, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	out, _, err := s.render(ctx, req)
	return out, err
}

func (s *Service) render(ctx context.Context, req model.RenderRequest) ([]byte, tier.Tier, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRenderLatency(float64(time.Since(start).Milliseconds()))
	}()

	doc, overlay, err := s.resolve(ctx, req)
	if err != nil {
		metrics.RecordRender("invalid")
		return nil, "", err
	}
	out, err := s.renderer.Inject(doc, overlay)
	if err != nil {
		metrics.RecordRender("failed")
		metrics.RecordErrorByComponent("render", "inject")
		return nil, "", fmt.Errorf("render %s: %w", req.URL, err)
	}
	metrics.RecordRender("ok")
	return out, overlay.Tier, nil
}

// resolve gathers the document and overlay for req. Explicit values win over
// the stored annotation.
func (s *Service) resolve(ctx context.Context, req model.RenderRequest) ([]byte, render.Overlay, error) {
	var (
		doc     []byte
		overlay render.Overlay
	)
	switch {
	case req.HTML != "":
		doc = []byte(req.HTML)
	case req.URL != "":
		page, err := s.fetcher.Fetch(ctx, req.URL)
		if err != nil && !errors.Is(err, fetch.ErrEmptyArticle) {
			return nil, overlay, fmt.Errorf("fetch %s: %w", req.URL, err)
		}
		doc = page.HTML
	default:
		return nil, overlay, fmt.Errorf("%w: html or url is required", ErrInvalidRender)
	}

	var stored *model.Annotation
	if req.Rating == nil && req.URL == "" {
		return nil, overlay, fmt.Errorf("%w: rating is required without url", ErrInvalidRender)
	}
	if (req.Rating == nil || req.Summary == nil) && req.URL != "" {
		a, err := s.store.Get(ctx, req.URL)
		switch {
		case err == nil:
			stored = &a
		case req.Rating == nil:
			return nil, overlay, fmt.Errorf("no rating for %s: %w", req.URL, err)
		}
	}

	if req.Rating != nil {
		c, err := s.Classify(ctx, *req.Rating)
		if err != nil {
			return nil, overlay, err
		}
		overlay.Tier = c.Tier
	} else {
		overlay.Tier = stored.Tier
	}
	switch {
	case req.Summary != nil:
		overlay.Summary = *req.Summary
	case stored != nil:
		overlay.Summary = stored.Summary
	}
	return doc, overlay, nil
}

// ScheduleRender runs req after delay and keeps the result for RenderStatus.
// A negative delay uses the configured default.
func (s *Service) ScheduleRender(ctx context.Context, req model.RenderRequest, delay time.Duration) (model.RenderStatus, error) {
	if err := s.running(); err != nil {
		return model.RenderStatus{}, err
	}
	if req.HTML == "" && req.URL == "" {
		return model.RenderStatus{}, fmt.Errorf("%w: html or url is required", ErrInvalidRender)
	}
	if delay < 0 {
		delay = s.renderDelay
	}

	job := &renderJob{}
	h := s.scheduler.Schedule(s.runCtx, delay, func(tctx context.Context) error {
		out, t, err := s.render(tctx, req)
		if err != nil {
			return err
		}
		job.mu.Lock()
		job.html, job.tier = out, t
		job.mu.Unlock()
		return nil
	})
	job.handle = h

	s.rendersMu.Lock()
	s.renders[h.ID()] = job
	s.rendersMu.Unlock()

	s.logger.Debug(ctx, "render scheduled",
		logger.String("id", h.ID()),
		logger.String("delay", delay.String()),
	)
	return statusOf(job), nil
}

// RenderStatus reports on a scheduled render. Finished renders carry their
// document until they are pruned.
func (s *Service) RenderStatus(_ context.Context, id string) (model.RenderStatus, error) {
	s.rendersMu.Lock()
	job, ok := s.renders[id]
	s.rendersMu.Unlock()
	if !ok {
		return model.RenderStatus{}, fmt.Errorf("%w: %s", ErrRenderNotFound, id)
	}
	return statusOf(job), nil
}

// CancelRender cancels a scheduled render. It reports false when the render
// had already finished.
func (s *Service) CancelRender(ctx context.Context, id string) (bool, error) {
	s.rendersMu.Lock()
	job, ok := s.renders[id]
	s.rendersMu.Unlock()
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrRenderNotFound, id)
	}
	cancelled := job.handle.Cancel()
	if cancelled {
		s.logger.Debug(ctx, "render cancelled", logger.String("id", id))
	}
	return cancelled, nil
}

func statusOf(job *renderJob) model.RenderStatus {
	h := job.handle
	st := model.RenderStatus{
		ID:    h.ID(),
		State: string(h.State()),
		RunAt: h.RunAt(),
	}
	if err := h.Err(); err != nil && h.State() == scheduler.StateFailed {
		st.Error = err.Error()
	}
	job.mu.Lock()
	st.Tier = job.tier
	st.HTML = string(job.html)
	job.mu.Unlock()
	return st
}

// cleanupLoop drops finished renders the scheduler no longer tracks.
func (s *Service) cleanupLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.pruneRenders()
		}
	}
}

func (s *Service) pruneRenders() {
	s.rendersMu.Lock()
	defer s.rendersMu.Unlock()
	for id, job := range s.renders {
		if _, ok := s.scheduler.Get(id); !ok && job.handle.State().Terminal() {
			delete(s.renders, id)
		}
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"renderDelay":  s.renderDelay.String(),
		"clampRatings": s.clampRatings,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		annotations := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["annotations"] = annotations
		stats["pendingRenders"] = s.scheduler.Len()

		byTier := make(map[string]int, len(tier.All()))
		for _, t := range tier.All() {
			list, _ := s.store.ByTier(ctx, t)
			byTier[string(t)] = len(list)
		}
		stats["byTier"] = byTier

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateAnnotationsTotal(annotations)
		metrics.UpdateWorkerCount(s.workerCount)
	}
	return stats
}
